package domain

import "time"

// MerchantProfile is the off-chain business configuration for a merchant.
// The authoritative security-critical fields (payout wallet, buyback mint,
// frozen flag) live on-chain in MerchantRegistry; the profile only carries
// defaults and operator preferences.
type MerchantProfile struct {
	MerchantID        uint64    `json:"merchantId,string"`
	OwnerWallet       string    `json:"ownerWallet"`
	RegistryPDA       string    `json:"registryPda"`
	PayoutWallet      string    `json:"payoutWallet"`
	BuybackMint       string    `json:"buybackMint"`
	VaultBuybackToken string    `json:"vaultBuybackToken"`
	DefaultPayoutBps  uint16    `json:"defaultPayoutBps"`
	DefaultBuybackBps uint16    `json:"defaultBuybackBps"`
	DefaultBurnBps    uint16    `json:"defaultBurnBps"`
	SlippageBps       uint16    `json:"slippageBps"`
	AllowSol          bool      `json:"allowSol"`
	AllowUsdc         bool      `json:"allowUsdc"`
	WebhookURL        string    `json:"webhookUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AllowsToken reports whether the merchant accepts the given payment asset.
func (m *MerchantProfile) AllowsToken(t PayToken) bool {
	switch t {
	case PayTokenSol:
		return m.AllowSol
	case PayTokenUsdc:
		return m.AllowUsdc
	}
	return false
}

// PaymentLink is a short-id checkout link for a fixed-price product.
type PaymentLink struct {
	LinkID      string    `json:"linkId"`
	MerchantID  uint64    `json:"merchantId,string"`
	PayToken    string    `json:"payToken"`
	Price       float64   `json:"price"`
	PayoutBps   uint16    `json:"payoutBps"`
	BuybackBps  uint16    `json:"buybackBps"`
	BurnBps     uint16    `json:"burnBps"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
