package domain

import "github.com/gagliardetto/solana-go"

// PayToken is the asset-kind tag encoded into the settle instruction.
type PayToken uint8

const (
	PayTokenSol PayToken = iota
	PayTokenUsdc
)

func (p PayToken) String() string {
	switch p {
	case PayTokenSol:
		return "SOL"
	case PayTokenUsdc:
		return "USDC"
	}
	return "UNKNOWN"
}

// PayTokenFromString parses the wire representation used by the HTTP API.
func PayTokenFromString(s string) (PayToken, bool) {
	switch s {
	case "SOL":
		return PayTokenSol, true
	case "USDC":
		return PayTokenUsdc, true
	}
	return 0, false
}

// ProtocolConfig is the singleton on-chain protocol record. Owned by the
// settlement program; read-only to this service.
type ProtocolConfig struct {
	Authority      solana.PublicKey
	ProtocolFeeBps uint16
	ProtocolWallet solana.PublicKey
	RouterProgram  solana.PublicKey
	Paused         bool
	Bump           uint8
}

// MerchantRegistry is the per-merchant on-chain record. Every field is
// untrusted input: it is re-fetched and validated on each compose, never
// trusted from a cached copy.
type MerchantRegistry struct {
	MerchantID   uint64
	Owner        solana.PublicKey
	PayoutWallet solana.PublicKey
	BuybackMint  solana.PublicKey
	Frozen       bool
	Bump         uint8
}
