package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// SettleRequest is the composer's input for one settlement transaction.
type SettleRequest struct {
	MerchantID uint64
	Payer      solana.PublicKey
	Amount     uint64
	PayToken   PayToken
	MinOut     uint64
	PayoutBps  uint16
	BuybackBps uint16
	BurnBps    uint16

	// SwapTransaction is the aggregator-built swap for the buyback leg,
	// base64 encoded. Empty when the buyback amount is zero.
	SwapTransaction string

	// PriorityFeeMicroLamports, when nonzero, prepends a compute-budget
	// price directive to the transaction.
	PriorityFeeMicroLamports uint64
}

// SplitAmounts is the integer fee split of a payment.
type SplitAmounts struct {
	Payout      uint64
	Buyback     uint64
	ProtocolFee uint64
}

// SettlementPlan is the composer's per-request working value: resolved fixed
// accounts, computed amounts and the merged remaining-accounts list. Built
// fresh per request, never shared.
type SettlementPlan struct {
	FixedAccounts     []*solana.AccountMeta
	RemainingAccounts []*solana.AccountMeta
	Amounts           SplitAmounts
	Blockhash         solana.Hash
	ExpiresAt         time.Time
}

// UnsignedTransaction is the produced artifact: a base64-encoded unsigned
// transaction plus the instant after which it must not be signed/submitted.
type UnsignedTransaction struct {
	Transaction          string `json:"transaction"`
	ExpiresAt            int64  `json:"expiresAt"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight,omitempty"`
}
