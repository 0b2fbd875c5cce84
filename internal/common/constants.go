// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	ATAProgramID    = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID = solana.SystemProgramID

	// WrappedSolMint is the canonical wrapped SOL mint, used as the
	// intermediate leg for USDC -> SOL -> buyback token routes.
	WrappedSolMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	USDCMintDevnet  = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	USDCMintMainnet = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// Seeds for program-derived addresses of the settlement program.
const (
	ProtocolConfigSeed   = "protocol"
	VaultSeed            = "vault"
	VaultSolSeed         = "sol"
	VaultUsdcSeed        = "vault_usdc"
	MerchantRegistrySeed = "merchant"
)

const (
	// BpsDenominator is the basis-point scale: 10000 bps = 100%.
	BpsDenominator = 10_000

	// MaxProtocolFeeBps mirrors the on-chain ceiling (5%).
	MaxProtocolFeeBps = 500
)
