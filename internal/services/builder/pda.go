package builder

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

// Address derivation for the settlement program. All derivations are pure:
// fixed seed literals plus identifiers, hashed off the program id. A failed
// derivation (no valid curve point found) is surfaced as
// ErrAddressDerivationExhausted, never retried with mutated seeds.

func findProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	pda, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %v", domain.ErrAddressDerivationExhausted, err)
	}
	return pda, bump, nil
}

// DeriveProtocolConfig derives the singleton protocol config PDA.
func DeriveProtocolConfig(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{[]byte(common.ProtocolConfigSeed)}, programID)
}

// DeriveVaultSol derives the native-asset vault PDA.
func DeriveVaultSol(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{
		[]byte(common.VaultSeed),
		[]byte(common.VaultSolSeed),
	}, programID)
}

// DeriveVaultUsdc derives the stable-asset vault PDA for a given USDC mint.
func DeriveVaultUsdc(usdcMint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{
		[]byte(common.VaultUsdcSeed),
		usdcMint[:],
	}, programID)
}

// DeriveMerchantRegistry derives the merchant registry PDA for a merchant id.
// The id is encoded little-endian over 8 bytes, matching the on-chain seeds.
func DeriveMerchantRegistry(merchantID uint64, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], merchantID)
	return findProgramAddress([][]byte{
		[]byte(common.MerchantRegistrySeed),
		idBytes[:],
	}, programID)
}

type merchantPDAKey struct {
	program    solana.PublicKey
	merchantID uint64
}

var (
	merchantPDACache   = make(map[merchantPDAKey]solana.PublicKey)
	merchantPDACacheMu sync.RWMutex
)

// GetCachedMerchantRegistry returns a cached merchant registry PDA or
// computes and caches it. Derivation is deterministic, so entries never
// expire.
func GetCachedMerchantRegistry(merchantID uint64, programID solana.PublicKey) (solana.PublicKey, error) {
	key := merchantPDAKey{program: programID, merchantID: merchantID}

	merchantPDACacheMu.RLock()
	if cached, ok := merchantPDACache[key]; ok {
		merchantPDACacheMu.RUnlock()
		return cached, nil
	}
	merchantPDACacheMu.RUnlock()

	pda, _, err := DeriveMerchantRegistry(merchantID, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}

	merchantPDACacheMu.Lock()
	merchantPDACache[key] = pda
	merchantPDACacheMu.Unlock()

	return pda, nil
}

// ProtocolAccounts bundles the centralized protocol PDAs.
type ProtocolAccounts struct {
	ProtocolConfig solana.PublicKey
	VaultSol       solana.PublicKey
	VaultUsdc      solana.PublicKey
}

type protocolAccountsKey struct {
	ProgramID solana.PublicKey
	UsdcMint  solana.PublicKey
}

var (
	protocolAccountsCache   = make(map[protocolAccountsKey]ProtocolAccounts)
	protocolAccountsCacheMu sync.RWMutex
)

// DeriveProtocolAccounts derives (and caches per program id and usdc mint)
// the protocol config and both vault PDAs.
func DeriveProtocolAccounts(usdcMint, programID solana.PublicKey) (ProtocolAccounts, error) {
	key := protocolAccountsKey{ProgramID: programID, UsdcMint: usdcMint}

	protocolAccountsCacheMu.RLock()
	if cached, ok := protocolAccountsCache[key]; ok {
		protocolAccountsCacheMu.RUnlock()
		return cached, nil
	}
	protocolAccountsCacheMu.RUnlock()

	cfg, _, err := DeriveProtocolConfig(programID)
	if err != nil {
		return ProtocolAccounts{}, err
	}
	vaultSol, _, err := DeriveVaultSol(programID)
	if err != nil {
		return ProtocolAccounts{}, err
	}
	vaultUsdc, _, err := DeriveVaultUsdc(usdcMint, programID)
	if err != nil {
		return ProtocolAccounts{}, err
	}

	accounts := ProtocolAccounts{
		ProtocolConfig: cfg,
		VaultSol:       vaultSol,
		VaultUsdc:      vaultUsdc,
	}

	protocolAccountsCacheMu.Lock()
	protocolAccountsCache[key] = accounts
	protocolAccountsCacheMu.Unlock()

	return accounts, nil
}

type ataKey struct {
	Wallet solana.PublicKey
	Mint   solana.PublicKey
}

var (
	ataCache   = make(map[ataKey]solana.PublicKey)
	ataCacheMu sync.RWMutex
)

// GetATAAddress derives (and caches) the associated token account for a
// wallet and mint under the SPL token program.
func GetATAAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	key := ataKey{Wallet: wallet, Mint: mint}

	ataCacheMu.RLock()
	if cached, ok := ataCache[key]; ok {
		ataCacheMu.RUnlock()
		return cached, nil
	}
	ataCacheMu.RUnlock()

	ata, _, err := findProgramAddress(
		[][]byte{
			wallet[:],
			common.TokenProgramID[:],
			mint[:],
		},
		common.ATAProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, err
	}

	ataCacheMu.Lock()
	ataCache[key] = ata
	ataCacheMu.Unlock()

	return ata, nil
}
