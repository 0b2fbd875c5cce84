package builder

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/common"
)

func TestDeriveProtocolConfigDeterministic(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	pda1, bump1, err := DeriveProtocolConfig(programID)
	require.NoError(t, err)
	pda2, bump2, err := DeriveProtocolConfig(programID)
	require.NoError(t, err)

	require.Equal(t, pda1, pda2)
	require.Equal(t, bump1, bump2)

	expected, expectedBump, err := solana.FindProgramAddress(
		[][]byte{[]byte("protocol")}, programID)
	require.NoError(t, err)
	require.Equal(t, expected, pda1)
	require.Equal(t, expectedBump, bump1)
}

func TestDeriveVaultSeeds(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	vaultSol, _, err := DeriveVaultSol(programID)
	require.NoError(t, err)
	expectedSol, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("vault"), []byte("sol")}, programID)
	require.NoError(t, err)
	require.Equal(t, expectedSol, vaultSol)

	vaultUsdc, _, err := DeriveVaultUsdc(common.USDCMintDevnet, programID)
	require.NoError(t, err)
	expectedUsdc, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("vault_usdc"), common.USDCMintDevnet.Bytes()}, programID)
	require.NoError(t, err)
	require.Equal(t, expectedUsdc, vaultUsdc)

	// Different mints land on different vaults.
	vaultMainnet, _, err := DeriveVaultUsdc(common.USDCMintMainnet, programID)
	require.NoError(t, err)
	require.NotEqual(t, vaultUsdc, vaultMainnet)
}

func TestDeriveMerchantRegistryLittleEndian(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], 0x0102030405060708)
	expected, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("merchant"), idBytes[:]}, programID)
	require.NoError(t, err)

	pda, _, err := DeriveMerchantRegistry(0x0102030405060708, programID)
	require.NoError(t, err)
	require.Equal(t, expected, pda)

	// Distinct ids never collide on the same registry address.
	other, _, err := DeriveMerchantRegistry(7, programID)
	require.NoError(t, err)
	require.NotEqual(t, pda, other)
}

func TestGetCachedMerchantRegistry(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	first, err := GetCachedMerchantRegistry(99, programID)
	require.NoError(t, err)
	second, err := GetCachedMerchantRegistry(99, programID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	derived, _, err := DeriveMerchantRegistry(99, programID)
	require.NoError(t, err)
	require.Equal(t, derived, first)
}

func TestDeriveProtocolAccounts(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	accounts, err := DeriveProtocolAccounts(common.USDCMintDevnet, programID)
	require.NoError(t, err)

	cfg, _, err := DeriveProtocolConfig(programID)
	require.NoError(t, err)
	vaultSol, _, err := DeriveVaultSol(programID)
	require.NoError(t, err)
	vaultUsdc, _, err := DeriveVaultUsdc(common.USDCMintDevnet, programID)
	require.NoError(t, err)

	require.Equal(t, cfg, accounts.ProtocolConfig)
	require.Equal(t, vaultSol, accounts.VaultSol)
	require.Equal(t, vaultUsdc, accounts.VaultUsdc)

	cached, err := DeriveProtocolAccounts(common.USDCMintDevnet, programID)
	require.NoError(t, err)
	require.Equal(t, accounts, cached)

	// A different usdc mint for the same program must not hit the cached
	// vault.
	otherMint := solana.NewWallet().PublicKey()
	other, err := DeriveProtocolAccounts(otherMint, programID)
	require.NoError(t, err)
	require.Equal(t, accounts.ProtocolConfig, other.ProtocolConfig)
	require.Equal(t, accounts.VaultSol, other.VaultSol)
	require.NotEqual(t, accounts.VaultUsdc, other.VaultUsdc)

	otherVault, _, err := DeriveVaultUsdc(otherMint, programID)
	require.NoError(t, err)
	require.Equal(t, otherVault, other.VaultUsdc)
}

func TestGetATAAddress(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()

	ata, err := GetATAAddress(wallet, common.USDCMintDevnet)
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(wallet, common.USDCMintDevnet)
	require.NoError(t, err)
	require.Equal(t, expected, ata)

	again, err := GetATAAddress(wallet, common.USDCMintDevnet)
	require.NoError(t, err)
	require.Equal(t, ata, again)
}
