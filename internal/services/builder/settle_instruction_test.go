package builder

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

func testSettleAccounts() SettleAccounts {
	return SettleAccounts{
		ProtocolConfig:       solana.NewWallet().PublicKey(),
		MerchantRegistry:     solana.NewWallet().PublicKey(),
		Payer:                solana.NewWallet().PublicKey(),
		VaultSol:             solana.NewWallet().PublicKey(),
		VaultUsdc:            solana.NewWallet().PublicKey(),
		UsdcMint:             common.USDCMintDevnet,
		VaultBuybackToken:    solana.NewWallet().PublicKey(),
		BuybackMint:          solana.NewWallet().PublicKey(),
		ProtocolWallet:       solana.NewWallet().PublicKey(),
		ProtocolWalletUsdc:   solana.NewWallet().PublicKey(),
		MerchantPayoutWallet: solana.NewWallet().PublicKey(),
		MerchantPayoutUsdc:   solana.NewWallet().PublicKey(),
		PayerUsdcAccount:     solana.NewWallet().PublicKey(),
		RouterProgram:        solana.NewWallet().PublicKey(),
	}
}

func TestSettleInstructionData(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	accounts := testSettleAccounts()
	req := &domain.SettleRequest{
		MerchantID: 42,
		Amount:     1_000_000,
		PayToken:   domain.PayTokenUsdc,
		MinOut:     987_654,
		PayoutBps:  7000,
		BuybackBps: 3000,
		BurnBps:    5000,
	}

	ix, err := NewSettleInstruction(programID, req, accounts, nil)
	require.NoError(t, err)
	require.Equal(t, programID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+1+8+2+2+2)

	expectedDisc := sha256.Sum256([]byte("global:settle"))
	require.Equal(t, expectedDisc[:8], data[:8])

	require.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[16:24]))
	require.Equal(t, uint8(1), data[24])
	require.Equal(t, uint64(987_654), binary.LittleEndian.Uint64(data[25:33]))
	require.Equal(t, uint16(7000), binary.LittleEndian.Uint16(data[33:35]))
	require.Equal(t, uint16(3000), binary.LittleEndian.Uint16(data[35:37]))
	require.Equal(t, uint16(5000), binary.LittleEndian.Uint16(data[37:39]))
}

func TestSettleInstructionAccountOrder(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	accounts := testSettleAccounts()
	remaining := []*solana.AccountMeta{
		{PublicKey: solana.NewWallet().PublicKey(), IsWritable: true},
		{PublicKey: solana.NewWallet().PublicKey()},
	}
	req := &domain.SettleRequest{
		MerchantID: 1,
		Amount:     100,
		PayToken:   domain.PayTokenSol,
		PayoutBps:  10_000,
	}

	ix, err := NewSettleInstruction(programID, req, accounts, remaining)
	require.NoError(t, err)

	metas := ix.Accounts()
	require.Len(t, metas, 16+len(remaining))

	expected := []solana.PublicKey{
		accounts.ProtocolConfig,
		accounts.MerchantRegistry,
		accounts.Payer,
		accounts.VaultSol,
		accounts.VaultUsdc,
		accounts.UsdcMint,
		accounts.VaultBuybackToken,
		accounts.BuybackMint,
		accounts.ProtocolWallet,
		accounts.ProtocolWalletUsdc,
		accounts.MerchantPayoutWallet,
		accounts.MerchantPayoutUsdc,
		accounts.PayerUsdcAccount,
		accounts.RouterProgram,
		common.TokenProgramID,
		common.SystemProgramID,
	}
	for i, key := range expected {
		require.Equal(t, key, metas[i].PublicKey, "fixed account %d", i)
	}

	// Payer is the only signer among the fixed accounts.
	require.True(t, metas[2].IsSigner)
	require.True(t, metas[2].IsWritable)
	for i, m := range metas {
		if i != 2 {
			require.False(t, m.IsSigner, "account %d must not sign", i)
		}
	}

	// Remaining accounts follow the fixed block with flags preserved.
	require.Equal(t, remaining[0].PublicKey, metas[16].PublicKey)
	require.True(t, metas[16].IsWritable)
	require.Equal(t, remaining[1].PublicKey, metas[17].PublicKey)
	require.False(t, metas[17].IsWritable)
}
