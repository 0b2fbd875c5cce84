package builder

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

// anchorDiscriminator returns the 8-byte instruction tag the settlement
// program expects: sha256("global:<name>")[0:8].
func anchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

var settleDiscriminator = anchorDiscriminator("settle")

// settleArgs is the borsh-encoded argument block of the settle instruction.
// Field order is the wire order; do not reorder.
type settleArgs struct {
	MerchantID uint64
	Amount     uint64
	PayToken   uint8
	MinOut     uint64
	PayoutBps  uint16
	BuybackBps uint16
	BurnBps    uint16
}

// SettleAccounts are the fixed-role accounts of the settle instruction, in
// the program's declared schema order. Remaining accounts (the swap route)
// are appended strictly after these; the program indexes them positionally
// from the end of this list.
type SettleAccounts struct {
	ProtocolConfig       solana.PublicKey
	MerchantRegistry     solana.PublicKey
	Payer                solana.PublicKey
	VaultSol             solana.PublicKey
	VaultUsdc            solana.PublicKey
	UsdcMint             solana.PublicKey
	VaultBuybackToken    solana.PublicKey
	BuybackMint          solana.PublicKey
	ProtocolWallet       solana.PublicKey
	ProtocolWalletUsdc   solana.PublicKey
	MerchantPayoutWallet solana.PublicKey
	MerchantPayoutUsdc   solana.PublicKey
	PayerUsdcAccount     solana.PublicKey
	RouterProgram        solana.PublicKey
}

// Metas returns the fixed account metas in schema order, including the
// trailing token/system program references.
func (a *SettleAccounts) Metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: a.ProtocolConfig, IsSigner: false, IsWritable: false},
		{PublicKey: a.MerchantRegistry, IsSigner: false, IsWritable: false},
		{PublicKey: a.Payer, IsSigner: true, IsWritable: true},
		{PublicKey: a.VaultSol, IsSigner: false, IsWritable: true},
		{PublicKey: a.VaultUsdc, IsSigner: false, IsWritable: true},
		{PublicKey: a.UsdcMint, IsSigner: false, IsWritable: false},
		{PublicKey: a.VaultBuybackToken, IsSigner: false, IsWritable: true},
		{PublicKey: a.BuybackMint, IsSigner: false, IsWritable: true},
		{PublicKey: a.ProtocolWallet, IsSigner: false, IsWritable: true},
		{PublicKey: a.ProtocolWalletUsdc, IsSigner: false, IsWritable: true},
		{PublicKey: a.MerchantPayoutWallet, IsSigner: false, IsWritable: true},
		{PublicKey: a.MerchantPayoutUsdc, IsSigner: false, IsWritable: true},
		{PublicKey: a.PayerUsdcAccount, IsSigner: false, IsWritable: false},
		{PublicKey: a.RouterProgram, IsSigner: false, IsWritable: false},
		{PublicKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
	}
}

// Addresses returns the fixed account addresses in schema order. Used to
// filter extracted swap accounts before they are appended as remaining
// accounts.
func (a *SettleAccounts) Addresses() []solana.PublicKey {
	metas := a.Metas()
	out := make([]solana.PublicKey, len(metas))
	for i, m := range metas {
		out[i] = m.PublicKey
	}
	return out
}

// NewSettleInstruction builds the settle instruction: discriminator plus
// borsh args, fixed accounts in schema order, then the already-filtered
// remaining accounts.
func NewSettleInstruction(
	programID solana.PublicKey,
	req *domain.SettleRequest,
	accounts SettleAccounts,
	remaining []*solana.AccountMeta,
) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	buf.Write(settleDiscriminator)

	enc := bin.NewBorshEncoder(buf)
	err := enc.Encode(settleArgs{
		MerchantID: req.MerchantID,
		Amount:     req.Amount,
		PayToken:   uint8(req.PayToken),
		MinOut:     req.MinOut,
		PayoutBps:  req.PayoutBps,
		BuybackBps: req.BuybackBps,
		BurnBps:    req.BurnBps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode settle args: %w", err)
	}

	metas := accounts.Metas()
	metas = append(metas, remaining...)

	return solana.NewInstruction(programID, metas, buf.Bytes()), nil
}
