package builder

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/qantara-pay/settle-engine/internal/domain"
)

// accountSet collects account metas in first-seen order. Repeated addresses
// keep a single slot; signer and writable flags are OR-merged so an address
// that is writable in any swap leg stays writable in the settle instruction.
type accountSet struct {
	metas []*solana.AccountMeta
	index map[solana.PublicKey]int
}

func newAccountSet() *accountSet {
	return &accountSet{index: make(map[solana.PublicKey]int)}
}

func (s *accountSet) add(key solana.PublicKey, signer, writable bool) {
	if i, ok := s.index[key]; ok {
		s.metas[i].IsSigner = s.metas[i].IsSigner || signer
		s.metas[i].IsWritable = s.metas[i].IsWritable || writable
		return
	}
	s.index[key] = len(s.metas)
	s.metas = append(s.metas, &solana.AccountMeta{
		PublicKey:  key,
		IsSigner:   signer,
		IsWritable: writable,
	})
}

// ExtractSwapAccounts decodes a base64 swap transaction and returns the
// account metas referenced by the router program's instructions, in
// first-seen order. Instructions from other programs (compute budget,
// token setup) are ignored, as is the router program id itself.
func ExtractSwapAccounts(swapTxBase64 string, routerProgram solana.PublicKey) ([]*solana.AccountMeta, error) {
	set := newAccountSet()
	if err := collectSwapAccounts(set, swapTxBase64, routerProgram); err != nil {
		return nil, err
	}
	return set.metas, nil
}

// ExtractMultiHopSwapAccounts merges router accounts from several swap
// transactions into one deduplicated list, preserving first-seen order
// across legs and OR-merging flags for addresses both legs touch.
func ExtractMultiHopSwapAccounts(swapTxsBase64 []string, routerProgram solana.PublicKey) ([]*solana.AccountMeta, error) {
	set := newAccountSet()
	for _, raw := range swapTxsBase64 {
		if err := collectSwapAccounts(set, raw, routerProgram); err != nil {
			return nil, err
		}
	}
	return set.metas, nil
}

func collectSwapAccounts(set *accountSet, swapTxBase64 string, routerProgram solana.PublicKey) error {
	raw, err := base64.StdEncoding.DecodeString(swapTxBase64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64: %s", domain.ErrMalformedSwapTransaction, err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrMalformedSwapTransaction, err)
	}

	msg := &tx.Message
	staticKeys := msg.AccountKeys

	for _, ix := range msg.Instructions {
		progIdx := int(ix.ProgramIDIndex)
		if progIdx >= len(staticKeys) {
			return fmt.Errorf("%w: program index %d beyond static keys", domain.ErrMalformedSwapTransaction, progIdx)
		}
		if !staticKeys[progIdx].Equals(routerProgram) {
			continue
		}
		for _, accIdx := range ix.Accounts {
			idx := int(accIdx)
			if idx >= len(staticKeys) {
				// Index resolves through an address lookup table; the
				// settle instruction needs static metas only.
				return fmt.Errorf("%w: account index %d requires lookup table resolution", domain.ErrMalformedSwapTransaction, idx)
			}
			key := staticKeys[idx]
			if key.Equals(routerProgram) {
				continue
			}
			set.add(key, idx < int(msg.Header.NumRequiredSignatures), isWritableIndex(msg, idx))
		}
	}
	return nil
}

// isWritableIndex applies the message header partitioning: writable signers
// first, then readonly signers, then writable non-signers, then readonly
// non-signers.
func isWritableIndex(msg *solana.Message, idx int) bool {
	h := msg.Header
	numSigners := int(h.NumRequiredSignatures)
	if idx < numSigners {
		return idx < numSigners-int(h.NumReadonlySignedAccounts)
	}
	return idx < len(msg.AccountKeys)-int(h.NumReadonlyUnsignedAccounts)
}

// FilterAgainstFixed drops candidates whose address already appears among
// the fixed settle accounts. The result keeps candidate order and is stable
// under repeated application.
func FilterAgainstFixed(candidates []*solana.AccountMeta, fixed []solana.PublicKey) []*solana.AccountMeta {
	fixedSet := make(map[solana.PublicKey]struct{}, len(fixed))
	for _, k := range fixed {
		fixedSet[k] = struct{}{}
	}
	out := make([]*solana.AccountMeta, 0, len(candidates))
	for _, m := range candidates {
		if _, ok := fixedSet[m.PublicKey]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}
