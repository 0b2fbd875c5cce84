// Package fees implements the integer fee-split and slippage arithmetic for
// payment settlement. All math is done on 256-bit intermediates so a u64
// amount times a bps factor can never wrap; results always truncate (floor),
// never round up.
package fees

import (
	"github.com/holiman/uint256"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
)

var bpsDenominator = uint256.NewInt(common.BpsDenominator)

// portion returns floor(amount * bps / 10000).
//
// Bound: amount < 2^64 and bps <= 10000 < 2^14, so the product is below
// 2^78 and the wide multiply cannot overflow; the quotient is <= amount and
// always fits back into a u64.
func portion(amount uint64, bps uint16) (uint64, error) {
	q := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(bps)))
	q.Div(q, bpsDenominator)
	if !q.IsUint64() {
		return 0, domain.ErrAmountOverflow
	}
	return q.Uint64(), nil
}

// Split divides amount into payout / buyback / protocol-fee components.
// payoutBps + buybackBps must not exceed 10000; this is validated before any
// amount math. The payout is the remainder after buyback and protocol fee,
// so Payout + Buyback + ProtocolFee == amount exactly.
func Split(amount uint64, payoutBps, buybackBps, protocolFeeBps uint16) (domain.SplitAmounts, error) {
	if uint32(payoutBps)+uint32(buybackBps) > common.BpsDenominator {
		return domain.SplitAmounts{}, domain.ErrInvalidBasisPoints
	}
	if protocolFeeBps > common.BpsDenominator {
		return domain.SplitAmounts{}, domain.ErrInvalidBasisPoints
	}

	buyback, err := portion(amount, buybackBps)
	if err != nil {
		return domain.SplitAmounts{}, err
	}
	protocolFee, err := portion(amount, protocolFeeBps)
	if err != nil {
		return domain.SplitAmounts{}, err
	}

	// buyback + protocolFee can exceed amount when buybackBps is near 10000
	// and a protocol fee applies on top. That is an arithmetic domain
	// violation, not a rounding case.
	rest := amount
	if buyback > rest {
		return domain.SplitAmounts{}, domain.ErrAmountOverflow
	}
	rest -= buyback
	if protocolFee > rest {
		return domain.SplitAmounts{}, domain.ErrAmountOverflow
	}
	rest -= protocolFee

	return domain.SplitAmounts{
		Payout:      rest,
		Buyback:     buyback,
		ProtocolFee: protocolFee,
	}, nil
}

// ApplySlippage returns the guaranteed minimum output for a quoted amount:
// floor(quoted * (10000 - slippageBps) / 10000).
func ApplySlippage(quotedOut uint64, slippageBps uint16) (uint64, error) {
	if slippageBps > common.BpsDenominator {
		return 0, domain.ErrInvalidBasisPoints
	}
	return portion(quotedOut, common.BpsDenominator-slippageBps)
}

// BurnPortion returns the part of a buyback amount that gets burned.
// burnBps is a fraction of the buyback amount, independent of the
// payout/buyback split.
func BurnPortion(buybackAmount uint64, burnBps uint16) (uint64, error) {
	if burnBps > common.BpsDenominator {
		return 0, domain.ErrInvalidBasisPoints
	}
	return portion(buybackAmount, burnBps)
}
