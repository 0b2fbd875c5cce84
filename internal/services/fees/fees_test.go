package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/domain"
)

func TestSplitBasic(t *testing.T) {
	split, err := Split(1_000_000, 7000, 3000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000), split.Buyback)
	assert.Equal(t, uint64(700_000), split.Payout)
	assert.Equal(t, uint64(0), split.ProtocolFee)
}

func TestSplitWithProtocolFee(t *testing.T) {
	// 1% protocol fee comes out of the payout remainder.
	split, err := Split(1_000_000, 7000, 3000, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000), split.Buyback)
	assert.Equal(t, uint64(10_000), split.ProtocolFee)
	assert.Equal(t, uint64(690_000), split.Payout)
	assert.Equal(t, uint64(1_000_000), split.Payout+split.Buyback+split.ProtocolFee)
}

func TestSplitTruncatesNeverRounds(t *testing.T) {
	// 333 bps of 1000 = 33.3 -> must floor to 33.
	split, err := Split(1000, 0, 333, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), split.Buyback)
}

func TestSplitRejectsBpsSumOver10000(t *testing.T) {
	_, err := Split(1_000_000, 7000, 3001, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBasisPoints)
}

func TestSplitConservation(t *testing.T) {
	cases := []struct {
		amount                uint64
		payoutBps, buybackBps uint16
	}{
		{0, 0, 0},
		{1, 9999, 1},
		{999_999_999, 5000, 5000},
		{math.MaxUint64, 0, 10000},
		{math.MaxUint64, 10000, 0},
		{12345678901234567, 1234, 4321},
	}
	for _, tc := range cases {
		split, err := Split(tc.amount, tc.payoutBps, tc.buybackBps, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, split.Payout+split.Buyback, tc.amount)
	}
}

func TestSplitOverflowingFee(t *testing.T) {
	// Full buyback leaves nothing for the protocol fee; a nonzero fee on top
	// would need amounts that do not exist.
	_, err := Split(100, 0, 10000, 100)
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)
}

func TestApplySlippage(t *testing.T) {
	got, err := ApplySlippage(1000, 100) // 1%
	require.NoError(t, err)
	assert.Equal(t, uint64(990), got)

	got, err = ApplySlippage(0, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	// 100% slippage floors to zero output.
	got, err = ApplySlippage(1000, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	_, err = ApplySlippage(1000, 10001)
	assert.ErrorIs(t, err, domain.ErrInvalidBasisPoints)
}

func TestApplySlippageMaxAmount(t *testing.T) {
	// The wide intermediate keeps max-u64 amounts exact.
	got, err := ApplySlippage(math.MaxUint64, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
}

func TestBurnPortion(t *testing.T) {
	got, err := BurnPortion(300_000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000), got)

	_, err = BurnPortion(300_000, 10001)
	assert.ErrorIs(t, err, domain.ErrInvalidBasisPoints)
}
