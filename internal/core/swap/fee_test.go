package swap

import (
	"testing"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredDeposit(t *testing.T) {
	base := DefaultBaseFee
	justBelow := PercentFeeThreshold.SubSat(amount.One)

	tests := []struct {
		name       string
		native     amount.Amount
		privileged bool
		fee        amount.Amount
	}{
		{"zero", amount.Zero, false, base},
		{"below threshold", amount.Units(5), false, base},
		{"just below threshold", justBelow, false, base},
		{"at threshold", PercentFeeThreshold, false, amount.MustParse("100000000000000000000000")},
		{"above threshold", amount.Units(20), false, amount.MustParse("200000000000000000000000")},
		{"above threshold privileged", amount.Units(20), true, base},
		{"below threshold privileged", amount.Units(5), true, base},
		{"large", amount.Units(1000000), false, amount.Units(10000)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.fee, SettlementFee(tc.native, base, tc.privileged))

			want, err := tc.native.Add(tc.fee)
			require.NoError(t, err)
			got, err := RequiredDeposit(tc.native, base, tc.privileged)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRequiredDepositOverflow(t *testing.T) {
	_, err := RequiredDeposit(amount.Max, DefaultBaseFee, true)
	require.ErrorIs(t, err, TemBAD_AMOUNT)
}

func TestResultCategories(t *testing.T) {
	assert.True(t, TesSUCCESS.IsSuccess())
	assert.True(t, TecNO_ENTRY.IsTec())
	assert.True(t, TefORACLE_TIMEOUT.IsTef())
	assert.True(t, TemBUNDLE_TOO_LARGE.IsTem())
	assert.False(t, TemMALFORMED.IsTec())

	err := failf(TecNO_PERMISSION, "nope")
	assert.Equal(t, "tecNO_PERMISSION: nope", err.Error())
	assert.ErrorIs(t, err, TecNO_PERMISSION)
	assert.NotErrorIs(t, err, TecNO_ENTRY)
	assert.Equal(t, TecNO_PERMISSION, ResultOf(err))
	assert.Equal(t, TefINTERNAL, ResultOf(assert.AnError))
	assert.Equal(t, TesSUCCESS, ResultOf(nil))
}
