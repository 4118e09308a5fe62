package swap

import (
	"github.com/LeJamon/goSwapd/internal/core/amount"
)

const (
	// MaxBundleSize bounds the combined number of expected assets of both
	// sides.
	MaxBundleSize = 8

	// PercentFeeBps is the percentage fee, in basis points, charged on large
	// non-privileged deals.
	PercentFeeBps = 100
)

var (
	// PercentFeeThreshold is the native amount from which the percentage fee
	// replaces the base fee: 10 whole units.
	PercentFeeThreshold = amount.Units(10)

	// DefaultBaseFee is 0.1 whole units.
	DefaultBaseFee = amount.MustParse("100000000000000000000000")

	// CancelProof is the exact payment a participant attaches to cancel.
	CancelProof = amount.One
)

// percentTier reports whether the 1% fee applies instead of the base fee.
func percentTier(native amount.Amount, privileged bool) bool {
	return !privileged && native.Gte(PercentFeeThreshold)
}

// SettlementFee is the fee routed to the fee collector when an offer is
// completed or cancelled.
func SettlementFee(native, baseFee amount.Amount, privileged bool) amount.Amount {
	if percentTier(native, privileged) {
		return native.BasisPoints(PercentFeeBps)
	}
	return baseFee
}

// RequiredDeposit is the minimum native payment an offer creation must
// attach: the native amount plus the settlement fee.
func RequiredDeposit(native, baseFee amount.Amount, privileged bool) (amount.Amount, error) {
	required, err := native.Add(SettlementFee(native, baseFee, privileged))
	if err != nil {
		return amount.Zero, failf(TemBAD_AMOUNT, "native amount %s plus fee overflows", native)
	}
	return required, nil
}
