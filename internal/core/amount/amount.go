// Package amount implements native-currency quantities: unsigned 128-bit
// integers counted in the smallest unit.
package amount

import (
	"encoding/json"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	// Decimals is the number of smallest units in one whole native unit, as a
	// power of ten.
	Decimals = 24

	bitSize = 128

	bpsDenominator = 10_000
)

var (
	ErrOverflow  = errors.New("amount exceeds 128 bits")
	ErrUnderflow = errors.New("amount would be negative")
	ErrSyntax    = errors.New("invalid amount")
)

// Amount is an immutable native quantity. The zero value is zero.
type Amount struct {
	v uint256.Int
}

var (
	Zero = Amount{}
	One  = New(1)
	// Unit is one whole native unit.
	Unit = mustPow10(Decimals)
	// Max is the largest representable amount, 2^128-1.
	Max = func() Amount {
		var a Amount
		a.v.Lsh(uint256.NewInt(1), bitSize)
		a.v.SubUint64(&a.v, 1)
		return a
	}()
)

func New(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Units returns n whole native units. It panics if the result exceeds 128
// bits.
func Units(n uint64) Amount {
	var a Amount
	a.v.Mul(uint256.NewInt(n), &Unit.v)
	if a.v.BitLen() > bitSize {
		panic(ErrOverflow)
	}
	return a
}

// Parse reads a base-10 integer string.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, errors.Wrap(ErrSyntax, "empty string")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return Zero, errors.Wrapf(ErrSyntax, "%q", s)
		}
	}

	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Zero, errors.Wrapf(ErrOverflow, "%q", s)
	}
	if a.v.BitLen() > bitSize {
		return Zero, errors.Wrapf(ErrOverflow, "%q", s)
	}
	return a, nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func mustPow10(n int) Amount {
	return MustParse("1" + strings.Repeat("0", n))
}

func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	r.v.Add(&a.v, &b.v)
	if r.v.BitLen() > bitSize {
		return Zero, ErrOverflow
	}
	return r, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Zero, ErrUnderflow
	}
	return r, nil
}

// SubSat subtracts b, clamping at zero.
func (a Amount) SubSat(b Amount) Amount {
	r, err := a.Sub(b)
	if err != nil {
		return Zero
	}
	return r
}

// BasisPoints returns a*bps/10000 rounded down.
func (a Amount) BasisPoints(bps uint64) Amount {
	var r Amount
	r.v.Mul(&a.v, uint256.NewInt(bps))
	r.v.Div(&r.v, uint256.NewInt(bpsDenominator))
	return r
}

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }
func (a Amount) Eq(b Amount) bool  { return a.v.Eq(&b.v) }
func (a Amount) Lt(b Amount) bool  { return a.v.Lt(&b.v) }
func (a Amount) Gte(b Amount) bool { return !a.v.Lt(&b.v) }
func (a Amount) IsZero() bool      { return a.v.IsZero() }

func (a Amount) String() string { return a.v.Dec() }

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a decimal string, since JSON numbers
// cannot carry 128 bits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrap(ErrSyntax, string(data))
		}
		s = n.String()
	}
	return a.UnmarshalText([]byte(s))
}
