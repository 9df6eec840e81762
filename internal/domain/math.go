package domain

import "math/bits"

// MulDiv computes a*b/den using a full 128-bit intermediate. It returns
// ErrOverflow when den is zero or when the quotient does not fit in 64 bits.
// Every chained odds/multiplier computation in the engine goes through here
// so an overflowing bet is rejected instead of wrapping.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// CheckedMul computes a*b and returns ErrOverflow when the product does not
// fit in 64 bits.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// CheckedAdd computes a+b and returns ErrOverflow on wraparound.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// ApplyRate returns amount scaled by a FixedScale rate (e.g. a 200 bps-style
// rate of 200/10_000).
func ApplyRate(amount, rate uint64) (uint64, error) {
	return MulDiv(amount, rate, FixedScale)
}
