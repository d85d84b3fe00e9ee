package valueobjects

import (
	"math"
	"math/bits"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
)

// MaxDecimals is the largest exponent for which 10^decimals fits in a uint64.
const MaxDecimals = 19

// SaturatingSub returns a-b clamped at zero.
func SaturatingSub(a uint64, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func CheckedAdd(a uint64, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domainerrors.ErrOverflow
	}
	return sum, nil
}

func CheckedMul(a uint64, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, domainerrors.ErrOverflow
	}
	return lo, nil
}

// Pow10 returns 10^decimals or ErrOverflow when it does not fit in 64 bits.
func Pow10(decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, domainerrors.ErrOverflow
	}
	result := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		result *= 10
	}
	return result, nil
}

// ScaleToSmallestUnit converts base units into transfer units (amount * 10^decimals).
func ScaleToSmallestUnit(amount uint64, decimals uint8) (uint64, error) {
	factor, err := Pow10(decimals)
	if err != nil {
		return 0, err
	}
	return CheckedMul(amount, factor)
}

// MulDiv computes floor(a*b/c) with a 128-bit intermediate.
func MulDiv(a uint64, b uint64, c uint64) (uint64, error) {
	if c == 0 {
		return 0, domainerrors.ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, domainerrors.ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, nil
}

// AddSeconds offsets a unix timestamp, rejecting results outside int64.
func AddSeconds(ts int64, delta int64) (int64, error) {
	if delta > 0 && ts > math.MaxInt64-delta {
		return 0, domainerrors.ErrOverflow
	}
	if delta < 0 && ts < math.MinInt64-delta {
		return 0, domainerrors.ErrOverflow
	}
	return ts + delta, nil
}
