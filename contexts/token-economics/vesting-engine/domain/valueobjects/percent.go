package valueobjects

import (
	"math/big"
	"strings"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent is a share of an allocation in the closed range [0, 100].
type Percent struct {
	value decimal.Decimal
}

func NewPercent(value decimal.Decimal) (Percent, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percent{}, domainerrors.ErrInvalidUnlockPercent
	}
	return Percent{value: value}, nil
}

func ParsePercent(raw string) (Percent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Percent{}, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Percent{}, domainerrors.ErrInvalidUnlockPercent
	}
	return NewPercent(value)
}

func MustPercent(raw string) Percent {
	p, err := ParsePercent(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Percent) Decimal() decimal.Decimal {
	return p.value
}

func (p Percent) String() string {
	return p.value.String()
}

func (p Percent) IsZero() bool {
	return p.value.IsZero()
}

// Of returns floor(amount * p / 100). The result never exceeds amount.
func (p Percent) Of(amount uint64) uint64 {
	if p.value.IsZero() || amount == 0 {
		return 0
	}
	base := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	share := base.Mul(p.value).Shift(-2).Floor().BigInt()
	if !share.IsUint64() {
		return amount
	}
	out := share.Uint64()
	if out > amount {
		return amount
	}
	return out
}
