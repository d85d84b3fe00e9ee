// Package schedule derives the unlock schedule of a single beneficiary.
//
// A schedule has a bonus round (index 0) released at the start time and
// RoundCount linear rounds spread over RoundSpan seconds. Round i unlocks at
// StartTime + floor(RoundSpan*i/RoundCount); the integer division truncates
// sub-second drift, so consecutive rounds may be up to one second apart from
// an even spacing but never go backwards.
package schedule

import (
	"iter"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
)

// Rounding selects how the linear total is split across rounds.
type Rounding string

const (
	// RoundingRemainderToLast gives every linear round Total/RoundCount and adds
	// the remainder to the final round, so the rounds sum to Total exactly.
	RoundingRemainderToLast Rounding = "remainder_to_last"
	// RoundingTruncate truncates every round independently. The residual
	// (at most RoundCount-1 units) is never unlocked. Kept for accounts that
	// must reproduce payouts of a deployment that used per-round division.
	RoundingTruncate Rounding = "truncate"
)

func (r Rounding) Valid() bool {
	return r == "" || r == RoundingRemainderToLast || r == RoundingTruncate
}

// Entry is one round of a schedule.
type Entry struct {
	Round       uint32
	UnlockTime  int64
	Entitlement uint64
}

// Params describe a beneficiary schedule.
type Params struct {
	StartTime      int64
	RoundCount     uint32
	RoundSpan      int64
	Total          uint64
	Bonus          uint64
	ConfirmedRound uint32
	Rounding       Rounding
}

func (p Params) Validate() error {
	if p.RoundCount == 0 {
		return domainerrors.ErrInvalidRoundCount
	}
	if p.RoundSpan < 0 {
		return domainerrors.ErrInvalidRoundSpan
	}
	if !p.Rounding.Valid() {
		return domainerrors.ErrInvalidRequest
	}
	if _, err := valueobjects.AddSeconds(p.StartTime, p.RoundSpan); err != nil {
		return err
	}
	return nil
}

// Generate returns the rounds from ConfirmedRound through RoundCount inclusive.
// The sequence is computed on demand and can be ranged over any number of times.
func Generate(p Params) (iter.Seq[Entry], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return func(yield func(Entry) bool) {
		for i := p.ConfirmedRound; i <= p.RoundCount; i++ {
			if !yield(p.entry(i)) {
				return
			}
			if i == p.RoundCount {
				// i++ would wrap when RoundCount is the max uint32.
				return
			}
		}
	}, nil
}

// Collect materialises a schedule.
func Collect(p Params) ([]Entry, error) {
	seq, err := Generate(p)
	if err != nil {
		return nil, err
	}
	size := 0
	if p.ConfirmedRound <= p.RoundCount {
		size = min(int(p.RoundCount-p.ConfirmedRound)+1, 1024)
	}
	entries := make([]Entry, 0, size)
	for entry := range seq {
		entries = append(entries, entry)
	}
	return entries, nil
}

// UnlockTime returns the unlock timestamp of round i.
func (p Params) UnlockTime(i uint32) int64 {
	// floor(span*i/n) <= span because i <= n, so the quotient always fits.
	offset, _ := valueobjects.MulDiv(uint64(p.RoundSpan), uint64(i), uint64(p.RoundCount))
	return p.StartTime + int64(offset)
}

// Entitlement returns the amount unlocked by round i.
func (p Params) Entitlement(i uint32) uint64 {
	if i == 0 {
		return p.Bonus
	}
	n := uint64(p.RoundCount)
	share := p.Total / n
	if i == p.RoundCount && p.rounding() == RoundingRemainderToLast {
		share += p.Total % n
	}
	return share
}

func (p Params) entry(i uint32) Entry {
	return Entry{
		Round:       i,
		UnlockTime:  p.UnlockTime(i),
		Entitlement: p.Entitlement(i),
	}
}

func (p Params) rounding() Rounding {
	if p.Rounding == "" {
		return RoundingRemainderToLast
	}
	return p.Rounding
}

// Sum adds up entitlements of entries unlocked at or before now whose round is
// not below minRound.
func Sum(entries iter.Seq[Entry], now int64, minRound uint32) (uint64, error) {
	var total uint64
	for entry := range entries {
		if entry.UnlockTime > now || entry.Round < minRound {
			continue
		}
		next, err := valueobjects.CheckedAdd(total, entry.Entitlement)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
