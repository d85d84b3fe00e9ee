package schedule

import (
	"math"
	"testing"

	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRejectsZeroRoundCount(t *testing.T) {
	_, err := Generate(Params{StartTime: 100, RoundCount: 0, RoundSpan: 10, Total: 10})
	require.ErrorIs(t, err, domainerrors.ErrInvalidRoundCount)
	assert.True(t, domainerrors.IsConfiguration(err))
}

func TestGenerateRejectsNegativeSpan(t *testing.T) {
	_, err := Generate(Params{StartTime: 100, RoundCount: 2, RoundSpan: -1, Total: 10})
	require.ErrorIs(t, err, domainerrors.ErrInvalidRoundSpan)
}

func TestGenerateRejectsEndTimeOverflow(t *testing.T) {
	_, err := Generate(Params{StartTime: math.MaxInt64 - 5, RoundCount: 2, RoundSpan: 10, Total: 10})
	require.ErrorIs(t, err, domainerrors.ErrOverflow)
}

func TestGenerateUnlockTimesTruncate(t *testing.T) {
	entries, err := Collect(Params{StartTime: 1000, RoundCount: 3, RoundSpan: 10, Total: 9})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	times := make([]int64, 0, len(entries))
	for _, entry := range entries {
		times = append(times, entry.UnlockTime)
	}
	assert.Equal(t, []int64{1000, 1003, 1006, 1010}, times)
}

func TestGenerateTimestampsNeverDecrease(t *testing.T) {
	cases := []Params{
		{StartTime: 0, RoundCount: 7, RoundSpan: 100},
		{StartTime: 1_700_000_000, RoundCount: 12, RoundSpan: 31_536_000},
		{StartTime: 5, RoundCount: 1000, RoundSpan: 999},
		{StartTime: 5, RoundCount: 3, RoundSpan: 0},
		{StartTime: 0, RoundCount: 4, RoundSpan: math.MaxInt64},
	}
	for _, params := range cases {
		entries, err := Collect(params)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		for i := 1; i < len(entries); i++ {
			assert.GreaterOrEqual(t, entries[i].UnlockTime, entries[i-1].UnlockTime)
			assert.Equal(t, entries[i-1].Round+1, entries[i].Round)
		}
		assert.Equal(t, params.StartTime, entries[0].UnlockTime)
		assert.Equal(t, params.StartTime+params.RoundSpan, entries[len(entries)-1].UnlockTime)
	}
}

func TestGenerateRemainderGoesToLastRound(t *testing.T) {
	entries, err := Collect(Params{StartTime: 0, RoundCount: 3, RoundSpan: 30, Total: 10, Bonus: 2})
	require.NoError(t, err)

	amounts := make([]uint64, 0, len(entries))
	var total uint64
	for _, entry := range entries {
		amounts = append(amounts, entry.Entitlement)
		total += entry.Entitlement
	}
	assert.Equal(t, []uint64{2, 3, 3, 4}, amounts)
	assert.Equal(t, uint64(12), total)
}

func TestGenerateTruncateKeepsResidual(t *testing.T) {
	params := Params{StartTime: 0, RoundCount: 10, RoundSpan: 100, Total: 1_000_003, Rounding: RoundingTruncate}
	seq, err := Generate(params)
	require.NoError(t, err)

	total, err := Sum(seq, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), total)
	assert.Less(t, params.Total-total, uint64(params.RoundCount))
}

func TestGenerateStartsAtConfirmedRound(t *testing.T) {
	entries, err := Collect(Params{StartTime: 0, RoundCount: 5, RoundSpan: 50, Total: 50, ConfirmedRound: 3})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint32(3), entries[0].Round)
	assert.Equal(t, uint32(5), entries[2].Round)

	past, err := Collect(Params{StartTime: 0, RoundCount: 5, RoundSpan: 50, Total: 50, ConfirmedRound: 6})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestGenerateIsRestartableAndLazy(t *testing.T) {
	seq, err := Generate(Params{StartTime: 0, RoundCount: 4, RoundSpan: 40, Total: 40})
	require.NoError(t, err)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 5, first)
	assert.Equal(t, first, second)

	seen := 0
	for entry := range seq {
		seen++
		if entry.Round == 1 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestGenerateHandlesMaxRoundCount(t *testing.T) {
	seq, err := Generate(Params{StartTime: 0, RoundCount: math.MaxUint32, RoundSpan: 10, Total: 1, ConfirmedRound: math.MaxUint32 - 1})
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestSumHonoursTimeAndRoundFloor(t *testing.T) {
	params := Params{StartTime: 0, RoundCount: 4, RoundSpan: 400, Total: 400, Bonus: 40}
	seq, err := Generate(params)
	require.NoError(t, err)

	total, err := Sum(seq, 200, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(40+100+100), total)

	total, err = Sum(seq, 400, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), total)
}
