package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScheduleJSON(t *testing.T) {
	out, err := run(t, "schedule",
		"--allocated", "1000000",
		"--percent", "10",
		"--rounds", "10",
		"--span", "10000",
		"--activation", "1000",
		"--json",
	)
	require.NoError(t, err)

	var rows []scheduleRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 11)
	assert.Equal(t, scheduleRow{Round: 0, UnlockTime: 1000, Entitlement: 100_000}, rows[0])
	assert.Equal(t, int64(2000), rows[1].UnlockTime)
	assert.Equal(t, uint64(100_000), rows[1].Entitlement)
	assert.Equal(t, int64(11000), rows[10].UnlockTime)

	var total uint64
	for _, row := range rows {
		total += row.Entitlement
	}
	assert.Equal(t, uint64(1_100_000), total)
}

func TestScheduleTableTruncates(t *testing.T) {
	out, err := run(t, "schedule", "--allocated", "100", "--rounds", "1000", "--span", "1000", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Entitlement")
	assert.Contains(t, out, "showing first 5 of 1000 rounds")
}

func TestScheduleRejectsInvalidParameters(t *testing.T) {
	_, err := run(t, "schedule", "--allocated", "100", "--rounds", "0")
	assert.Error(t, err)

	_, err = run(t, "schedule", "--allocated", "100", "--percent", "101")
	assert.Error(t, err)
}

func TestReconcileReportsClaimableAmount(t *testing.T) {
	out, err := run(t, "reconcile",
		"--allocated", "1000000",
		"--rounds", "10",
		"--span", "10000",
		"--decimals", "6",
		"--now", "20000",
		"--claimed", "200000",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "800000")
	assert.Contains(t, out, "800000000000")
	assert.Contains(t, out, "claimable 800000 base units")
}

func TestReconcileNothingToClaim(t *testing.T) {
	out, err := run(t, "reconcile", "--allocated", "1000", "--rounds", "4", "--span", "100", "--lockup", "50", "--now", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to claim")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vestingctl dev")
}
