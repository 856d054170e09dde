package archive

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fevolq/money/internal/core"
)

func testSnapshots(t *testing.T) *Snapshots {
	t.Helper()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return NewSnapshots(fs)
}

func TestWriteAndReadDaily(t *testing.T) {
	s := testSnapshots(t)
	ctx := context.Background()

	records := []core.Valuation{{
		Class:        core.ClassFund,
		Code:         "161725",
		Name:         "招商中证白酒",
		CurrentWorth: decimal.RequireFromString("1.2"),
		Rate:         "2.34%",
	}}

	require.NoError(t, s.WriteDaily(ctx, core.ClassFund, "2023-11-21", records))

	got, err := s.ReadDaily(ctx, core.ClassFund, "2023-11-21")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "161725", got[0].Code)
	assert.Equal(t, "2.34%", got[0].Rate)
}

func TestReadDailyMissing(t *testing.T) {
	s := testSnapshots(t)

	_, err := s.ReadDaily(context.Background(), core.ClassFund, "2023-01-01")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDatesSortedPerClass(t *testing.T) {
	s := testSnapshots(t)
	ctx := context.Background()

	for _, date := range []string{"2023-11-21", "2023-11-19", "2023-11-20"} {
		require.NoError(t, s.WriteDaily(ctx, core.ClassStock, date, nil))
	}
	require.NoError(t, s.WriteDaily(ctx, core.ClassFund, "2023-11-22", nil))

	dates, err := s.Dates(ctx, core.ClassStock)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11-19", "2023-11-20", "2023-11-21"}, dates)
}
