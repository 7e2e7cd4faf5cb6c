package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/store"
	"github.com/aweiler/vitalog/internal/testutil"
)

// seedHeartRateDays writes one minimal heart-rate series per date.
func seedHeartRateDays(t *testing.T, dbPath string, dates ...record.Date) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	for _, date := range dates {
		series := record.HeartRateSeries([]record.HeartRateSample{
			{At: date.Time().Add(8 * time.Hour), BPM: 64},
		})
		require.NoError(t, st.ReplaceSamples(context.Background(), record.SampleHeartRate, date, series))
	}
}

func heartRateDates(t *testing.T, dbPath string) []record.Date {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	dates, err := st.SampleDates(context.Background(), record.SampleHeartRate)
	require.NoError(t, err)
	return dates
}

func TestPurge_SweepsOldDays(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	today := record.DateOf(time.Now())
	old := today.AddDays(-100)
	recent := today.AddDays(-10)
	seedHeartRateDays(t, db, old, recent)

	out, err := execute(t, "", "--db", db, "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Purge complete")
	assert.Contains(t, out, "heart_rate: 1")
	assert.Contains(t, out, "sleep_stage: 0")

	assert.Equal(t, []record.Date{recent}, heartRateDates(t, db))
}

func TestPurge_SecondSweepPurgesNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	today := record.DateOf(time.Now())
	seedHeartRateDays(t, db, today.AddDays(-100), today.AddDays(-10))

	_, err := execute(t, "", "--db", db, "purge")
	require.NoError(t, err)

	out, err := execute(t, "", "--db", db, "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "heart_rate: 0")
}

func TestPurge_JSONWithFixedClock(t *testing.T) {
	fixedNow := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	db := filepath.Join(t.TempDir(), "journal.db")
	// One day each side of the 75-day cutoff; the cutoff day itself stays.
	seedHeartRateDays(t, db,
		record.MustParseDate("2024-03-26"),
		record.MustParseDate("2024-03-27"),
	)

	opts := &PurgeOptions{
		RootOptions:   &RootOptions{Format: "json", Database: db},
		RetentionDays: 75,
		Now:           testutil.FrozenClock(fixedNow),
	}
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	require.NoError(t, runPurge(opts, cmd))

	var resp struct {
		Status string      `json:"status"`
		Data   PurgeReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, record.MustParseDate("2024-03-27"), resp.Data.Cutoff)
	assert.Equal(t, int64(1), resp.Data.Purged[record.SampleHeartRate])
	assert.Equal(t, int64(1), resp.Data.Total)

	assert.Equal(t, []record.Date{record.MustParseDate("2024-03-27")}, heartRateDates(t, db))
}

func TestPurge_BadRetentionWindowExitsTwo(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "", "--db", db, "purge", "--retention-days", "-5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "retention window")
}
