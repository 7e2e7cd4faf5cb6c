package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweiler/vitalog/internal/normalize"
	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/store"
	"github.com/aweiler/vitalog/internal/testutil"
)

// fixedNow pins "today" so retention math is reproducible.
var fixedNow = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

// testLogger discards output; run logs are exercised, not asserted.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImporter(t *testing.T, opts ...Option) (*Importer, *store.Store) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := []Option{
		WithClock(testutil.FrozenClock(fixedNow)),
		WithTokens(NewFixedTokens("run-1", "run-2", "run-3", "run-4")),
		WithLogger(testLogger()),
	}
	return New(s, append(base, opts...)...), s
}

// writeFiles materializes portal export fixtures and returns their
// paths in a deterministic order.
func writeFiles(t *testing.T, files map[string]string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func runImport(t *testing.T, imp *Importer, src Source) Summary {
	t.Helper()

	ctx := context.Background()
	_, err := imp.Start(ctx, src)
	require.NoError(t, err)
	sum, err := imp.Commit(ctx)
	require.NoError(t, err)
	return sum
}

// buildSnapshotDB creates a throwaway snapshot database from the given
// statements and returns its path.
func buildSnapshotDB(t *testing.T, stmts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "backup.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestImportPortal_ComposesAcrossFiles(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()

	paths := writeFiles(t, map[string]string{
		"steps.csv":    "Date,Steps\n2024-06-01,8000\n2024-06-02,9000\n",
		"calories.csv": "Date,Total Calories\n2024-06-01,\"2,200\"\n",
	})
	sum := runImport(t, imp, PortalFiles(paths...))

	assert.Equal(t, 2, sum.Added)
	assert.Equal(t, 0, sum.Updated)
	assert.Equal(t, 0, sum.Skipped)
	assert.Empty(t, sum.Warnings)
	assert.Equal(t, StateSummarized, imp.State())

	day1, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.NotNil(t, day1)
	require.NotNil(t, day1.Steps)
	assert.Equal(t, int64(8000), *day1.Steps)
	require.NotNil(t, day1.TotalCalories)
	assert.Equal(t, int64(2200), *day1.TotalCalories)

	day2, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-02"))
	require.NoError(t, err)
	require.NotNil(t, day2)
	require.NotNil(t, day2.Steps)
	assert.Equal(t, int64(9000), *day2.Steps)
	assert.Nil(t, day2.TotalCalories, "calories were never reported for this day")
}

func TestImport_StateMachine(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	assert.Equal(t, StateIdle, imp.State())

	paths := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,8000\n",
	})
	preview, err := imp.Start(ctx, PortalFiles(paths...))
	require.NoError(t, err)
	assert.Equal(t, StatePreviewReady, imp.State())
	assert.Equal(t, normalize.SourcePortal, preview.Source)
	assert.Len(t, preview.Days, 1)

	_, err = imp.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSummarized, imp.State())
}

func TestImport_SecondRunChangesNothing(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()

	files := map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,8000\n2024-06-02,9000\n",
	}
	first := runImport(t, imp, PortalFiles(writeFiles(t, files)...))
	require.Equal(t, 2, first.Added)

	before, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)

	second := runImport(t, imp, PortalFiles(writeFiles(t, files)...))
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped, "already-stored days are reported as skipped")

	after, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImport_PartialImportsCompose(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()

	stepsOnly := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,8000\n",
	})
	first := runImport(t, imp, PortalFiles(stepsOnly...))
	require.Equal(t, 1, first.Added)

	sleepOnly := writeFiles(t, map[string]string{
		"sleep.csv": "Date,Sleep Duration (h)\n2024-06-01,7.5\n",
	})
	second := runImport(t, imp, PortalFiles(sleepOnly...))
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Updated)

	day, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.NotNil(t, day)
	require.NotNil(t, day.Steps)
	assert.Equal(t, int64(8000), *day.Steps, "the sleep import must not wipe steps")
	require.NotNil(t, day.SleepSeconds)
	assert.Equal(t, int64(27000), *day.SleepSeconds)
}

func TestImport_ZeroIntensityOverwrites(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()
	date := record.MustParseDate("2024-06-01")

	require.NoError(t, s.UpsertActivity(ctx, record.DailyActivity{
		Date:             date,
		Steps:            record.Int64(8000),
		IntensityMinutes: record.Int64(12),
	}))

	paths := writeFiles(t, map[string]string{
		"intensity.csv": "Date,Intensity Minutes\n2024-06-01,0\n",
	})
	sum := runImport(t, imp, PortalFiles(paths...))
	assert.Equal(t, 1, sum.Updated)

	day, err := s.GetActivityByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, day.IntensityMinutes)
	assert.Equal(t, int64(0), *day.IntensityMinutes, "an explicit zero is a real rest day")
	require.NotNil(t, day.Steps)
	assert.Equal(t, int64(8000), *day.Steps)
}

func TestImport_AbandonIsPure(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()

	paths := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,8000\n",
	})
	_, err := imp.Start(ctx, PortalFiles(paths...))
	require.NoError(t, err)

	imp.Abandon()
	assert.Equal(t, StateIdle, imp.State())

	day, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	assert.Nil(t, day, "an abandoned preview must not write anything")

	_, err = imp.Commit(ctx)
	assert.Error(t, err, "the abandoned preview is gone")
}

func TestImport_CommitWithoutPreview(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Commit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pending preview")
}

func TestImport_StartWhilePreviewPending(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	paths := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,8000\n",
	})
	_, err := imp.Start(ctx, PortalFiles(paths...))
	require.NoError(t, err)

	_, err = imp.Start(ctx, PortalFiles(paths...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview is pending")
}

func TestImport_UnrecognizedFilesFailWithNoData(t *testing.T) {
	imp, _ := newTestImporter(t)

	paths := writeFiles(t, map[string]string{
		"junk.csv": "Foo,Bar\n1,2\n",
	})
	_, err := imp.Start(context.Background(), PortalFiles(paths...))
	require.Error(t, err)
	assert.True(t, IsNoDataFound(err))
	assert.Equal(t, StateFailed, imp.State())

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "run-1", ie.RunToken)
	require.Len(t, ie.Warnings, 1)
	assert.Contains(t, ie.Warnings[0], "junk.csv: unrecognized layout")
}

func TestImportSnapshot_WeightRecencyWins(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()
	date := record.MustParseDate("2024-06-01")

	stored := record.Weight{
		Date:       date,
		WeightKG:   81.0,
		SourceTime: time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertWeight(ctx, stored))

	// The snapshot reading is from 07:30 the same day, older than the
	// stored 09:00 one.
	path := buildSnapshotDB(t,
		`CREATE TABLE weight_log (date TEXT, weight_kg REAL, timestamp INTEGER)`,
		`INSERT INTO weight_log VALUES ('2024-06-01', 80.5, 1717227000)`,
	)
	sum := runImport(t, imp, SnapshotFile(path))

	assert.Equal(t, 0, sum.Added)
	assert.Equal(t, 0, sum.Updated)
	assert.Equal(t, 1, sum.Skipped)

	got, err := s.GetWeightByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 81.0, got.WeightKG, "the older reading must not clobber the stored one")
}

func TestImportSnapshot_RetentionPurge(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()
	today := record.DateOf(fixedNow)

	// One heart-rate sample per day for the 100 days before today.
	stmts := []string{
		`CREATE TABLE heart_rate_samples (timestamp INTEGER, bpm INTEGER)`,
	}
	for i := 1; i <= 100; i++ {
		day := today.AddDays(-i)
		epoch := day.Time().Unix() + 8*3600
		stmts = append(stmts, fmt.Sprintf(
			`INSERT INTO heart_rate_samples VALUES (%d, %d)`, epoch, 60+i%20))
	}
	path := buildSnapshotDB(t, stmts...)

	sum := runImport(t, imp, SnapshotFile(path))
	assert.Equal(t, 100, sum.SampleDays)
	assert.Equal(t, 25, sum.PurgedSampleDays, "days older than the 75-day window are swept")

	dates, err := s.SampleDates(ctx, record.SampleHeartRate)
	require.NoError(t, err)
	require.Len(t, dates, 75)

	cutoff := today.AddDays(-75)
	assert.Equal(t, cutoff, dates[0], "the cutoff day itself survives")
	for _, d := range dates {
		assert.False(t, d.Before(cutoff), "date %s is older than the retention window", d)
	}
}

func TestImportSnapshot_RetentionWindowSlides(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewManualClock(fixedNow)
	imp := New(s,
		WithClock(clock.Now),
		WithTokens(NewFixedTokens("run-1", "run-2")),
		WithLogger(testLogger()),
	)
	ctx := context.Background()

	day := record.DateOf(fixedNow).AddDays(-70)
	path := buildSnapshotDB(t,
		`CREATE TABLE heart_rate_samples (timestamp INTEGER, bpm INTEGER)`,
		fmt.Sprintf(`INSERT INTO heart_rate_samples VALUES (%d, 62)`, day.Time().Unix()+8*3600),
	)

	first := runImport(t, imp, SnapshotFile(path))
	require.Equal(t, 1, first.SampleDays)
	require.Equal(t, 0, first.PurgedSampleDays, "the day is inside the window on the first run")

	// Ten days later the same day falls outside the 75-day window, so
	// re-importing it sweeps it right back out.
	clock.Advance(10 * 24 * time.Hour)
	second := runImport(t, imp, SnapshotFile(path))
	assert.Equal(t, 1, second.SampleDays)
	assert.Equal(t, 1, second.PurgedSampleDays)

	dates, err := s.SampleDates(ctx, record.SampleHeartRate)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

// cancelingStore cancels the run's context after a fixed number of
// successful activity writes.
type cancelingStore struct {
	Store
	cancel context.CancelFunc
	after  int
	writes int
}

func (s *cancelingStore) UpsertActivity(ctx context.Context, act record.DailyActivity) error {
	if err := s.Store.UpsertActivity(ctx, act); err != nil {
		return err
	}
	s.writes++
	if s.writes == s.after {
		s.cancel()
	}
	return nil
}

func TestImport_CancellationKeepsWrittenWork(t *testing.T) {
	real, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { real.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapped := &cancelingStore{Store: real, cancel: cancel, after: 2}
	imp := New(wrapped,
		WithClock(testutil.FrozenClock(fixedNow)),
		WithTokens(NewFixedTokens("run-1")),
		WithLogger(testLogger()),
	)

	paths := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,1000\n2024-06-02,2000\n2024-06-03,3000\n2024-06-04,4000\n",
	})
	_, err = imp.Start(ctx, PortalFiles(paths...))
	require.NoError(t, err)

	sum, err := imp.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateFailed, imp.State())
	assert.Equal(t, 2, sum.Added, "the summary counts what landed before the cancellation")

	day2, err := real.GetActivityByDate(context.Background(), record.MustParseDate("2024-06-02"))
	require.NoError(t, err)
	assert.NotNil(t, day2, "work written before the cancellation is retained")

	day3, err := real.GetActivityByDate(context.Background(), record.MustParseDate("2024-06-03"))
	require.NoError(t, err)
	assert.Nil(t, day3, "nothing is written after the cancellation point")
}

// failingStore rejects the activity write for one date.
type failingStore struct {
	Store
	failOn record.Date
}

func (s *failingStore) UpsertActivity(ctx context.Context, act record.DailyActivity) error {
	if act.Date == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.UpsertActivity(ctx, act)
}

func TestImport_StorageFailureKeepsCommittedRecords(t *testing.T) {
	real, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { real.Close() })

	wrapped := &failingStore{Store: real, failOn: record.MustParseDate("2024-06-03")}
	imp := New(wrapped,
		WithClock(testutil.FrozenClock(fixedNow)),
		WithTokens(NewFixedTokens("run-1")),
		WithLogger(testLogger()),
	)
	ctx := context.Background()

	paths := writeFiles(t, map[string]string{
		"steps.csv": "Date,Steps\n2024-06-01,1000\n2024-06-02,2000\n2024-06-03,3000\n",
	})
	_, err = imp.Start(ctx, PortalFiles(paths...))
	require.NoError(t, err)

	sum, err := imp.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsStorageFailure(err))
	assert.Equal(t, StateFailed, imp.State())
	assert.Equal(t, 2, sum.Added, "records committed before the failure stay committed")

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "run-1", ie.RunToken)
	assert.Contains(t, ie.Message, "2024-06-03")

	day1, err := real.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	assert.NotNil(t, day1)
}

func TestImport_MalformedRecordIsWarnedAndSkipped(t *testing.T) {
	imp, s := newTestImporter(t)
	ctx := context.Background()

	bundle := &normalize.Bundle{
		Source: normalize.SourcePortal,
		Activities: []record.DailyActivity{
			{Date: record.Date{}, Steps: record.Int64(100)},
			{Date: record.MustParseDate("2024-06-01"), Steps: record.Int64(8000)},
		},
	}
	r := &run{token: "run-x", log: testLogger()}

	var sum Summary
	require.NoError(t, imp.mergeRecords(ctx, r, bundle, &sum))
	assert.Equal(t, 1, sum.Added, "the valid record still merges")
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, sum.Warnings, 1)
	assert.Contains(t, sum.Warnings[0], "unusable date")

	day, err := s.GetActivityByDate(ctx, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	assert.NotNil(t, day)
}
