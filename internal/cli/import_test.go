package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweiler/vitalog/internal/config"
	"github.com/aweiler/vitalog/internal/importer"
	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/store"
	"github.com/aweiler/vitalog/internal/testutil"
)

// testConfig keeps importer log chatter out of test output.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.LogLevel = slog.LevelError
	return cfg
}

// execute runs a fresh root command and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(testConfig())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

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

// readDay opens the journal read-only and loads one stored day.
func readDay(t *testing.T, dbPath string, date record.Date) *record.DailyActivity {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	act, err := st.GetActivityByDate(context.Background(), date)
	require.NoError(t, err)
	return act
}

func TestImportPortal_CommitsAndReports(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n2024-06-02,9000\n")
	calories := writeFile(t, dir, "calories.csv", "Date,Total Calories\n2024-06-01,\"2,200\"\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "import", "portal", "--yes", steps, calories)
	require.NoError(t, err)

	assert.Contains(t, out, "Import preview (source: portal)")
	assert.Contains(t, out, "2024-06-01  metrics=2")
	assert.Contains(t, out, "2024-06-02  metrics=1")
	assert.Contains(t, out, "✓ Import complete")
	assert.Contains(t, out, "Added:        2")

	day1 := readDay(t, db, record.MustParseDate("2024-06-01"))
	require.NotNil(t, day1)
	require.NotNil(t, day1.Steps)
	assert.Equal(t, int64(8000), *day1.Steps)
	require.NotNil(t, day1.TotalCalories)
	assert.Equal(t, int64(2200), *day1.TotalCalories)

	day2 := readDay(t, db, record.MustParseDate("2024-06-02"))
	require.NotNil(t, day2)
	assert.Nil(t, day2.TotalCalories, "day without a calories row must stay absent")
}

func TestImportPortal_JSONFormat(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "--format", "json", "import", "portal", "--yes", steps)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "portal", resp.Data.Preview.Source)
	require.NotNil(t, resp.Data.Summary)
	assert.Equal(t, 1, resp.Data.Summary.Added)
}

func TestImportPortal_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "import", "portal", "--dry-run", steps)
	require.NoError(t, err)
	assert.Contains(t, out, "Import preview (source: portal)")
	assert.Contains(t, out, "Dry run; nothing written.")

	assert.Nil(t, readDay(t, db, record.MustParseDate("2024-06-01")))
}

func TestImportPortal_DeclineAbandons(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "n\n", "--db", db, "import", "portal", steps)
	require.NoError(t, err)
	assert.Contains(t, out, "Import abandoned; nothing written.")

	assert.Nil(t, readDay(t, db, record.MustParseDate("2024-06-01")))
}

func TestImportPortal_ConfirmCommits(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "y\n", "--db", db, "import", "portal", steps)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Import complete")

	require.NotNil(t, readDay(t, db, record.MustParseDate("2024-06-01")))
}

func TestImportPortal_EOFOnStdinAbandons(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "import", "portal", steps)
	require.NoError(t, err)
	assert.Contains(t, out, "Import abandoned; nothing written.")
}

func TestImportPortal_NoUsableDataExitsOne(t *testing.T) {
	dir := t.TempDir()
	junk := writeFile(t, dir, "junk.csv", "Foo,Bar\n1,2\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "import", "portal", "--yes", junk)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "NO_DATA_FOUND")
	assert.Contains(t, out, "✗ Import failed")
	assert.Contains(t, out, "junk.csv: unrecognized layout")
}

func TestImportPortal_NoUsableDataJSON(t *testing.T) {
	dir := t.TempDir()
	junk := writeFile(t, dir, "junk.csv", "Foo,Bar\n1,2\n")
	db := filepath.Join(dir, "journal.db")

	out, err := execute(t, "", "--db", db, "--format", "json", "import", "portal", "--yes", junk)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_DATA_FOUND", resp.Error.Code)
}

func TestImportSnapshot_CommitsWeight(t *testing.T) {
	backup := buildSnapshotDB(t,
		`CREATE TABLE weight_log (date TEXT, weight_kg REAL, body_fat_pct REAL, timestamp INTEGER)`,
		`INSERT INTO weight_log VALUES ('2024-06-01', 80.5, 21.0, 1717227000)`,
	)
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "", "--db", db, "import", "snapshot", "--yes", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Import preview (source: snapshot)")
	assert.Contains(t, out, "readings: 1")
	assert.Contains(t, out, "Added:        1")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	reading, err := st.GetWeightByDate(context.Background(), record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.InDelta(t, 80.5, reading.WeightKG, 1e-9)
}

func TestImportSnapshot_InvalidSinceExitsTwo(t *testing.T) {
	backup := buildSnapshotDB(t,
		`CREATE TABLE weight_log (date TEXT, weight_kg REAL, timestamp INTEGER)`,
	)
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "", "--db", db, "import", "snapshot", "--since", "June 1st", "--yes", backup)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImport_BadRetentionWindowExitsTwo(t *testing.T) {
	dir := t.TempDir()
	steps := writeFile(t, dir, "steps.csv", "Date,Steps\n2024-06-01,8000\n")
	db := filepath.Join(dir, "journal.db")

	_, err := execute(t, "", "--db", db, "import", "portal", "--retention-days", "0", "--yes", steps)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "retention window")
}

// runImportDirect drives runImport with injected seams, the way Execute
// cannot.
func runImportDirect(t *testing.T, opts *ImportOptions, src importer.Source) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	err := runImport(opts, cmd, src)
	return out.String(), err
}

func TestImport_RunTokenSurfacesInFailureOutput(t *testing.T) {
	dir := t.TempDir()
	junk := writeFile(t, dir, "junk.csv", "Foo,Bar\n1,2\n")

	opts := &ImportOptions{
		RootOptions:   &RootOptions{Format: "text", Database: filepath.Join(dir, "journal.db")},
		Yes:           true,
		RetentionDays: 75,
		Tokens:        importer.NewFixedTokens("run-cli-1"),
	}
	out, err := runImportDirect(t, opts, importer.PortalFiles(junk))
	require.Error(t, err)
	assert.Contains(t, out, "(run=run-cli-1)")
}

func TestImport_SnapshotRetentionHonorsClock(t *testing.T) {
	// 2024-06-10 relative to samples dated 2024-06-01 keeps them inside
	// any realistic window; the wall clock in 2026 would purge them.
	fixedNow := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	backup := buildSnapshotDB(t,
		`CREATE TABLE heart_rate_samples (timestamp INTEGER, bpm INTEGER)`,
		fmt.Sprintf(`INSERT INTO heart_rate_samples VALUES (%d, 62)`, 1717227000),
		fmt.Sprintf(`INSERT INTO heart_rate_samples VALUES (%d, 71)`, 1717231500),
	)
	db := filepath.Join(t.TempDir(), "journal.db")

	opts := &ImportOptions{
		RootOptions:   &RootOptions{Format: "json", Database: db},
		Yes:           true,
		RetentionDays: 75,
		Now:           testutil.FrozenClock(fixedNow),
	}
	out, err := runImportDirect(t, opts, importer.SnapshotFile(backup))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Summary)
	assert.Equal(t, 1, resp.Data.Summary.SampleDays)
	assert.Equal(t, 0, resp.Data.Summary.PurgedSampleDays)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	series, ok, err := st.GetSampleDay(context.Background(), record.SampleHeartRate, record.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, series.Len())
}
