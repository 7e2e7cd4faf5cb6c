package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/store"
)

func seedActivity(t *testing.T, dbPath string, act record.DailyActivity) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.UpsertActivity(context.Background(), act))
}

func seedWeight(t *testing.T, dbPath string, w record.Weight) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.UpsertWeight(context.Background(), w))
}

func TestShowDay_RendersStoredRecord(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	seedActivity(t, db, record.DailyActivity{
		Date:             record.MustParseDate("2024-06-01"),
		Steps:            record.Int64(8000),
		IntensityMinutes: record.Int64(0),
	})

	out, err := execute(t, "", "--db", db, "show", "day", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity for 2024-06-01")
	assert.Contains(t, out, "8000")
	assert.Contains(t, out, "Intensity minutes", "a measured zero must render")
	assert.NotContains(t, out, "Total calories", "absent fields must not render")
}

func TestShowDay_MissingDay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "", "--db", db, "show", "day", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No activity stored for 2024-06-01")
}

func TestShowDay_JSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	seedActivity(t, db, record.DailyActivity{
		Date:  record.MustParseDate("2024-06-01"),
		Steps: record.Int64(8000),
	})

	out, err := execute(t, "", "--db", db, "--format", "json", "show", "day", "2024-06-01")
	require.NoError(t, err)

	var resp struct {
		Status string                `json:"status"`
		Data   *record.DailyActivity `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
	require.NotNil(t, resp.Data.Steps)
	assert.Equal(t, int64(8000), *resp.Data.Steps)
	assert.Nil(t, resp.Data.TotalCalories)
}

func TestShowDay_JSONMissingDayIsNull(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "", "--db", db, "--format", "json", "show", "day", "2024-06-01")
	require.NoError(t, err)

	var resp struct {
		Status string                `json:"status"`
		Data   *record.DailyActivity `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Data)
}

func TestShowDay_InvalidDateExitsTwo(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "", "--db", db, "show", "day", "June 1st")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShowWeight_RendersReading(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	seedWeight(t, db, record.Weight{
		Date:       record.MustParseDate("2024-06-01"),
		WeightKG:   80.5,
		SourceTime: time.Date(2024, time.June, 1, 7, 30, 0, 0, time.UTC),
	})

	out, err := execute(t, "", "--db", db, "show", "weight", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Weight for 2024-06-01")
	assert.Contains(t, out, "80.5")
	assert.Contains(t, out, "2024-06-01T07:30:00Z")
}

func TestShowWeight_MissingDay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "", "--db", db, "show", "weight", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No weight stored for 2024-06-01")
}

func TestShowSamples_RendersSeries(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	seedHeartRateDays(t, db, record.MustParseDate("2024-06-01"))

	out, err := execute(t, "", "--db", db, "show", "samples", "heart_rate", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "heart_rate samples for 2024-06-01 (1 reading(s))")
	assert.Contains(t, out, "08:00:00  64 bpm")
}

func TestShowSamples_JSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	seedHeartRateDays(t, db, record.MustParseDate("2024-06-01"))

	out, err := execute(t, "", "--db", db, "--format", "json", "show", "samples", "heart_rate", "2024-06-01")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   SampleDayReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, record.SampleHeartRate, resp.Data.Kind)
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Series.HeartRate, 1)
	assert.Equal(t, int64(64), resp.Data.Series.HeartRate[0].BPM)
}

func TestShowSamples_MissingDay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "", "--db", db, "show", "samples", "heart_rate", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No heart_rate samples stored for 2024-06-01")
}

func TestShowSamples_UnknownKindExitsTwo(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "", "--db", db, "show", "samples", "blood_sugar", "2024-06-01")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "blood_sugar")
}
