package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aweiler/vitalog/internal/record"
)

// scenario is a YAML-driven end-to-end merge fixture. Each import step
// writes its files to disk and runs a full Start/Commit cycle against
// one shared store, so fixtures can describe multi-import histories.
type scenario struct {
	Name    string           `yaml:"name"`
	Imports []scenarioImport `yaml:"imports"`
	Days    []scenarioDay    `yaml:"days"`
}

type scenarioImport struct {
	Files   map[string]string `yaml:"files"`
	Summary scenarioSummary   `yaml:"summary"`
}

type scenarioSummary struct {
	Added   int `yaml:"added"`
	Updated int `yaml:"updated"`
	Skipped int `yaml:"skipped"`
}

// scenarioDay asserts the final stored record for one date. A field
// omitted from the fixture must be absent from the stored record.
type scenarioDay struct {
	Date             string   `yaml:"date"`
	Steps            *int64   `yaml:"steps"`
	TotalCalories    *int64   `yaml:"total_calories"`
	IntensityMinutes *int64   `yaml:"intensity_minutes"`
	SleepSeconds     *int64   `yaml:"sleep_seconds"`
	EnergyScore      *int64   `yaml:"energy_score"`
	DistanceKM       *float64 `yaml:"distance_km"`
}

func TestImportScenarios(t *testing.T) {
	dir := filepath.Join("testdata", "scenarios")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)

		var sc scenario
		require.NoError(t, yaml.Unmarshal(raw, &sc), entry.Name())
		require.NotEmpty(t, sc.Name, "%s: scenario needs a name", entry.Name())

		t.Run(sc.Name, func(t *testing.T) {
			imp, s := newTestImporter(t)
			ctx := context.Background()

			for i, step := range sc.Imports {
				sum := runImport(t, imp, PortalFiles(writeFiles(t, step.Files)...))
				assert.Equal(t, step.Summary.Added, sum.Added, "import %d: added", i)
				assert.Equal(t, step.Summary.Updated, sum.Updated, "import %d: updated", i)
				assert.Equal(t, step.Summary.Skipped, sum.Skipped, "import %d: skipped", i)
			}

			for _, want := range sc.Days {
				date := record.MustParseDate(want.Date)
				got, err := s.GetActivityByDate(ctx, date)
				require.NoError(t, err)
				require.NotNil(t, got, "day %s missing from store", want.Date)

				assertIntField(t, want.Date, "steps", want.Steps, got.Steps)
				assertIntField(t, want.Date, "total_calories", want.TotalCalories, got.TotalCalories)
				assertIntField(t, want.Date, "intensity_minutes", want.IntensityMinutes, got.IntensityMinutes)
				assertIntField(t, want.Date, "sleep_seconds", want.SleepSeconds, got.SleepSeconds)
				assertIntField(t, want.Date, "energy_score", want.EnergyScore, got.EnergyScore)
				assertFloatField(t, want.Date, "distance_km", want.DistanceKM, got.DistanceKM)
			}
		})
	}
}

func assertIntField(t *testing.T, date, name string, want, got *int64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, "%s: %s should be absent", date, name)
		return
	}
	require.NotNil(t, got, "%s: %s should be present", date, name)
	assert.Equal(t, *want, *got, "%s: %s", date, name)
}

func assertFloatField(t *testing.T, date, name string, want, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, "%s: %s should be absent", date, name)
		return
	}
	require.NotNil(t, got, "%s: %s should be present", date, name)
	assert.InDelta(t, *want, *got, 1e-9, "%s: %s", date, name)
}
