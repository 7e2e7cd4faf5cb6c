// Package catalog holds the fixed set of known portal export layouts.
//
// The layouts live in an embedded CUE file so the set is schema-checked:
// every layout must name its category, its date column candidates, its date
// formats, and the metric columns it feeds. The portal parser matches a
// downloaded file against the compiled catalog by header inspection.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed layouts.cue
var layoutsCUE string

// Field names a raw per-day measurement slot fed by a portal column.
// Values are in source units; normalization converts them later.
type Field string

const (
	FieldSteps            Field = "steps"
	FieldTotalCalories    Field = "total_calories"
	FieldActiveCalories   Field = "active_calories"
	FieldRestingCalories  Field = "resting_calories"
	FieldIntensityMinutes Field = "intensity_minutes"
	FieldDistanceMeters   Field = "distance_meters"
	FieldFloorsClimbed    Field = "floors_climbed"
	FieldRestingHeartRate Field = "resting_heart_rate"
	FieldMaxHeartRate     Field = "max_heart_rate"
	FieldStressLevel      Field = "stress_level"
	FieldEnergyScore      Field = "energy_score"
	FieldSleepHours       Field = "sleep_hours"
	FieldHRVOvernight     Field = "hrv_overnight_ms"
	FieldHRVWeeklyAvg     Field = "hrv_weekly_avg_ms"
)

var knownFields = map[Field]bool{
	FieldSteps:            true,
	FieldTotalCalories:    true,
	FieldActiveCalories:   true,
	FieldRestingCalories:  true,
	FieldIntensityMinutes: true,
	FieldDistanceMeters:   true,
	FieldFloorsClimbed:    true,
	FieldRestingHeartRate: true,
	FieldMaxHeartRate:     true,
	FieldStressLevel:      true,
	FieldEnergyScore:      true,
	FieldSleepHours:       true,
	FieldHRVOvernight:     true,
	FieldHRVWeeklyAvg:     true,
}

// Valid reports whether f is a known raw field.
func (f Field) Valid() bool {
	return knownFields[f]
}

// MetricColumn maps one export column onto a raw field. Scale multiplies
// the parsed value before it enters the field bag (default 1), for layouts
// whose column unit differs from the field's source unit.
type MetricColumn struct {
	Column string
	Field  Field
	Scale  float64
}

// FileLayout describes one known export category: how to find its date
// column, how to parse the dates, and which columns carry metrics.
type FileLayout struct {
	Name        string
	DateColumns []string
	DateFormats []string
	Metrics     []MetricColumn
}

// Catalog is the compiled set of known layouts.
type Catalog struct {
	Layouts []FileLayout
}

// Lookup returns the layout with the given category name.
func (c *Catalog) Lookup(name string) (*FileLayout, bool) {
	for i := range c.Layouts {
		if c.Layouts[i].Name == name {
			return &c.Layouts[i], true
		}
	}
	return nil, false
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Compile(layoutsCUE)
})

// Default returns the catalog compiled from the embedded layout file.
// The result is memoized; compilation runs once per process.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// Compile parses CUE source into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func Compile(src string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	layoutsVal := v.LookupPath(cue.ParsePath("layouts"))
	if !layoutsVal.Exists() {
		return nil, &CompileError{
			Field:   "layouts",
			Message: "layouts list is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := layoutsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{}
	seen := make(map[string]bool)
	for iter.Next() {
		layout, err := parseLayout(iter.Value())
		if err != nil {
			return nil, err
		}
		if seen[layout.Name] {
			return nil, &CompileError{
				Field:   "layouts",
				Message: fmt.Sprintf("duplicate layout name %q", layout.Name),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[layout.Name] = true
		cat.Layouts = append(cat.Layouts, layout)
	}

	if len(cat.Layouts) == 0 {
		return nil, &CompileError{
			Field:   "layouts",
			Message: "at least one layout is required",
			Pos:     layoutsVal.Pos(),
		}
	}
	return cat, nil
}

// parseLayout extracts a single layout definition.
func parseLayout(v cue.Value) (FileLayout, error) {
	var layout FileLayout

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return layout, &CompileError{
			Field:   "name",
			Message: "layout name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return layout, formatCUEError(err)
	}
	layout.Name = name

	layout.DateColumns, err = parseStringList(v, "date_columns")
	if err != nil {
		return layout, err
	}
	if len(layout.DateColumns) == 0 {
		return layout, &CompileError{
			Field:   fmt.Sprintf("%s.date_columns", name),
			Message: "at least one date column candidate is required",
			Pos:     v.Pos(),
		}
	}

	layout.DateFormats, err = parseStringList(v, "date_formats")
	if err != nil {
		return layout, err
	}
	if len(layout.DateFormats) == 0 {
		return layout, &CompileError{
			Field:   fmt.Sprintf("%s.date_formats", name),
			Message: "at least one date format is required",
			Pos:     v.Pos(),
		}
	}

	metricsVal := v.LookupPath(cue.ParsePath("metrics"))
	if !metricsVal.Exists() {
		return layout, &CompileError{
			Field:   fmt.Sprintf("%s.metrics", name),
			Message: "layout metrics are required",
			Pos:     v.Pos(),
		}
	}
	metricIter, err := metricsVal.List()
	if err != nil {
		return layout, formatCUEError(err)
	}
	for metricIter.Next() {
		metric, err := parseMetric(metricIter.Value(), name)
		if err != nil {
			return layout, err
		}
		layout.Metrics = append(layout.Metrics, metric)
	}
	if len(layout.Metrics) == 0 {
		return layout, &CompileError{
			Field:   fmt.Sprintf("%s.metrics", name),
			Message: "at least one metric column is required",
			Pos:     metricsVal.Pos(),
		}
	}

	return layout, nil
}

// parseMetric extracts a single column-to-field mapping.
func parseMetric(v cue.Value, layoutName string) (MetricColumn, error) {
	var metric MetricColumn

	column, err := v.LookupPath(cue.ParsePath("column")).String()
	if err != nil {
		return metric, formatCUEError(err)
	}
	metric.Column = column

	fieldStr, err := v.LookupPath(cue.ParsePath("field")).String()
	if err != nil {
		return metric, formatCUEError(err)
	}
	metric.Field = Field(fieldStr)
	if !metric.Field.Valid() {
		return metric, &CompileError{
			Field:   fmt.Sprintf("%s.metrics.%s", layoutName, column),
			Message: fmt.Sprintf("unknown field %q", fieldStr),
			Pos:     v.Pos(),
		}
	}

	metric.Scale = 1
	scaleVal := v.LookupPath(cue.ParsePath("scale"))
	if scaleVal.Exists() {
		scale, err := scaleVal.Float64()
		if err != nil {
			return metric, formatCUEError(err)
		}
		if scale <= 0 {
			return metric, &CompileError{
				Field:   fmt.Sprintf("%s.metrics.%s", layoutName, column),
				Message: fmt.Sprintf("scale must be positive, got %v", scale),
				Pos:     scaleVal.Pos(),
			}
		}
		metric.Scale = scale
	}

	return metric, nil
}

// parseStringList reads an optional list of strings at the given path.
func parseStringList(v cue.Value, path string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
