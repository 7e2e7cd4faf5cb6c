package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aweiler/vitalog/internal/record"
)

// ErrNoTables reports that the snapshot holds no recognizable wellness
// table of any category.
var ErrNoTables = errors.New("no recognizable wellness tables in snapshot")

// Options bound an extraction run.
type Options struct {
	// Since drops rows dated earlier than the given date when set, so a
	// multi-year snapshot can be read without touching old history.
	Since record.Date
}

// Extract unwraps the backup at path, opens the database read-only, and
// streams every recognizable wellness category into a Snapshot. A table
// that fails to read is omitted with a warning; ErrNoTables is returned
// only when nothing in the schema matches.
func Extract(ctx context.Context, path string, opts Options) (*Snapshot, error) {
	dbPath, cleanup, err := unwrap(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	db, err := openReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("introspect snapshot: %w", err)
	}

	snap := NewSnapshot()
	claimed := make(map[string]bool)
	matched := 0

	steps := []struct {
		category string
		match    func(tableInfo) (*tableMatch, bool)
		extract  func(context.Context, *sql.DB, *tableMatch, Options, *Snapshot) error
	}{
		{"daily summaries", matchDaily, extractDaily},
		{"weight readings", matchWeight, extractWeights},
		{"heart-rate samples", matchHeartRate, extractHeartRate},
		{"sleep stages", matchSleepStages, extractSleepStages},
		{"step samples", matchStepSamples, extractStepSamples},
		{"activity sessions", matchActivities, extractActivities},
	}

	for _, step := range steps {
		m, ok := selectTable(tables, claimed, step.match)
		if !ok {
			continue
		}
		matched++
		if err := step.extract(ctx, db, m, opts, snap); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			snap.warnf("%s: %s omitted: %v", m.table, step.category, err)
		}
	}

	if matched == 0 {
		return nil, ErrNoTables
	}
	return snap, nil
}

func openReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to snapshot database: %w", err)
	}
	return db, nil
}

// scanRow reads the current row into a slice of dynamically-typed values.
func scanRow(rows *sql.Rows, n int) ([]any, error) {
	dest := make([]any, n)
	ptrs := make([]any, n)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return dest, nil
}

// planFor builds the streaming query for a match: ordered by the date
// column, bounded in SQL when the column stores ISO text.
func planFor(m *tableMatch, roleOrder []string, opts Options, rowidTie bool) queryPlan {
	cols := []string{m.dateCol}
	for _, role := range roleOrder {
		if col, ok := m.roles[role]; ok && col != m.dateCol {
			cols = append(cols, col)
		}
	}
	plan := queryPlan{table: m.table, columns: cols, orderCol: m.dateCol, rowidTie: rowidTie}
	if !opts.Since.IsZero() && textual(m.dateType) {
		plan.boundCol = m.dateCol
		plan.boundVal = opts.Since.String()
	}
	return plan
}

// roleIndex maps each selected role to its column position in the plan.
func roleIndex(m *tableMatch, roleOrder []string) map[string]int {
	idx := make(map[string]int)
	pos := 1 // 0 is the date column
	for _, role := range roleOrder {
		if col, ok := m.roles[role]; ok {
			if col == m.dateCol {
				idx[role] = 0
				continue
			}
			idx[role] = pos
			pos++
		}
	}
	return idx
}

var aggregateRoleOrder = []string{
	"steps",
	"total_calories",
	"active_calories",
	"resting_calories",
	"intensity_minutes",
	"distance_meters",
	"floors",
	"resting_heart_rate",
	"max_heart_rate",
	"stress",
	"energy",
	"sleep_seconds",
	"hrv_overnight",
	"hrv_weekly",
}

func extractDaily(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	plan := planFor(m, aggregateRoleOrder, opts, false)
	idx := roleIndex(m, aggregateRoleOrder)

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		date, ok := asDate(vals[0])
		if !ok {
			skipped++
			continue
		}
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}

		present := false
		for _, role := range aggregateRoleOrder {
			if i, ok := idx[role]; ok && i > 0 && vals[i] != nil {
				present = true
				break
			}
		}
		if !present {
			continue
		}

		agg := snap.day(date)
		for _, role := range aggregateRoleOrder {
			i, ok := idx[role]
			if !ok || i == 0 {
				continue
			}
			applyAggregate(agg, role, vals[i])
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d rows with unreadable dates", m.table, skipped)
	}
	return nil
}

func applyAggregate(agg *DayAggregate, role string, v any) {
	f, ok := asFloat(v)
	if !ok {
		return
	}
	switch role {
	case "steps":
		agg.Steps = record.Int64(roundInt(f))
	case "total_calories":
		agg.TotalCalories = record.Int64(roundInt(f))
	case "active_calories":
		agg.ActiveCalories = record.Int64(roundInt(f))
	case "resting_calories":
		agg.RestingCalories = record.Int64(roundInt(f))
	case "intensity_minutes":
		agg.IntensityMinutes = record.Int64(roundInt(f))
	case "distance_meters":
		agg.DistanceMeters = record.Float64(f)
	case "floors":
		agg.FloorsClimbed = record.Int64(roundInt(f))
	case "resting_heart_rate":
		agg.RestingHeartRate = record.Int64(roundInt(f))
	case "max_heart_rate":
		agg.MaxHeartRate = record.Int64(roundInt(f))
	case "stress":
		agg.StressLevel = record.Int64(roundInt(f))
	case "energy":
		agg.EnergyScore = record.Int64(roundInt(f))
	case "sleep_seconds":
		agg.SleepSeconds = record.Int64(roundInt(f))
	case "hrv_overnight":
		agg.HRVOvernightMS = record.Float64(f)
	case "hrv_weekly":
		agg.HRVWeeklyAvgMS = record.Float64(f)
	}
}

var weightRoleOrder = []string{"weight", "fat", "bone", "bmr", "time"}

func extractWeights(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	plan := planFor(m, weightRoleOrder, opts, true)
	idx := roleIndex(m, weightRoleOrder)

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	gramsColumn := strings.HasSuffix(m.roles["weight"], "_g") || strings.HasSuffix(m.roles["weight"], "_grams")

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		date, ok := asDate(vals[0])
		if !ok {
			skipped++
			continue
		}
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}

		weight, ok := asFloat(vals[idx["weight"]])
		if !ok || weight <= 0 {
			skipped++
			continue
		}
		// Grams by column name, or by magnitude: nobody weighs a tonne.
		if gramsColumn || weight > 1000 {
			weight /= 1000
		}

		reading := WeightReading{Date: date, WeightKG: weight, SourceTime: date.Time()}
		if i, ok := idx["time"]; ok {
			if t, ok := asTime(vals[i]); ok {
				reading.SourceTime = t
			}
		}
		if i, ok := idx["fat"]; ok {
			if f, ok := asFloat(vals[i]); ok {
				reading.BodyFat = record.Float64(f)
			}
		}
		if i, ok := idx["bone"]; ok {
			if f, ok := asFloat(vals[i]); ok {
				reading.BoneMass = record.Float64(f)
			}
		}
		if i, ok := idx["bmr"]; ok {
			if f, ok := asFloat(vals[i]); ok {
				reading.BMR = record.Int64(roundInt(f))
			}
		}
		snap.Weights = append(snap.Weights, reading)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d unreadable weight rows", m.table, skipped)
	}
	return nil
}

func extractHeartRate(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	plan := planFor(m, []string{"bpm"}, opts, true)
	idx := roleIndex(m, []string{"bpm"})

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		at, ok := asTime(vals[0])
		if !ok {
			skipped++
			continue
		}
		bpm, ok := asFloat(vals[idx["bpm"]])
		if !ok || bpm <= 0 {
			skipped++
			continue
		}
		date := record.DateOf(at)
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}
		snap.HeartRate[date] = append(snap.HeartRate[date], record.HeartRateSample{At: at, BPM: roundInt(bpm)})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d unreadable heart-rate rows", m.table, skipped)
	}
	return nil
}

func extractSleepStages(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	roleOrder := []string{"end", "stage"}
	plan := planFor(m, roleOrder, opts, true)
	if plan.boundCol != "" {
		// Stages are attributed to the wake-up day, so the night that
		// starts just before the bound still counts.
		plan.boundVal = opts.Since.AddDays(-1).String()
	}
	idx := roleIndex(m, roleOrder)

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		start, ok := asTime(vals[0])
		if !ok {
			skipped++
			continue
		}
		stage, ok := asString(vals[idx["stage"]])
		if !ok {
			skipped++
			continue
		}
		end := start
		if i, hasEnd := idx["end"]; hasEnd {
			if t, ok := asTime(vals[i]); ok {
				end = t
			}
		}

		// A night's stages belong to the wake-up day.
		date := record.DateOf(end)
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}
		snap.SleepStages[date] = append(snap.SleepStages[date], record.SleepStageSample{
			Start: start,
			End:   end,
			Stage: stage,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d unreadable sleep-stage rows", m.table, skipped)
	}
	return nil
}

func extractStepSamples(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	plan := planFor(m, []string{"steps"}, opts, true)
	idx := roleIndex(m, []string{"steps"})

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		at, ok := asTime(vals[0])
		if !ok {
			skipped++
			continue
		}
		steps, ok := asFloat(vals[idx["steps"]])
		if !ok || steps < 0 {
			skipped++
			continue
		}
		date := record.DateOf(at)
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}
		snap.StepBuckets[date] = append(snap.StepBuckets[date], record.StepSample{At: at, Steps: roundInt(steps)})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d unreadable step rows", m.table, skipped)
	}
	return nil
}

var activityRoleOrder = []string{"kind", "duration", "calories"}

func extractActivities(ctx context.Context, db *sql.DB, m *tableMatch, opts Options, snap *Snapshot) error {
	plan := planFor(m, activityRoleOrder, opts, true)
	idx := roleIndex(m, activityRoleOrder)

	query, params := plan.SQL()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(plan.columns))
		if err != nil {
			return err
		}
		date, ok := asDate(vals[0])
		if !ok {
			skipped++
			continue
		}
		if !opts.Since.IsZero() && date.Before(opts.Since) {
			continue
		}
		kind, ok := asString(vals[idx["kind"]])
		if !ok {
			skipped++
			continue
		}

		session := record.SubActivity{Kind: kind}
		if i, ok := idx["duration"]; ok {
			if f, ok := asFloat(vals[i]); ok {
				session.DurationSeconds = durationSeconds(f, m.roles["duration"])
			}
		}
		if i, ok := idx["calories"]; ok {
			if f, ok := asFloat(vals[i]); ok {
				session.Calories = roundInt(f)
			}
		}
		snap.day(date).Activities = append(snap.day(date).Activities, session)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		snap.warnf("%s: skipped %d unreadable activity rows", m.table, skipped)
	}
	return nil
}

// durationSeconds normalizes a session duration: columns named in seconds
// pass through, a generic "duration" holding huge values is taken as
// milliseconds.
func durationSeconds(v float64, column string) int64 {
	if strings.HasSuffix(column, "_seconds") || strings.HasSuffix(column, "_time") {
		return roundInt(v)
	}
	if v >= 1e6 { // more than ~11 days can only be milliseconds
		return roundInt(v / 1000)
	}
	return roundInt(v)
}
