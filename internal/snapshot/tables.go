package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// tableInfo is one producer table with its columns.
type tableInfo struct {
	name    string
	columns map[string]string // lowercased column name -> declared type
}

// listTables reads the snapshot's schema in deterministic name order.
func listTables(ctx context.Context, db *sql.DB) ([]tableInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]tableInfo, 0, len(names))
	for _, name := range names {
		cols, err := columnsOf(ctx, db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tableInfo{name: name, columns: cols})
	}
	return tables, nil
}

// columnsOf reads a table's column names and declared types.
func columnsOf(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	// PRAGMA arguments cannot be parameterized; the identifier is quoted.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		cols[strings.ToLower(name)] = strings.ToUpper(ctype)
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// tableMatch binds a logical wellness table to a concrete producer table.
// dateCol drives row ordering and date bounds; roles maps the category's
// logical fields to concrete columns.
type tableMatch struct {
	table    string
	dateCol  string
	dateType string
	roles    map[string]string
}

// selectTable picks the best-matching unclaimed table for one category:
// the match binding the most roles wins, name order breaks ties. The winner
// is claimed so no other category reads the same table.
func selectTable(tables []tableInfo, claimed map[string]bool, match func(tableInfo) (*tableMatch, bool)) (*tableMatch, bool) {
	var best *tableMatch
	for _, t := range tables {
		if claimed[t.name] {
			continue
		}
		m, ok := match(t)
		if !ok {
			continue
		}
		if best == nil || len(m.roles) > len(best.roles) {
			best = m
		}
	}
	if best == nil {
		return nil, false
	}
	claimed[best.table] = true
	return best, true
}

var dateColumns = []string{"date", "day", "calendar_date", "summary_date"}

var timeColumns = []string{"timestamp", "time", "ts", "datetime", "measured_at", "created_at", "start_time"}

// aggregateRoles maps daily-summary roles to known column spellings across
// producing applications.
var aggregateRoles = map[string][]string{
	"steps":              {"steps", "step_count", "total_steps"},
	"total_calories":     {"total_calories", "calories_total", "calories"},
	"active_calories":    {"active_calories", "calories_active"},
	"resting_calories":   {"resting_calories", "calories_resting", "bmr_calories"},
	"intensity_minutes":  {"intensity_minutes", "moderate_intensity_minutes", "vigorous_intensity_minutes"},
	"distance_meters":    {"distance_meters", "distance_m", "distance"},
	"floors":             {"floors_climbed", "floors", "floors_ascended"},
	"resting_heart_rate": {"resting_heart_rate", "resting_hr", "rhr"},
	"max_heart_rate":     {"max_heart_rate", "max_hr"},
	"stress":             {"avg_stress_level", "stress_avg", "stress_level", "stress"},
	"energy":             {"body_battery", "energy_score", "body_battery_high"},
	"sleep_seconds":      {"sleep_seconds", "total_sleep_seconds", "sleep_duration_seconds", "sleep_duration"},
	"hrv_overnight":      {"hrv_overnight", "overnight_hrv", "hrv_last_night", "hrv"},
	"hrv_weekly":         {"hrv_weekly_avg", "hrv_7d_avg", "hrv_last_night_7d_avg"},
}

// matchDaily recognizes a daily summary table: a date-named table carrying
// a date column plus at least one known metric column. Intraday tables are
// excluded by name so a "heart_rate_samples" table never shadows the
// summary.
func matchDaily(t tableInfo) (*tableMatch, bool) {
	if nameContains(t.name, []string{"sample", "intraday", "stage", "bucket"}) {
		return nil, false
	}
	if !nameContains(t.name, []string{"daily", "summary", "day"}) {
		return nil, false
	}
	dateCol, ok := findColumn(t.columns, dateColumns)
	if !ok {
		return nil, false
	}
	roles := make(map[string]string)
	for role, candidates := range aggregateRoles {
		if col, ok := findColumn(t.columns, candidates); ok && col != dateCol {
			roles[role] = col
		}
	}
	if len(roles) == 0 {
		return nil, false
	}
	return &tableMatch{table: t.name, dateCol: dateCol, dateType: t.columns[dateCol], roles: roles}, true
}

// matchWeight recognizes a body-composition table.
func matchWeight(t tableInfo) (*tableMatch, bool) {
	if !nameContains(t.name, []string{"weight", "body_comp", "body_composition", "scale_measurement"}) {
		return nil, false
	}
	weightCol, ok := findColumn(t.columns, []string{"weight_kg", "weight_g", "weight_grams", "weight", "value"})
	if !ok {
		return nil, false
	}
	roles := map[string]string{"weight": weightCol}
	if col, ok := findColumn(t.columns, []string{"body_fat_pct", "body_fat", "fat_pct", "fat_percentage", "body_fat_ratio", "fat_ratio"}); ok {
		roles["fat"] = col
	}
	if col, ok := findColumn(t.columns, []string{"bone_mass_kg", "bone_mass_g", "bone_mass"}); ok {
		roles["bone"] = col
	}
	if col, ok := findColumn(t.columns, []string{"basal_metabolic_rate", "bmr_kcal", "bmr"}); ok {
		roles["bmr"] = col
	}
	if col, ok := findColumn(t.columns, timeColumns); ok {
		roles["time"] = col
	}

	dateCol, ok := findColumn(t.columns, dateColumns)
	if !ok {
		// No date column; derive the calendar day from the reading time.
		timeCol, hasTime := roles["time"]
		if !hasTime {
			return nil, false
		}
		dateCol = timeCol
	}
	return &tableMatch{table: t.name, dateCol: dateCol, dateType: t.columns[dateCol], roles: roles}, true
}

// matchHeartRate recognizes an intraday heart-rate sample table. Requiring
// a timestamp column keeps daily resting-HR tables out.
func matchHeartRate(t tableInfo) (*tableMatch, bool) {
	if !nameContains(t.name, []string{"heart_rate", "heartrate", "hr_sample"}) {
		return nil, false
	}
	tsCol, ok := findColumn(t.columns, timeColumns)
	if !ok {
		return nil, false
	}
	bpmCol, ok := findColumn(t.columns, []string{"bpm", "heart_rate", "hr", "beats_per_minute", "value"})
	if !ok {
		return nil, false
	}
	roles := map[string]string{"ts": tsCol, "bpm": bpmCol}
	return &tableMatch{table: t.name, dateCol: tsCol, dateType: t.columns[tsCol], roles: roles}, true
}

// matchSleepStages recognizes a sleep-stage interval table.
func matchSleepStages(t tableInfo) (*tableMatch, bool) {
	if !nameContains(t.name, []string{"sleep_stage", "sleep_level", "sleep_phase", "hypnogram", "sleep_event"}) {
		return nil, false
	}
	startCol, ok := findColumn(t.columns, []string{"start_time", "start", "stage_start", "begin"})
	if !ok {
		return nil, false
	}
	stageCol, ok := findColumn(t.columns, []string{"stage", "level", "phase", "type", "value"})
	if !ok {
		return nil, false
	}
	roles := map[string]string{"start": startCol, "stage": stageCol}
	if endCol, ok := findColumn(t.columns, []string{"end_time", "end", "stage_end", "finish"}); ok {
		roles["end"] = endCol
	}
	return &tableMatch{table: t.name, dateCol: startCol, dateType: t.columns[startCol], roles: roles}, true
}

// matchStepSamples recognizes an intraday step bucket table.
func matchStepSamples(t tableInfo) (*tableMatch, bool) {
	if !nameContains(t.name, []string{"step_sample", "steps_intraday", "intraday_step", "step_bucket", "step_series", "step_entries"}) {
		return nil, false
	}
	tsCol, ok := findColumn(t.columns, timeColumns)
	if !ok {
		return nil, false
	}
	stepsCol, ok := findColumn(t.columns, []string{"steps", "step_count", "count", "value"})
	if !ok {
		return nil, false
	}
	roles := map[string]string{"ts": tsCol, "steps": stepsCol}
	return &tableMatch{table: t.name, dateCol: tsCol, dateType: t.columns[tsCol], roles: roles}, true
}

// matchActivities recognizes a workout/session table. Daily summary tables
// often carry "activity" in their name, so those are excluded first.
func matchActivities(t tableInfo) (*tableMatch, bool) {
	if nameContains(t.name, []string{"daily", "summary", "sample", "intraday"}) {
		return nil, false
	}
	if !nameContains(t.name, []string{"activit", "workout", "session", "exercise"}) {
		return nil, false
	}
	kindCol, ok := findColumn(t.columns, []string{"activity_type", "type", "sport", "kind", "name"})
	if !ok {
		return nil, false
	}
	roles := map[string]string{"kind": kindCol}
	if col, ok := findColumn(t.columns, []string{"duration_seconds", "duration", "elapsed_seconds", "elapsed_time"}); ok {
		roles["duration"] = col
	}
	if col, ok := findColumn(t.columns, []string{"calories", "active_calories", "kcal"}); ok {
		roles["calories"] = col
	}

	dateCol, ok := findColumn(t.columns, dateColumns)
	if !ok {
		dateCol, ok = findColumn(t.columns, timeColumns)
		if !ok {
			return nil, false
		}
	}
	return &tableMatch{table: t.name, dateCol: dateCol, dateType: t.columns[dateCol], roles: roles}, true
}

func findColumn(cols map[string]string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if _, ok := cols[c]; ok {
			return c, true
		}
	}
	return "", false
}

func nameContains(table string, hints []string) bool {
	lower := strings.ToLower(table)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}
