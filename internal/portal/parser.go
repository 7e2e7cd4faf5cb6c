package portal

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aweiler/vitalog/internal/catalog"
	"github.com/aweiler/vitalog/internal/record"
)

// ErrNoData reports that no input file yielded a single usable row.
var ErrNoData = errors.New("no usable rows in any portal export")

// Result is the outcome of parsing a set of portal exports.
// On ErrNoData the result is still returned so callers can surface the
// accumulated warnings.
type Result struct {
	Days     map[record.Date]*DayFields
	Warnings []string
	Files    int // files recognized and parsed
}

// Dates returns the dates present in the result in ascending order.
func (r *Result) Dates() []record.Date {
	dates := make([]record.Date, 0, len(r.Days))
	for d := range r.Days {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, record.Date.Compare)
	return dates
}

// ParseFiles parses every path against the layout catalog and accumulates
// raw per-day fields across all files. A file that cannot be read or whose
// header matches no known layout contributes a file-level warning; the parse
// fails only when no file yields any usable row.
func ParseFiles(cat *catalog.Catalog, paths []string) (*Result, error) {
	res := &Result{Days: make(map[record.Date]*DayFields)}
	for _, path := range paths {
		if err := parseFile(cat, path, res); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		res.Files++
	}
	if len(res.Days) == 0 {
		return res, ErrNoData
	}
	return res, nil
}

// layoutMatch binds a detected layout to the columns of a concrete file.
type layoutMatch struct {
	layout  *catalog.FileLayout
	dateIdx int
	bound   []boundColumn // ascending column index
}

type boundColumn struct {
	idx    int
	metric catalog.MetricColumn
}

func parseFile(cat *catalog.Catalog, path string, res *Result) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	data, err := decodeExport(raw)
	if err != nil {
		return err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // portal exports are occasionally ragged
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return errors.New("empty file")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	match, ok := detectLayout(cat, header)
	if !ok {
		return errors.New("unrecognized layout")
	}

	base := filepath.Base(path)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// The reader resynchronizes on the next line.
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s:%d: %v", base, parseErr.Line, parseErr.Err))
			continue
		}
		if err != nil {
			return fmt.Errorf("read rows: %w", err)
		}
		line, _ := reader.FieldPos(0)
		parseRow(match, row, base, line, res)
	}
}

// detectLayout matches a header row against the catalog. A layout matches
// when one of its date column candidates and at least one metric column are
// present; when several layouts match, the one binding the most metric
// columns wins.
func detectLayout(cat *catalog.Catalog, header []string) (*layoutMatch, bool) {
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = strings.TrimSpace(h)
	}

	var best *layoutMatch
	for i := range cat.Layouts {
		layout := &cat.Layouts[i]

		dateIdx := -1
		for _, cand := range layout.DateColumns {
			if idx := indexOfFold(cells, cand); idx >= 0 {
				dateIdx = idx
				break
			}
		}
		if dateIdx < 0 {
			continue
		}

		var bound []boundColumn
		for idx, cell := range cells {
			if idx == dateIdx {
				continue
			}
			for _, m := range layout.Metrics {
				if strings.EqualFold(cell, m.Column) {
					bound = append(bound, boundColumn{idx: idx, metric: m})
					break
				}
			}
		}
		if len(bound) == 0 {
			continue
		}

		if best == nil || len(bound) > len(best.bound) {
			best = &layoutMatch{layout: layout, dateIdx: dateIdx, bound: bound}
		}
	}
	return best, best != nil
}

func indexOfFold(cells []string, want string) int {
	for i, c := range cells {
		if strings.EqualFold(c, want) {
			return i
		}
	}
	return -1
}

func parseRow(m *layoutMatch, row []string, file string, line int, res *Result) {
	dateCell := ""
	if m.dateIdx < len(row) {
		dateCell = strings.TrimSpace(row[m.dateIdx])
	}
	date, ok := parseRowDate(m.layout.DateFormats, dateCell)
	if !ok {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s:%d: unparseable date %q", file, line, dateCell))
		return
	}

	type parsedCell struct {
		field catalog.Field
		value float64
	}
	var values []parsedCell
	for _, b := range m.bound {
		if b.idx >= len(row) {
			continue
		}
		v, present, err := parseNumber(row[b.idx])
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s:%d: bad value %q in column %q",
				file, line, strings.TrimSpace(row[b.idx]), b.metric.Column))
			continue
		}
		if !present {
			continue
		}
		values = append(values, parsedCell{field: b.metric.Field, value: v * b.metric.Scale})
	}
	if len(values) == 0 {
		// A date row with no readable metrics contributes nothing; don't
		// let it count as usable data.
		return
	}

	bag, ok := res.Days[date]
	if !ok {
		bag = &DayFields{Date: date}
		res.Days[date] = bag
	}
	for _, v := range values {
		bag.set(v.field, v.value)
	}
}

func parseRowDate(formats []string, cell string) (record.Date, bool) {
	if cell == "" {
		return record.Date{}, false
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, cell); err == nil {
			return record.DateOf(t), true
		}
	}
	return record.Date{}, false
}

// parseNumber reads a metric cell. The portal writes "--" (sometimes "-")
// for days without a reading and separates thousands with commas.
func parseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "--", "-":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
