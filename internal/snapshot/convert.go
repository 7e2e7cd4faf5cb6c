package snapshot

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aweiler/vitalog/internal/record"
)

// Producer schemas store timestamps as epoch seconds, epoch milliseconds,
// ISO text, or driver-decoded time values; dates additionally as bare
// YYYY-MM-DD text. The coercions below accept all of them.

var textTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case []byte:
		return parseFloatText(string(x))
	case string:
		return parseFloatText(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func parseFloatText(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case []byte:
		return string(x), len(x) > 0
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	}
	return "", false
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case int64:
		if x <= 0 {
			return time.Time{}, false
		}
		return epochToTime(float64(x)), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
			return time.Time{}, false
		}
		return epochToTime(x), true
	case []byte:
		return parseTimeText(string(x))
	case string:
		return parseTimeText(x)
	}
	return time.Time{}, false
}

func parseTimeText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// Epoch written as text.
	if f, ok := parseFloatText(s); ok && f > 0 {
		return epochToTime(f), true
	}
	return time.Time{}, false
}

// epochToTime decodes a numeric timestamp; values at or above 1e11 are
// taken as milliseconds (1e11 seconds is deep in the fifth millennium).
func epochToTime(v float64) time.Time {
	if v >= 1e11 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

func asDate(v any) (record.Date, bool) {
	switch x := v.(type) {
	case time.Time:
		return record.DateOf(x.UTC()), true
	case []byte:
		return parseDateText(string(x))
	case string:
		return parseDateText(x)
	}
	if t, ok := asTime(v); ok {
		return record.DateOf(t), true
	}
	return record.Date{}, false
}

func parseDateText(s string) (record.Date, bool) {
	s = strings.TrimSpace(s)
	if d, err := record.ParseDate(s); err == nil {
		return d, true
	}
	if t, ok := parseTimeText(s); ok {
		return record.DateOf(t), true
	}
	return record.Date{}, false
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}
