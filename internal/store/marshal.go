package store

import (
	"encoding/json"
	"fmt"

	"github.com/aweiler/vitalog/internal/record"
)

// marshalSubActivities converts the sub-activity list to JSON TEXT.
// An empty or nil list stores as "[]" so the column can stay NOT NULL.
func marshalSubActivities(subs []record.SubActivity) (string, error) {
	if len(subs) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(subs)
	if err != nil {
		return "", fmt.Errorf("marshal sub-activities: %w", err)
	}
	return string(data), nil
}

// unmarshalSubActivities parses the JSON TEXT column back into the list.
func unmarshalSubActivities(data string) ([]record.SubActivity, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var subs []record.SubActivity
	if err := json.Unmarshal([]byte(data), &subs); err != nil {
		return nil, fmt.Errorf("unmarshal sub-activities: %w", err)
	}
	return subs, nil
}

// marshalSeries converts a sample series to JSON TEXT. The series is an
// opaque document to the store; its shape is owned by the record package.
func marshalSeries(series record.SampleSeries) (string, error) {
	data, err := json.Marshal(series)
	if err != nil {
		return "", fmt.Errorf("marshal sample series: %w", err)
	}
	return string(data), nil
}

// unmarshalSeries parses the JSON TEXT column back into a series.
func unmarshalSeries(data string) (record.SampleSeries, error) {
	var series record.SampleSeries
	if data == "" {
		return series, nil
	}
	if err := json.Unmarshal([]byte(data), &series); err != nil {
		return record.SampleSeries{}, fmt.Errorf("unmarshal sample series: %w", err)
	}
	return series, nil
}
