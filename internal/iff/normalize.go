package iff

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// columnRenames maps raw IFF column names to the cross-format naming
// convention shared with the simulator readers.
var columnRenames = map[string]string{
	"recTime":     "time",
	"AcId":        "callsign",
	"coord1":      "latitude",
	"coord2":      "longitude",
	"alt":         "altitude",
	"rateOfClimb": "rocd",
	"groundSpeed": "tas",
	"course":      "heading",
}

// Normalize renames columns to the canonical convention and converts
// units in place: time values go from Unix epoch seconds to time.Time,
// altitude from hundreds of feet to feet. Missing values stay missing.
// Applied once per fully accumulated table.
func Normalize(t *Table) error {
	for i, c := range t.Columns {
		if canonical, ok := columnRenames[c]; ok {
			t.Columns[i] = canonical
		}
	}

	if idx := t.ColumnIndex("time"); idx >= 0 {
		for _, row := range t.Rows {
			if row[idx] == nil {
				continue
			}
			ts, err := epochToTime(row[idx])
			if err != nil {
				return fmt.Errorf("normalize time: %w", err)
			}
			row[idx] = ts
		}
	}

	if idx := t.ColumnIndex("altitude"); idx >= 0 {
		for _, row := range t.Rows {
			if row[idx] == nil {
				continue
			}
			alt, err := toFloat(row[idx])
			if err != nil {
				return fmt.Errorf("normalize altitude: %w", err)
			}
			// The format encodes altitude in hundreds of feet.
			row[idx] = alt * 100
		}
	}
	return nil
}

// epochToTime converts an epoch-seconds value, possibly fractional, to
// a UTC timestamp of equivalent precision.
func epochToTime(v any) (time.Time, error) {
	sec, err := toFloat(v)
	if err != nil {
		return time.Time{}, err
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
