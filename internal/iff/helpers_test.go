package iff

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// writeLines writes a test file with one record per line and returns
// its path.
func writeLines(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// recordLine builds a data line for the given record type under the
// 2.15 schemas: the overridden columns get the given values, every
// other column is the missing sentinel.
func recordLine(t *testing.T, rt RecordType, overrides map[string]string) string {
	t.Helper()
	reg := NewSchemaRegistry(Version{2, 15, 0})
	schema, err := reg.SchemaFor(rt)
	if err != nil {
		t.Fatalf("schema for %d: %v", int(rt), err)
	}
	fields := make([]string, len(schema))
	for i, col := range schema {
		if v, ok := overrides[col]; ok {
			fields[i] = v
		} else {
			fields[i] = missingToken
		}
	}
	fields[0] = fmt.Sprintf("%d", int(rt))
	return strings.Join(fields, ",")
}

// trackLine builds a 2.15 track point line.
func trackLine(t *testing.T, callsign string, epoch, lat, lon, alt float64) string {
	t.Helper()
	return recordLine(t, TrackPoint, map[string]string{
		"recTime":     fmt.Sprintf("%.1f", epoch),
		"AcId":        callsign,
		"coord1":      fmt.Sprintf("%.5f", lat),
		"coord2":      fmt.Sprintf("%.5f", lon),
		"alt":         fmt.Sprintf("%.2f", alt),
		"groundSpeed": "12.5",
		"course":      "180.0",
		"rateOfClimb": "0.0",
	})
}

// writeScenarioFile writes a 2.15 IFF file with the given number of
// track points for each listed callsign, plus one header, one comment,
// one flight summary and one flight plan line per callsign.
func writeScenarioFile(t *testing.T, dir, name string, trackCounts map[string]int) string {
	t.Helper()
	lines := []string{
		"1,IFF,2.15",
		"0,test recording",
	}
	// Deterministic callsign order.
	callsigns := make([]string, 0, len(trackCounts))
	for cs := range trackCounts {
		callsigns = append(callsigns, cs)
	}
	sort.Strings(callsigns)
	for _, cs := range callsigns {
		lines = append(lines, recordLine(t, FlightSummary, map[string]string{
			"recTime": "1121238000.0",
			"AcId":    cs,
			"acType":  "B738",
		}))
		lines = append(lines, recordLine(t, FlightPlan, map[string]string{
			"recTime": "1121238000.0",
			"AcId":    cs,
			"route":   "KSFO./.KPHX",
		}))
	}
	for _, cs := range callsigns {
		for i := 0; i < trackCounts[cs]; i++ {
			lines = append(lines, trackLine(t, cs,
				1121238000.0+float64(i),
				37.61+0.001*float64(i),
				-122.39+0.001*float64(i),
				10.0+float64(i)))
		}
	}
	return writeLines(t, dir, name, lines)
}
