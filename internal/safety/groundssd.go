// Package safety computes surface-movement safety metrics from
// normalized track point tables.
package safety

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"iff_parser/internal/iff"
)

// Tuning constants for the ground SSD metric. Distances in metres,
// speeds in knots.
const (
	// pairWindow is how far apart in time two samples may be and
	// still count as a simultaneous observation.
	pairWindow = 2500 * time.Millisecond

	// baseRadius is the protected zone around a stationary aircraft.
	baseRadius = 100.0

	// lookahead scales the protected zone with own speed: a faster
	// aircraft has more of its velocity space blocked by the same
	// intruder.
	lookahead = 15.0

	knotsToMPS   = 0.514444
	earthRadiusM = 6371000.0
)

type sample struct {
	t        time.Time
	callsign string
	lat      float64
	lon      float64
	tas      float64
}

// GroundSSD scores each track sample by how much of the aircraft's
// velocity space is blocked by nearby traffic, in the closed range
// [0,1]. Input is a normalized track point table (the columns time,
// callsign, latitude and longitude are required; tas is used when
// present). The result has columns time, callsign and fpf, one row per
// usable input sample, with no missing values.
func GroundSSD(track *iff.Table) (*iff.Table, error) {
	for _, col := range []string{"time", "callsign", "latitude", "longitude"} {
		if !track.HasColumn(col) {
			return nil, fmt.Errorf("ground ssd: input table has no %q column", col)
		}
	}
	samples := collect(track)

	result := iff.NewTable([]string{"time", "callsign", "fpf"})
	for i := range samples {
		result.Append([]any{samples[i].t, samples[i].callsign, blockedFraction(samples, i)})
	}
	return result, nil
}

// collect pulls usable samples out of the table, dropping rows with a
// missing key field, and sorts them by time for windowed pairing.
func collect(track *iff.Table) []sample {
	tIdx := track.ColumnIndex("time")
	csIdx := track.ColumnIndex("callsign")
	latIdx := track.ColumnIndex("latitude")
	lonIdx := track.ColumnIndex("longitude")
	tasIdx := track.ColumnIndex("tas")

	var samples []sample
	for _, row := range track.Rows {
		ts, ok := row[tIdx].(time.Time)
		if !ok {
			continue
		}
		cs, ok := row[csIdx].(string)
		if !ok {
			continue
		}
		lat, ok := asFloat(row[latIdx])
		if !ok {
			continue
		}
		lon, ok := asFloat(row[lonIdx])
		if !ok {
			continue
		}
		s := sample{t: ts, callsign: cs, lat: lat, lon: lon}
		if tasIdx >= 0 {
			if tas, ok := asFloat(row[tasIdx]); ok {
				s.tas = tas
			}
		}
		samples = append(samples, s)
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })
	return samples
}

// blockedFraction scores sample i against every other aircraft
// observed within the pairing window. The nearest intruder dominates.
func blockedFraction(samples []sample, i int) float64 {
	own := samples[i]
	radius := baseRadius + own.tas*knotsToMPS*lookahead

	worst := 0.0
	// Samples are time-sorted; walk outward until the window closes.
	for j := i - 1; j >= 0 && own.t.Sub(samples[j].t) <= pairWindow; j-- {
		worst = math.Max(worst, threat(own, samples[j], radius))
	}
	for j := i + 1; j < len(samples) && samples[j].t.Sub(own.t) <= pairWindow; j++ {
		worst = math.Max(worst, threat(own, samples[j], radius))
	}
	return worst
}

func threat(own, other sample, radius float64) float64 {
	if other.callsign == own.callsign {
		return 0
	}
	d := haversine(own.lat, own.lon, other.lat, other.lon)
	if d >= radius {
		return 0
	}
	return 1 - d/radius
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	phi1, phi2 := lat1*degToRad, lat2*degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
