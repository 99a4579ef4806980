// Package natsim reads NATS simulator trajectory output files. The
// format is unrelated to IFF, but the reader follows the same
// convention: file path in, table out, with the canonical time and
// callsign columns.
//
// A NATS output file starts with banner lines (leading '*' or '#'),
// optionally carrying the simulation start epoch:
//
//	# SIM_START,1121238000
//
// followed by per-flight blocks: a flight line naming the callsign,
// origin, destination and point count, then that many trajectory rows
// of elapsed seconds, latitude, longitude, altitude (ft), rate of
// climb, true airspeed and heading:
//
//	FLIGHT,SWA1897,KSFO,KPHX,369
//	0.0,37.61881,-122.37542,13.0,0.0,0.0,281.2
package natsim

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"iff_parser/internal/iff"
)

// Columns of the returned table, matching the normalized IFF track
// point convention where the fields overlap.
var columns = []string{"time", "callsign", "origin", "destination", "latitude", "longitude", "altitude", "rocd", "tas", "heading"}

// ReadFile reads a NATS simulator output file into a single table
// covering all flights, rows in file order.
func ReadFile(path string) (*iff.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := iff.NewTable(append([]string(nil), columns...))
	sc := bufio.NewScanner(f)

	var simStart time.Time
	var callsign, origin, dest string
	remaining := 0

	for line := 0; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "*") {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if epoch, ok := parseSimStart(text); ok {
				simStart = epoch
			}
			continue
		}

		fields := strings.Split(text, ",")
		if fields[0] == "FLIGHT" {
			if len(fields) < 5 {
				return nil, fmt.Errorf("%s: line %d: malformed flight line", path, line)
			}
			callsign, origin, dest = fields[1], fields[2], fields[3]
			remaining, err = strconv.Atoi(fields[4])
			if err != nil {
				return nil, fmt.Errorf("%s: line %d: bad point count %q", path, line, fields[4])
			}
			continue
		}

		if remaining <= 0 {
			return nil, fmt.Errorf("%s: line %d: trajectory row outside a flight block", path, line)
		}
		remaining--

		if len(fields) < 7 {
			return nil, fmt.Errorf("%s: line %d: trajectory row has %d fields, want 7", path, line, len(fields))
		}
		nums := make([]float64, 7)
		for i := range nums {
			nums[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d: field %d: %w", path, line, i, err)
			}
		}

		ts := simStart.Add(time.Duration(nums[0] * float64(time.Second))).UTC()
		table.Append([]any{ts, callsign, origin, dest, nums[1], nums[2], nums[3], nums[4], nums[5], nums[6]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func parseSimStart(comment string) (time.Time, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(comment, "#"))
	parts := strings.Split(body, ",")
	if len(parts) != 2 || parts[0] != "SIM_START" {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0).UTC(), true
}
