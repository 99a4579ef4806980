// Package feed publishes decoded track points to NATS so live
// consumers can follow a recording as it is decoded.
package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"iff_parser/internal/iff"
)

// DefaultSubjectPrefix is the subject tree track points publish under;
// the callsign is appended per message.
const DefaultSubjectPrefix = "iff.track"

// TrackPoint is the JSON payload published per sample.
type TrackPoint struct {
	Time      time.Time `json:"time"`
	Callsign  string    `json:"callsign"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	ROCD      *float64  `json:"rocd,omitempty"`
	TAS       *float64  `json:"tas,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
}

// Publisher writes track points to a NATS connection.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// Connect dials a NATS server. An empty URL uses the default local
// server; an empty prefix uses DefaultSubjectPrefix.
func Connect(url, subjectPrefix string) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	nc, err := nats.Connect(url, nats.Name("iff_parser"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// PublishTrack publishes every sample of a normalized track point
// table, one message per row, subject <prefix>.<callsign>. Rows
// without a timestamp or callsign are skipped. Returns the number of
// messages published.
func (p *Publisher) PublishTrack(table *iff.Table) (int, error) {
	tIdx := table.ColumnIndex("time")
	csIdx := table.ColumnIndex("callsign")
	if tIdx < 0 || csIdx < 0 {
		return 0, fmt.Errorf("track table lacks time/callsign columns")
	}

	published := 0
	for _, row := range table.Rows {
		ts, ok := row[tIdx].(time.Time)
		if !ok {
			continue
		}
		cs, ok := row[csIdx].(string)
		if !ok {
			continue
		}
		point := TrackPoint{
			Time:      ts,
			Callsign:  cs,
			Latitude:  floatCell(table, row, "latitude"),
			Longitude: floatCell(table, row, "longitude"),
			Altitude:  floatCell(table, row, "altitude"),
			ROCD:      floatCell(table, row, "rocd"),
			TAS:       floatCell(table, row, "tas"),
			Heading:   floatCell(table, row, "heading"),
		}
		data, err := json.Marshal(point)
		if err != nil {
			return published, fmt.Errorf("marshal track point: %w", err)
		}
		if err := p.nc.Publish(p.subjectPrefix+"."+cs, data); err != nil {
			return published, fmt.Errorf("publish: %w", err)
		}
		published++
	}
	return published, p.nc.Flush()
}

func floatCell(table *iff.Table, row []any, col string) *float64 {
	idx := table.ColumnIndex(col)
	if idx < 0 {
		return nil
	}
	switch x := row[idx].(type) {
	case float64:
		return &x
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return &f
		}
	}
	return nil
}
