// Package main provides a tool to export IFF track points to KML
// format. KML (Keyhole Markup Language) files can be viewed in Google
// Earth, Google Maps, and other mapping applications.
package main

import (
	"encoding/xml"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"iff_parser/internal/iff"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string    `xml:"id,attr"`
	LineStyle LineStyle `xml:"LineStyle"`
}

// LineStyle defines how flight paths are drawn.
type LineStyle struct {
	Color string `xml:"color"`
	Width int    `xml:"width"`
}

// Placemark represents one flight path with geometry and metadata.
type Placemark struct {
	Name        string     `xml:"name"`
	Description string     `xml:"description,omitempty"`
	StyleURL    string     `xml:"styleUrl,omitempty"`
	LineString  LineString `xml:"LineString"`
}

// LineString is an ordered run of coordinates.
type LineString struct {
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"` // Whitespace-separated lon,lat,altitude triples.
}

func main() {
	inPath := flag.String("input", "", "Input IFF file (required)")
	outPath := flag.String("output", "flights.kml", "Output KML file")
	callsigns := flag.String("callsigns", "", "Comma-separated callsigns to export (default: all)")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "kmlexport: -input is required")
		os.Exit(2)
	}

	var filter []string
	for _, cs := range strings.Split(*callsigns, ",") {
		if cs = strings.TrimSpace(cs); cs != "" {
			filter = append(filter, cs)
		}
	}

	track, err := iff.DecodeRecordType(*inPath, iff.TrackPoint, iff.Options{Callsigns: filter})
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmlexport: %v\n", err)
		os.Exit(1)
	}

	doc, err := buildKML(*inPath, track)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmlexport: %v\n", err)
		os.Exit(1)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmlexport: marshal: %v\n", err)
		os.Exit(1)
	}
	out := append([]byte(xml.Header), data...)
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "kmlexport: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s: %d flight paths\n", *outPath, len(doc.Document.Placemarks))
}

// buildKML groups track samples by callsign, preserving sample order
// within each flight.
func buildKML(source string, track *iff.Table) (*KML, error) {
	csIdx := track.ColumnIndex("callsign")
	latIdx := track.ColumnIndex("latitude")
	lonIdx := track.ColumnIndex("longitude")
	altIdx := track.ColumnIndex("altitude")
	tIdx := track.ColumnIndex("time")
	if csIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("track table lacks callsign/position columns")
	}

	coords := make(map[string]string)
	starts := make(map[string]time.Time)
	var order []string
	for _, row := range track.Rows {
		cs, ok := row[csIdx].(string)
		if !ok {
			continue
		}
		lat, ok1 := cellFloat(row[latIdx])
		lon, ok2 := cellFloat(row[lonIdx])
		if !ok1 || !ok2 {
			continue
		}
		alt := 0.0
		if altIdx >= 0 {
			if a, ok := cellFloat(row[altIdx]); ok {
				// KML wants metres.
				alt = a * 0.3048
			}
		}
		if _, seen := coords[cs]; !seen {
			order = append(order, cs)
			if tIdx >= 0 {
				if ts, ok := row[tIdx].(time.Time); ok {
					starts[cs] = ts
				}
			}
		} else {
			coords[cs] += " "
		}
		coords[cs] += fmt.Sprintf("%.6f,%.6f,%.1f", lon, lat, alt)
	}

	doc := &KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        source,
			Description: "Flight tracks decoded from IFF surveillance data",
			Styles: []Style{
				{ID: "flightPath", LineStyle: LineStyle{Color: "ff0000ff", Width: 2}},
			},
		},
	}
	for _, cs := range order {
		desc := ""
		if ts, ok := starts[cs]; ok {
			desc = "First seen " + ts.Format(time.RFC3339)
		}
		doc.Document.Placemarks = append(doc.Document.Placemarks, Placemark{
			Name:        cs,
			Description: desc,
			StyleURL:    "#flightPath",
			LineString: LineString{
				AltitudeMode: "absolute",
				Coordinates:  coords[cs],
			},
		})
	}
	return doc, nil
}

func cellFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
