package parse

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/transit"
)

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// Parses the routes and stops datasets and joins them into bus
// lines. Fails with a transit.IntegrityError if a line is present
// in one dataset but not the other.
func ParseNetwork(routes []byte, stops []byte) ([]model.BusLine, error) {
	b := transit.NewNetworkBuilder()

	n, err := ParseRoutes(b, routes)
	if err != nil {
		return nil, fmt.Errorf("parsing routes: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("routes dataset has no lines")
	}

	_, err = ParseStops(b, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stops: %w", err)
	}

	lines, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("assembling network: %w", err)
	}

	return lines, nil
}

// GeoJSON properties hold numbers as float64 after decoding, but
// some exports quote them. Both are accepted.
func propString(props map[string]interface{}, key string) (string, bool) {
	switch v := props[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	}
	return "", false
}

func propFloat(props map[string]interface{}, key string) (float64, bool, error) {
	switch v := props[key].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false, fmt.Errorf("property %s: %w", key, err)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("property %s: unexpected type %T", key, props[key])
}
