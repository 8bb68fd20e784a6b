package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/PDelos/CineBus-AP2/model"
)

type ScreeningCSV struct {
	Title    string `csv:"title"`
	Cinema   string `csv:"cinema"`
	Lon      string `csv:"lon"`
	Lat      string `csv:"lat"`
	Start    string `csv:"start"`
	Language string `csv:"language"`
}

// Start times without an offset are read in the catalog's location.
var screeningTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Parses a screening catalog in CSV. Rows keep their file order.
// Start times are RFC3339, or local times in loc.
func ParseScreenings(data io.Reader, loc *time.Location) ([]model.Event, error) {
	if loc == nil {
		loc = time.UTC
	}

	screeningCsv := []*ScreeningCSV{}
	if err := gocsv.Unmarshal(data, &screeningCsv); err != nil {
		return nil, errors.Wrap(err, "unmarshaling screenings csv")
	}

	events := make([]model.Event, 0, len(screeningCsv))
	for i, sc := range screeningCsv {
		if sc.Title == "" {
			return nil, fmt.Errorf("empty title (row %d)", i+1)
		}
		lonStr, latStr := strings.TrimSpace(sc.Lon), strings.TrimSpace(sc.Lat)
		if lonStr == "" || latStr == "" {
			return nil, fmt.Errorf("empty lon or lat for '%s' (row %d)", sc.Title, i+1)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing lon (row %d)", i+1)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing lat (row %d)", i+1)
		}

		start, err := parseStart(strings.TrimSpace(sc.Start), loc)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing start (row %d)", i+1)
		}

		events = append(events, model.Event{
			Title:    sc.Title,
			Cinema:   sc.Cinema,
			Location: model.Coordinate{lon, lat},
			Start:    start,
			Language: sc.Language,
		})
	}

	return events, nil
}

func parseStart(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty start")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range screeningTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time '%s'", value)
}
