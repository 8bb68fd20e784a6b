package transit

import (
	"github.com/paulmach/orb"

	"github.com/PDelos/CineBus-AP2/model"
)

type lineMeta struct {
	id    string
	name  string
	color string
	route orb.LineString
}

// Joins the two transit datasets into bus lines. Line metadata and
// geometry come from the routes dataset, stops from the stops
// dataset, and the two are matched on line id. Nothing is validated
// until Build.
type NetworkBuilder struct {
	lines     map[string]*lineMeta
	lineOrder []string

	stops     map[string][]model.Stop
	stopOrder []string

	errs []error
}

func NewNetworkBuilder() *NetworkBuilder {
	return &NetworkBuilder{
		lines: map[string]*lineMeta{},
		stops: map[string][]model.Stop{},
	}
}

// Registers a line from the routes dataset.
func (b *NetworkBuilder) AddLine(id, name, color string, route orb.LineString) {
	if _, found := b.lines[id]; found {
		b.errs = append(b.errs, integrityf("line", id, "appears more than once in routes dataset"))
		return
	}
	b.lines[id] = &lineMeta{
		id:    id,
		name:  name,
		color: color,
		route: route,
	}
	b.lineOrder = append(b.lineOrder, id)
}

// Appends a stop to a line. Stops must be added in physical order.
func (b *NetworkBuilder) AddStop(lineID string, stop model.Stop) {
	if _, found := b.stops[lineID]; !found {
		b.stopOrder = append(b.stopOrder, lineID)
	}
	b.stops[lineID] = append(b.stops[lineID], stop)
}

// Validates cross references between the datasets and returns the
// assembled lines, in the order they were added. Fails on the first
// integrity problem found.
func (b *NetworkBuilder) Build() ([]model.BusLine, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	for _, id := range b.stopOrder {
		if _, found := b.lines[id]; !found {
			return nil, integrityf("line", id, "has stops but no route geometry")
		}
	}

	lines := make([]model.BusLine, 0, len(b.lineOrder))
	for _, id := range b.lineOrder {
		meta := b.lines[id]

		stops, found := b.stops[id]
		if !found {
			return nil, integrityf("line", id, "has route geometry but no stops")
		}

		line := model.BusLine{
			ID:    meta.id,
			Name:  meta.name,
			Color: meta.color,
			Stops: stops,
			Route: meta.route,
		}
		if err := ValidateLine(line); err != nil {
			return nil, err
		}

		lines = append(lines, line)
	}

	return lines, nil
}

// Checks that a line and its stops have every field the graph needs.
func ValidateLine(line model.BusLine) error {
	if line.ID == "" {
		return integrityf("line", line.Name, "missing id")
	}
	if line.Name == "" {
		return integrityf("line", line.ID, "missing name")
	}
	if len(line.Route) == 0 {
		return integrityf("route", line.ID, "empty polyline")
	}

	for i, stop := range line.Stops {
		if stop.ID == "" {
			return integrityf("stop", line.ID, "stop %d missing id", i)
		}
		if stop.Name == "" {
			return integrityf("stop", stop.ID, "missing name")
		}
		if stop.Address == "" {
			return integrityf("stop", stop.ID, "missing address")
		}
		if stop.DistPrev < 0 {
			return integrityf("stop", stop.ID, "negative distance from previous stop")
		}
	}

	return nil
}
