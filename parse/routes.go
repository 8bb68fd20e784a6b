package parse

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/PDelos/CineBus-AP2/transit"
)

// Parses the route geometry dataset, a GeoJSON FeatureCollection
// with one (Multi)LineString feature per line and direction, and
// registers each line with the builder. Returns the number of lines
// seen.
func ParseRoutes(b *transit.NetworkBuilder, data []byte) (int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, errors.Wrap(err, "unmarshaling routes geojson")
	}

	for i, f := range fc.Features {
		props := map[string]interface{}(f.Properties)

		id, ok := propString(props, "ID_RECORREGUT")
		if !ok || id == "" {
			return 0, fmt.Errorf("missing ID_RECORREGUT (feature %d)", i)
		}

		lineName, _ := propString(props, "NOM_LINIA")
		pkg, _ := propString(props, "DESC_PAQUET")
		direction, _ := propString(props, "DESC_SENTIT")
		if lineName == "" {
			return 0, fmt.Errorf("missing NOM_LINIA for line '%s' (feature %d)", id, i)
		}
		name := lineName
		if pkg != "" {
			name += " - " + pkg
		}
		if direction != "" {
			name += " (" + direction + ")"
		}

		color := ""
		if c, ok := propString(props, "COLOR_REC"); ok && c != "" {
			color = "#" + c
		}

		route, err := routeGeometry(f.Geometry)
		if err != nil {
			return 0, errors.Wrapf(err, "line '%s' (feature %d)", id, i)
		}

		b.AddLine(id, name, color, route)
	}

	return len(fc.Features), nil
}

// The TMB export wraps each route in a MultiLineString with a single
// member. Only the first member is used.
func routeGeometry(g orb.Geometry) (orb.LineString, error) {
	switch geom := g.(type) {
	case orb.LineString:
		return geom, nil
	case orb.MultiLineString:
		if len(geom) == 0 {
			return nil, fmt.Errorf("empty MultiLineString")
		}
		return geom[0], nil
	case nil:
		return nil, fmt.Errorf("missing geometry")
	}
	return nil, fmt.Errorf("unexpected geometry %s", g.GeoJSONType())
}
