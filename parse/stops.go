package parse

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/transit"
)

// Parses the stops dataset, a GeoJSON FeatureCollection of Point
// features in physical stop order per line, and appends each stop to
// its line. Returns the number of stops seen.
//
// Missing names and addresses are not rejected here. They surface as
// integrity errors when the network is built.
func ParseStops(b *transit.NetworkBuilder, data []byte) (int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, errors.Wrap(err, "unmarshaling stops geojson")
	}

	for i, f := range fc.Features {
		props := map[string]interface{}(f.Properties)

		lineID, ok := propString(props, "ID_RECORREGUT")
		if !ok || lineID == "" {
			return 0, fmt.Errorf("missing ID_RECORREGUT (feature %d)", i)
		}
		code, ok := propString(props, "CODI_PARADA")
		if !ok || code == "" {
			return 0, fmt.Errorf("missing CODI_PARADA (feature %d)", i)
		}

		point, ok := f.Geometry.(orb.Point)
		if !ok {
			return 0, fmt.Errorf("stop '%s' on line '%s' is not a Point (feature %d)", code, lineID, i)
		}

		// First stop of each line carries null.
		distPrev, _, err := propFloat(props, "DISTANCIA_PAR_ANTERIOR")
		if err != nil {
			return 0, errors.Wrapf(err, "stop '%s' (feature %d)", code, i)
		}

		name, _ := propString(props, "NOM_PARADA")
		address, _ := propString(props, "ADRECA")

		b.AddStop(lineID, model.Stop{
			ID:       model.StopID(code, lineID),
			Code:     code,
			Name:     name,
			Address:  address,
			Position: point,
			DistPrev: distPrev,
		})
	}

	return len(fc.Features), nil
}
