package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

// Serializes lines as a routes dataset, in the open data portal's
// GeoJSON layout.
func RoutesGeoJSON(t testing.TB, lines ...model.BusLine) []byte {
	fc := geojson.NewFeatureCollection()
	for _, line := range lines {
		f := geojson.NewFeature(line.Route)
		f.Properties["ID_RECORREGUT"] = line.ID
		f.Properties["NOM_LINIA"] = line.Name
		f.Properties["COLOR_REC"] = strings.TrimPrefix(line.Color, "#")
		fc.Append(f)
	}

	buf, err := fc.MarshalJSON()
	require.NoError(t, err)
	return buf
}

// Serializes the stops of lines as a stops dataset.
func StopsGeoJSON(t testing.TB, lines ...model.BusLine) []byte {
	fc := geojson.NewFeatureCollection()
	for _, line := range lines {
		for i, stop := range line.Stops {
			f := geojson.NewFeature(stop.Position)
			f.Properties["ID_RECORREGUT"] = line.ID
			f.Properties["CODI_PARADA"] = stop.Code
			f.Properties["NOM_PARADA"] = stop.Name
			f.Properties["ADRECA"] = stop.Address
			if i > 0 {
				f.Properties["DISTANCIA_PAR_ANTERIOR"] = stop.DistPrev
			} else {
				f.Properties["DISTANCIA_PAR_ANTERIOR"] = nil
			}
			fc.Append(f)
		}
	}

	buf, err := fc.MarshalJSON()
	require.NoError(t, err)
	return buf
}

// Serializes the street nodes and edges of g as node-link JSON.
func StreetsJSON(t testing.TB, g *graph.Graph) []byte {
	type node struct {
		ID json.Number `json:"id"`
		X  float64     `json:"x"`
		Y  float64     `json:"y"`
	}
	type link struct {
		Source json.Number `json:"source"`
		Target json.Number `json:"target"`
		Length float64     `json:"length"`
	}

	doc := struct {
		Directed bool   `json:"directed"`
		Nodes    []node `json:"nodes"`
		Links    []link `json:"links"`
	}{Directed: true}

	for _, n := range g.Nodes(graph.KindStreet) {
		doc.Nodes = append(doc.Nodes, node{
			ID: json.Number(n.ID),
			X:  n.Position[0],
			Y:  n.Position[1],
		})
	}
	for _, e := range g.Edges() {
		if e.Kind != graph.EdgeStreet {
			continue
		}
		doc.Links = append(doc.Links, link{
			Source: json.Number(e.From),
			Target: json.Number(e.To),
			Length: e.Length,
		})
	}

	buf, err := json.Marshal(doc)
	require.NoError(t, err)
	return buf
}
