package cinebus_test

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cinebus "github.com/PDelos/CineBus-AP2"
	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/testutil"
	"github.com/PDelos/CineBus-AP2/transit"
)

func buildTransit(t *testing.T, lines ...model.BusLine) *graph.Graph {
	g, err := transit.BuildGraph(lines, transit.Options{BusSpeed: transit.DefaultBusSpeed})
	require.NoError(t, err)
	return g
}

func TestComposeEdgeCount(t *testing.T) {
	// 10 street nodes
	street := testutil.StreetGrid(t, testutil.Origin, 2, 5, 100, cinebus.DefaultWalkingSpeed)
	require.Equal(t, 10, street.NodeCount())

	// Two stops 500m apart
	a := testutil.Offset(testutil.Origin, 180, 30)
	b := testutil.Offset(a, 90, 500)
	tr := buildTransit(t, testutil.Line("1", a, b))
	require.Equal(t, 1, tr.EdgeCount())

	city, err := cinebus.Compose(street, tr, cinebus.DefaultComposeOptions())
	require.NoError(t, err)

	assert.Equal(t, street.NodeCount()+2, city.NodeCount())
	assert.Equal(t, street.EdgeCount()+tr.EdgeCount()+2*2, city.EdgeCount())

	// Inputs are copied unchanged
	for _, e := range street.Edges() {
		got, found := city.Edge(e.From, e.To)
		require.True(t, found)
		assert.Equal(t, e, got)
	}
	bus, found := city.Edge("100-1", "101-1")
	require.True(t, found)
	assert.Equal(t, graph.EdgeBus, bus.Kind)
}

func TestComposeAccessEgress(t *testing.T) {
	street := testutil.StreetGrid(t, testutil.Origin, 3, 3, 100, cinebus.DefaultWalkingSpeed)

	// Nearest corners are "1" (south west) and "9" (north east).
	a := testutil.Offset(testutil.Origin, 225, 20)
	b := testutil.Offset(testutil.Offset(testutil.Offset(testutil.Origin, 0, 200), 90, 200), 45, 15)
	tr := buildTransit(t, testutil.Line("7", a, b))

	for _, tc := range []struct {
		name    string
		penalty time.Duration
	}{
		{"default", cinebus.DefaultWaitPenalty},
		{"no_wait", 0},
		{"long_wait", 20 * time.Minute},
	} {
		t.Run(tc.name, func(t *testing.T) {
			city, err := cinebus.Compose(street, tr, cinebus.ComposeOptions{
				WalkingSpeed: cinebus.DefaultWalkingSpeed,
				WaitPenalty:  tc.penalty,
			})
			require.NoError(t, err)

			for _, pair := range []struct {
				stop   string
				corner string
				pos    orb.Point
			}{
				{"100-7", "1", a},
				{"101-7", "9", b},
			} {
				corner, found := city.Node(pair.corner)
				require.True(t, found)

				access, found := city.Edge(pair.corner, pair.stop)
				require.True(t, found)
				egress, found := city.Edge(pair.stop, pair.corner)
				require.True(t, found)

				assert.Equal(t, graph.EdgeAccess, access.Kind)
				assert.Equal(t, graph.EdgeEgress, egress.Kind)
				assert.InDelta(t, tc.penalty.Seconds(), access.Cost-egress.Cost, 1e-9)

				dist := model.Distance(corner.Position, pair.pos)
				assert.InDelta(t, dist/cinebus.DefaultWalkingSpeed, egress.Cost, 1e-9)
				assert.InDelta(t, dist, access.Length, 1e-9)

				assert.Equal(t, orb.LineString{corner.Position, pair.pos}, access.Path)
				assert.Equal(t, orb.LineString{pair.pos, corner.Position}, egress.Path)
				assert.Equal(t, "#ff0000", access.Color)
			}

			// Exactly one corner per stop
			for _, stop := range []string{"100-7", "101-7"} {
				n := 0
				for _, e := range city.OutEdges(stop) {
					if e.Kind == graph.EdgeEgress {
						n++
					}
				}
				assert.Equal(t, 1, n)
			}
		})
	}
}

func TestComposeOnlyLinksToStreets(t *testing.T) {
	street := testutil.StreetGrid(t, testutil.Origin, 2, 2, 100, cinebus.DefaultWalkingSpeed)

	// The second line's stop sits right on top of the first line's
	// stop, and much closer to it than to any corner.
	p := testutil.Offset(testutil.Origin, 135, 40)
	tr := buildTransit(t,
		testutil.Line("1", p, testutil.Offset(p, 90, 200)),
		testutil.Line("2", p, testutil.Offset(p, 0, 200)),
	)

	city, err := cinebus.Compose(street, tr, cinebus.DefaultComposeOptions())
	require.NoError(t, err)

	for _, e := range city.Edges() {
		switch e.Kind {
		case graph.EdgeAccess:
			from, _ := city.Node(e.From)
			to, _ := city.Node(e.To)
			assert.Equal(t, graph.KindStreet, from.Kind)
			assert.Equal(t, graph.KindStop, to.Kind)
		case graph.EdgeEgress:
			from, _ := city.Node(e.From)
			to, _ := city.Node(e.To)
			assert.Equal(t, graph.KindStop, from.Kind)
			assert.Equal(t, graph.KindStreet, to.Kind)
		}
	}
}

func TestComposeNoStops(t *testing.T) {
	street := testutil.StreetGrid(t, testutil.Origin, 2, 2, 100, cinebus.DefaultWalkingSpeed)

	city, err := cinebus.Compose(street, graph.NewBuilder().Build(), cinebus.DefaultComposeOptions())
	require.NoError(t, err)
	assert.Equal(t, street.NodeCount(), city.NodeCount())
	assert.Equal(t, street.EdgeCount(), city.EdgeCount())
}

func TestComposeErrors(t *testing.T) {
	street := testutil.StreetGrid(t, testutil.Origin, 2, 2, 100, cinebus.DefaultWalkingSpeed)
	tr := buildTransit(t, testutil.Line("1", testutil.Origin, testutil.Offset(testutil.Origin, 90, 100)))

	// Bad options
	for _, opts := range []cinebus.ComposeOptions{
		{WalkingSpeed: 0, WaitPenalty: time.Minute},
		{WalkingSpeed: -1.4, WaitPenalty: time.Minute},
		{WalkingSpeed: 1.4, WaitPenalty: -time.Minute},
	} {
		_, err := cinebus.Compose(street, tr, opts)
		assert.Error(t, err)
	}

	// No street to link stops to
	_, err := cinebus.Compose(graph.NewBuilder().Build(), tr, cinebus.DefaultComposeOptions())
	assert.ErrorIs(t, err, graph.ErrNotFound)

	// Ids collide
	b := graph.NewBuilder()
	require.NoError(t, b.AddNode(graph.Node{ID: "100-1", Kind: graph.KindStreet, Position: testutil.Origin}))
	_, err = cinebus.Compose(b.Build(), tr, cinebus.DefaultComposeOptions())
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)
}

func TestBuildCityGraph(t *testing.T) {
	street := testutil.StreetGrid(t, testutil.Origin, 2, 5, 100, cinebus.DefaultWalkingSpeed)
	line := testutil.Line("1",
		testutil.Offset(testutil.Origin, 180, 30),
		testutil.Offset(testutil.Offset(testutil.Origin, 180, 30), 90, 400),
	)

	city, err := cinebus.BuildCityGraph(cinebus.Datasets{
		Routes:  testutil.RoutesGeoJSON(t, line),
		Stops:   testutil.StopsGeoJSON(t, line),
		Streets: testutil.StreetsJSON(t, street),
	}, cinebus.DefaultBuildOptions())
	require.NoError(t, err)

	assert.Equal(t, 12, city.NodeCount())
	assert.Equal(t, street.EdgeCount()+1+4, city.EdgeCount())

	// Street costs survive the round trip through JSON
	for _, e := range street.Edges() {
		got, found := city.Edge(e.From, e.To)
		require.True(t, found)
		assert.InDelta(t, e.Cost, got.Cost, 1e-9)
	}

	// Bad options are caught by the graph builders
	_, err = cinebus.BuildCityGraph(cinebus.Datasets{
		Routes:  testutil.RoutesGeoJSON(t, line),
		Stops:   testutil.StopsGeoJSON(t, line),
		Streets: testutil.StreetsJSON(t, street),
	}, cinebus.BuildOptions{WalkingSpeed: 1.4, BusSpeed: 0})
	assert.Error(t, err)
}
