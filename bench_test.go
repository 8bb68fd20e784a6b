package cinebus_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	cinebus "github.com/PDelos/CineBus-AP2"
	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/testutil"
	"github.com/PDelos/CineBus-AP2/transit"
)

const benchGrid = 30

// A 30x30 grid of 100m blocks, with a line up every fifth column and
// one along every fifth row.
func benchStreetAndTransit(b *testing.B) (*graph.Graph, *graph.Graph) {
	street := testutil.StreetGrid(b, testutil.Origin, benchGrid, benchGrid, 100, cinebus.DefaultWalkingSpeed)

	lines := []model.BusLine{}
	for i := 0; i < benchGrid; i += 5 {
		north := []orb.Point{}
		east := []orb.Point{}
		for j := 0; j < benchGrid; j += 2 {
			north = append(north, testutil.Offset(testutil.Offset(testutil.Origin, 90, float64(i)*100+7), 0, float64(j)*100))
			east = append(east, testutil.Offset(testutil.Offset(testutil.Origin, 0, float64(i)*100+7), 90, float64(j)*100))
		}
		lines = append(lines,
			testutil.Line(fmt.Sprintf("V%d", i), north...),
			testutil.Line(fmt.Sprintf("H%d", i), east...),
		)
	}

	g, err := transit.BuildGraph(lines, transit.Options{BusSpeed: transit.DefaultBusSpeed})
	require.NoError(b, err)
	return street, g
}

func benchCity(b *testing.B) *cinebus.City {
	street, tr := benchStreetAndTransit(b)
	g, err := cinebus.Compose(street, tr, cinebus.DefaultComposeOptions())
	require.NoError(b, err)
	return cinebus.NewCity(g)
}

func benchCompose(b *testing.B) {
	street, tr := benchStreetAndTransit(b)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := cinebus.Compose(street, tr, cinebus.DefaultComposeOptions())
		if err != nil {
			b.Error(err)
		}
	}
}

func benchNearestNode(b *testing.B) {
	city := benchCity(b)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		p := testutil.Offset(testutil.Origin, float64(i%90), float64(i%3000))
		_, err := city.NearestNode(p)
		if err != nil {
			b.Error(err)
		}
	}
}

func benchTravelTime(b *testing.B) {
	city := benchCity(b)
	corner := testutil.Offset(testutil.Offset(testutil.Origin, 0, 2900), 90, 2900)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := city.TravelTime(testutil.Origin, corner)
		if err != nil {
			b.Error(err)
		}
	}
}

func benchFindEarliestFeasible(b *testing.B) {
	city := benchCity(b)
	now := time.Date(2023, 11, 2, 18, 0, 0, 0, time.UTC)

	events := []model.Event{}
	for i := 0; i < 20; i++ {
		events = append(events, model.Event{
			Title:    fmt.Sprintf("Film %d", i%4),
			Cinema:   fmt.Sprintf("Cinema %d", i),
			Location: testutil.Offset(testutil.Origin, float64(i*4), float64(500+i*100)),
			Start:    now.Add(time.Duration(i) * 5 * time.Minute),
		})
	}
	events = cinebus.SortByStartTime(now, events)
	filter := cinebus.MatchTitleLanguage("Film 3", "")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _, err := cinebus.FindEarliestFeasible(now, events, filter, city, testutil.Origin)
		if err != nil {
			b.Error(err)
		}
	}
}

func BenchmarkCity(b *testing.B) {
	for _, test := range []struct {
		Name  string
		Bench func(b *testing.B)
	}{
		{"Compose", benchCompose},
		{"NearestNode", benchNearestNode},
		{"TravelTime", benchTravelTime},
		{"FindEarliestFeasible", benchFindEarliestFeasible},
	} {
		b.Run(test.Name, test.Bench)
	}
}
