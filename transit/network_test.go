package transit_test

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDelos/CineBus-AP2/transit"
)

func TestNetworkBuilder(t *testing.T) {
	b := transit.NewNetworkBuilder()
	b.AddLine("2", "V15 - Barceloneta (Anada)", "#3c9ad4", orb.LineString{east(0), east(300)})
	b.AddLine("1", "H6 - Zona Universitària (Tornada)", "#e0162b", orb.LineString{east(0), east(100)})

	b.AddStop("1", stop("10", "1", east(0), 0))
	b.AddStop("2", stop("20", "2", east(0), 0))
	b.AddStop("1", stop("11", "1", east(100), 100))
	b.AddStop("2", stop("21", "2", east(300), 300))

	lines, err := b.Build()
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// Routes dataset order
	assert.Equal(t, "2", lines[0].ID)
	assert.Equal(t, "V15 - Barceloneta (Anada)", lines[0].Name)
	assert.Equal(t, "#3c9ad4", lines[0].Color)
	assert.Equal(t, orb.LineString{east(0), east(300)}, lines[0].Route)

	assert.Equal(t, "1", lines[1].ID)
	require.Len(t, lines[1].Stops, 2)
	assert.Equal(t, "10-1", lines[1].Stops[0].ID)
	assert.Equal(t, "11-1", lines[1].Stops[1].ID)
}

func TestNetworkBuilderIntegrity(t *testing.T) {
	route := orb.LineString{east(0), east(100)}

	for _, tc := range []struct {
		name  string
		setup func(b *transit.NetworkBuilder)
		kind  string
		id    string
	}{
		{
			"stops without route",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", route)
				b.AddStop("1", stop("10", "1", east(0), 0))
				b.AddStop("9", stop("90", "9", east(0), 0))
			},
			"line", "9",
		},
		{
			"route without stops",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", route)
				b.AddLine("2", "B", "#000000", route)
				b.AddStop("1", stop("10", "1", east(0), 0))
			},
			"line", "2",
		},
		{
			"duplicate line",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", route)
				b.AddLine("1", "B", "#000000", route)
				b.AddStop("1", stop("10", "1", east(0), 0))
			},
			"line", "1",
		},
		{
			"empty polyline",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", orb.LineString{})
				b.AddStop("1", stop("10", "1", east(0), 0))
			},
			"route", "1",
		},
		{
			"stop without name",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", route)
				s := stop("10", "1", east(0), 0)
				s.Name = ""
				b.AddStop("1", s)
			},
			"stop", "10-1",
		},
		{
			"stop without address",
			func(b *transit.NetworkBuilder) {
				b.AddLine("1", "A", "#000000", route)
				s := stop("10", "1", east(0), 0)
				s.Address = ""
				b.AddStop("1", s)
			},
			"stop", "10-1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := transit.NewNetworkBuilder()
			tc.setup(b)

			lines, err := b.Build()
			require.Error(t, err)
			assert.Nil(t, lines)
			assert.ErrorIs(t, err, transit.ErrDataIntegrity)

			integrityErr := &transit.IntegrityError{}
			require.True(t, errors.As(err, &integrityErr))
			assert.Equal(t, tc.kind, integrityErr.Kind)
			assert.Equal(t, tc.id, integrityErr.ID)
			assert.Contains(t, err.Error(), tc.id)
		})
	}
}
