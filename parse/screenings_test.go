package parse_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/parse"
)

func TestParseScreenings(t *testing.T) {
	cet := time.FixedZone("CET", 3600)

	for _, tc := range []struct {
		name    string
		content string
		events  []model.Event
		err     bool
	}{
		{
			"local_and_rfc3339",
			`
title,cinema,lon,lat,start,language
Dune,Cinesa Diagonal,2.1365,41.3940,2023-11-02 18:30,Original
Wonka,Verdi,2.1560,41.4040,2023-11-02T20:00:00Z,Doblada`,
			[]model.Event{
				{
					Title:    "Dune",
					Cinema:   "Cinesa Diagonal",
					Location: model.Coordinate{2.1365, 41.3940},
					Start:    time.Date(2023, 11, 2, 18, 30, 0, 0, cet),
					Language: model.LanguageOriginal,
				},
				{
					Title:    "Wonka",
					Cinema:   "Verdi",
					Location: model.Coordinate{2.1560, 41.4040},
					Start:    time.Date(2023, 11, 2, 20, 0, 0, 0, time.UTC),
					Language: model.LanguageDubbed,
				},
			},
			false,
		},
		{
			"bom_and_reordered_columns",
			"\ufefflanguage,start,title,cinema,lat,lon\nOriginal,2023-11-02 18:30:15,Dune,Verdi,41.4040,2.1560",
			[]model.Event{
				{
					Title:    "Dune",
					Cinema:   "Verdi",
					Location: model.Coordinate{2.1560, 41.4040},
					Start:    time.Date(2023, 11, 2, 18, 30, 15, 0, cet),
					Language: model.LanguageOriginal,
				},
			},
			false,
		},
		{
			"empty",
			`
title,cinema,lon,lat,start,language`,
			[]model.Event{},
			false,
		},
		{
			"missing_title",
			`
title,cinema,lon,lat,start,language
,Verdi,2.1560,41.4040,2023-11-02 18:30,Original`,
			nil,
			true,
		},
		{
			"missing_location",
			`
title,cinema,lon,lat,start,language
Dune,Verdi,,,2023-11-02 18:30,Original`,
			nil,
			true,
		},
		{
			"on_the_equator_and_meridian",
			`
title,cinema,lon,lat,start,language
Dune,Greenwich,0,51.4779,2023-11-02 18:30,Original
Dune,Null Island,0.0,0,2023-11-02 18:30,Original`,
			[]model.Event{
				{
					Title:    "Dune",
					Cinema:   "Greenwich",
					Location: model.Coordinate{0, 51.4779},
					Start:    time.Date(2023, 11, 2, 18, 30, 0, 0, cet),
					Language: model.LanguageOriginal,
				},
				{
					Title:    "Dune",
					Cinema:   "Null Island",
					Location: model.Coordinate{0, 0},
					Start:    time.Date(2023, 11, 2, 18, 30, 0, 0, cet),
					Language: model.LanguageOriginal,
				},
			},
			false,
		},
		{
			"missing_lat",
			`
title,cinema,lon,lat,start,language
Dune,Greenwich,0, ,2023-11-02 18:30,Original`,
			nil,
			true,
		},
		{
			"bad_lon",
			`
title,cinema,lon,lat,start,language
Dune,Verdi,east,41.4040,2023-11-02 18:30,Original`,
			nil,
			true,
		},
		{
			"bad_start",
			`
title,cinema,lon,lat,start,language
Dune,Verdi,2.1560,41.4040,tomorrow,Original`,
			nil,
			true,
		},
		{
			"missing_start",
			`
title,cinema,lon,lat,start,language
Dune,Verdi,2.1560,41.4040,,Original`,
			nil,
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			events, err := parse.ParseScreenings(bytes.NewBufferString(tc.content), cet)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, len(tc.events), len(events))
			for i := range tc.events {
				assert.Equal(t, tc.events[i].Title, events[i].Title)
				assert.Equal(t, tc.events[i].Cinema, events[i].Cinema)
				assert.Equal(t, tc.events[i].Location, events[i].Location)
				assert.True(t, tc.events[i].Start.Equal(events[i].Start), "%s != %s", tc.events[i].Start, events[i].Start)
				assert.Equal(t, tc.events[i].Language, events[i].Language)
			}
		})
	}
}
