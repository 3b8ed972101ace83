package geo

import (
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCity(t *testing.T) {
	cases := map[string]string{
		"Munich":        "munich",
		"  münchen ":    "munich",
		"MÜNCHEN":       "munich",
		"Muenchen":      "munich",
		"Köln":          "cologne",
		"Wien":          "vienna",
		"Springfield  ": "springfield",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCity(in), "input %q", in)
	}
}

func TestDistanceKmSelfIsZero(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 200; i++ {
		c := Coordinate{Lat: f.Latitude(), Lng: f.Longitude()}
		assert.Equal(t, 0.0, DistanceKm(c, c))
	}
}

func TestDistanceKmSymmetricAndFinite(t *testing.T) {
	f := gofakeit.New(11)
	for i := 0; i < 200; i++ {
		a := Coordinate{Lat: f.Latitude(), Lng: f.Longitude()}
		b := Coordinate{Lat: f.Latitude(), Lng: f.Longitude()}
		d := DistanceKm(a, b)
		assert.False(t, math.IsNaN(d) || math.IsInf(d, 0))
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, math.Pi*EarthRadiusKm+1e-6)
		assert.InDelta(t, d, DistanceKm(b, a), 1e-9)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	munich := Coordinate{Lat: 48.1351, Lng: 11.5820}
	berlin := Coordinate{Lat: 52.5200, Lng: 13.4050}
	assert.InDelta(t, 504, DistanceKm(munich, berlin), 5)
}

func TestResolveDistance(t *testing.T) {
	munich := &Coordinate{Lat: 48.1351, Lng: 11.5820}
	augsburg := &Coordinate{Lat: 48.3705, Lng: 10.8978}

	t.Run("same city short-circuits", func(t *testing.T) {
		assert.Equal(t, 0.0, ResolveDistance(Place{City: "Munich"}, Place{City: "münchen", Coordinate: augsburg}))
		assert.Equal(t, 0.0, ResolveDistance(Place{City: "Munich", Coordinate: munich}, Place{City: "MUNICH"}))
	})

	t.Run("coordinates", func(t *testing.T) {
		d := ResolveDistance(Place{City: "Munich", Coordinate: munich}, Place{City: "Augsburg", Coordinate: augsburg})
		assert.InDelta(t, 57, d, 3)
	})

	t.Run("unknown is infinite", func(t *testing.T) {
		assert.True(t, math.IsInf(ResolveDistance(Place{City: "Munich"}, Place{City: "Augsburg"}), 1))
		assert.True(t, math.IsInf(ResolveDistance(Place{}, Place{}), 1))
		assert.True(t, math.IsInf(ResolveDistance(Place{Coordinate: munich}, Place{City: "Berlin"}), 1))
	})
}

func TestCoordinateValid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 48.1, Lng: 11.5}.Valid())
	assert.True(t, Coordinate{Lat: -90, Lng: 180}.Valid())
	assert.False(t, Coordinate{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lng: -180.5}.Valid())
	assert.False(t, Coordinate{Lat: math.NaN(), Lng: 0}.Valid())
}
