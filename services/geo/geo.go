package geo

import (
	"math"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c lies within [-90, 90] latitude and [-180, 180] longitude.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Place is anything that can be located by a free-text city and an optional coordinate.
type Place struct {
	City       string
	Coordinate *Coordinate
}

// cityAliases maps regional spellings to one canonical key. Keys are already lower-cased.
var cityAliases = map[string]string{
	"münchen":           "munich",
	"muenchen":          "munich",
	"munchen":           "munich",
	"köln":              "cologne",
	"koeln":             "cologne",
	"koln":              "cologne",
	"nürnberg":          "nuremberg",
	"nuernberg":         "nuremberg",
	"nurnberg":          "nuremberg",
	"düsseldorf":        "dusseldorf",
	"duesseldorf":       "dusseldorf",
	"frankfurt am main": "frankfurt",
	"frankfurt a.m.":    "frankfurt",
	"wien":              "vienna",
	"zürich":            "zurich",
	"zuerich":           "zurich",
	"genève":            "geneva",
	"geneve":            "geneva",
	"genf":              "geneva",
	"praha":             "prague",
	"warszawa":          "warsaw",
	"kraków":            "krakow",
	"lisboa":            "lisbon",
	"roma":              "rome",
	"milano":            "milan",
	"firenze":           "florence",
	"napoli":            "naples",
	"københavn":         "copenhagen",
	"kobenhavn":         "copenhagen",
	"bruxelles":         "brussels",
	"brussel":           "brussels",
	"den haag":          "the hague",
	"'s-gravenhage":     "the hague",
}

// NormalizeCity lower-cases and trims raw and maps known spelling variants to a
// canonical key. Unknown inputs come back normalized but unmapped.
func NormalizeCity(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := cityAliases[key]; ok {
		return canonical
	}
	return key
}

// SameCity reports whether two free-text cities resolve to the same non-empty key.
func SameCity(a, b string) bool {
	ka := NormalizeCity(a)
	return ka != "" && ka == NormalizeCity(b)
}

// DistanceKm returns the great-circle distance between a and b using the haversine formula.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h marginally outside [0,1] for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// ResolveDistance applies the distance policy: same city is 0, two coordinates use
// DistanceKm, anything else is +Inf.
func ResolveDistance(a, b Place) float64 {
	if SameCity(a.City, b.City) {
		return 0
	}
	if a.Coordinate != nil && b.Coordinate != nil {
		return DistanceKm(*a.Coordinate, *b.Coordinate)
	}
	return math.Inf(1)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
