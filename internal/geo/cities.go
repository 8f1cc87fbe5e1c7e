package geo

import "strings"

// City is one row of the lookup table.
type City struct {
	Name string
	Point
}

// defaultCities is scanned top to bottom and the first contained name wins,
// so metro anchors come before suburbs and street-name collisions
// ("Washington Ave", "Katy Fwy") resolve to the city listed first.
var defaultCities = []City{
	{"Houston", Point{29.7604, -95.3698}},
	{"Sugar Land", Point{29.6197, -95.6349}},
	{"Pearland", Point{29.5636, -95.2860}},
	{"Katy", Point{29.7858, -95.8245}},
	{"Dallas", Point{32.7767, -96.7970}},
	{"Fort Worth", Point{32.7555, -97.3308}},
	{"Garland", Point{32.9126, -96.6389}},
	{"Arlington", Point{32.7357, -97.1081}},
	{"Austin", Point{30.2672, -97.7431}},
	{"San Antonio", Point{29.4241, -98.4936}},
	{"San Jose", Point{37.3382, -121.8863}},
	{"San Francisco", Point{37.7749, -122.4194}},
	{"Oakland", Point{37.8044, -122.2712}},
	{"Sacramento", Point{38.5816, -121.4944}},
	{"Westminster", Point{33.7513, -117.9940}},
	{"Garden Grove", Point{33.7739, -117.9414}},
	{"Fountain Valley", Point{33.7092, -117.9537}},
	{"Santa Ana", Point{33.7455, -117.8677}},
	{"Anaheim", Point{33.8366, -117.9143}},
	{"Los Angeles", Point{34.0522, -118.2437}},
	{"San Diego", Point{32.7157, -117.1611}},
	{"Seattle", Point{47.6062, -122.3321}},
	{"Portland", Point{45.5152, -122.6784}},
	{"Phoenix", Point{33.4484, -112.0740}},
	{"Las Vegas", Point{36.1699, -115.1398}},
	{"Denver", Point{39.7392, -104.9903}},
	{"Oklahoma City", Point{35.4676, -97.5164}},
	{"New Orleans", Point{29.9511, -90.0715}},
	{"Atlanta", Point{33.7490, -84.3880}},
	{"Orlando", Point{28.5383, -81.3792}},
	{"Chicago", Point{41.8781, -87.6298}},
	{"Minneapolis", Point{44.9778, -93.2650}},
	{"Philadelphia", Point{39.9526, -75.1652}},
	{"Boston", Point{42.3601, -71.0589}},
	{"New York", Point{40.7128, -74.0060}},
	{"Falls Church", Point{38.8823, -77.1711}},
	{"Washington", Point{38.9072, -77.0369}},
}

// Resolver maps free text to the coordinates of the first contained city name.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	cities []City
	lower  []string
}

// NewResolver builds a resolver over cities, preserving their order.
func NewResolver(cities []City) *Resolver {
	r := &Resolver{
		cities: make([]City, len(cities)),
		lower:  make([]string, len(cities)),
	}
	copy(r.cities, cities)
	for i, c := range cities {
		r.lower[i] = strings.ToLower(c.Name)
	}
	return r
}

// DefaultResolver returns a resolver over the built-in city table.
func DefaultResolver() *Resolver {
	return NewResolver(defaultCities)
}

// Resolve returns the first city whose name is contained, case-insensitively,
// in text.
func (r *Resolver) Resolve(text string) (Point, bool) {
	if text == "" {
		return Point{}, false
	}
	haystack := strings.ToLower(text)
	for i, name := range r.lower {
		if name != "" && strings.Contains(haystack, name) {
			return r.cities[i].Point, true
		}
	}
	return Point{}, false
}

// ResolveAny tries each text in turn and returns the first match.
func (r *Resolver) ResolveAny(texts ...string) (Point, bool) {
	for _, t := range texts {
		if p, ok := r.Resolve(t); ok {
			return p, true
		}
	}
	return Point{}, false
}

// Len returns the number of table entries.
func (r *Resolver) Len() int {
	return len(r.cities)
}
