package domain

import (
	"fmt"
	"strconv"
)

// Coordinate is a validated geographic point.
// Construct it through NewCoordinate; the zero value is the null island and
// should only appear in tests.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate validates the ranges and returns a coordinate.
// Out-of-range values are a hard validation error, never clamped.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	if latitude < -90 || latitude > 90 {
		return Coordinate{}, fmt.Errorf("latitude %v out of range [-90,90]", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return Coordinate{}, fmt.Errorf("longitude %v out of range [-180,180]", longitude)
	}
	return Coordinate{Latitude: latitude, Longitude: longitude}, nil
}

// Key returns a cache key with coordinates rounded to two decimal places
// (~1 km), so formatting noise from the geocoder does not multiply cache
// entries.
func (c Coordinate) Key() string {
	return strconv.FormatFloat(round2(c.Latitude), 'f', 2, 64) + "," +
		strconv.FormatFloat(round2(c.Longitude), 'f', 2, 64)
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
