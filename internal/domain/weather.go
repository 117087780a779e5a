package domain

import (
	"strconv"
	"time"
)

// Temperature is a decimal-precision value with a unit (always Celsius for
// the Open-Meteo provider).
type Temperature struct {
	Value float64
	Unit  string
}

func Celsius(v float64) Temperature { return Temperature{Value: v, Unit: "C"} }

func (t Temperature) String() string {
	return strconv.FormatFloat(t.Value, 'f', -1, 64) + "°" + t.Unit
}

// Condition is a provider weather code mapped to a human description.
type Condition struct {
	Code        int
	Description string
}

// WeatherSnapshot is the cached observation for one coordinate.
// Immutable once fetched.
type WeatherSnapshot struct {
	Temperature Temperature
	Condition   Condition
	WindSpeed   float64 // m/s
	ObservedAt  time.Time
}
