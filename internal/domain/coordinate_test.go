package domain

import "testing"

func TestNewCoordinateRanges(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "valid", lat: 52.52, lon: 13.405},
		{name: "lat min", lat: -90, lon: 0},
		{name: "lat max", lat: 90, lon: 0},
		{name: "lon min", lat: 0, lon: -180},
		{name: "lon max", lat: 0, lon: 180},
		{name: "lat too low", lat: -90.01, lon: 0, wantErr: true},
		{name: "lat too high", lat: 91, lon: 0, wantErr: true},
		{name: "lon too low", lat: 0, lon: -180.5, wantErr: true},
		{name: "lon too high", lat: 0, lon: 181, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinate(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCoordinate(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestCoordinateKeyRounding(t *testing.T) {
	t.Parallel()
	a, err := NewCoordinate(52.5211, 13.4049)
	if err != nil {
		t.Fatalf("NewCoordinate: %v", err)
	}
	b, err := NewCoordinate(52.5207, 13.4041)
	if err != nil {
		t.Fatalf("NewCoordinate: %v", err)
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ for near-identical coordinates: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "52.52,13.40" {
		t.Fatalf("unexpected key: %q", a.Key())
	}

	c, _ := NewCoordinate(-33.8688, 151.2093)
	if c.Key() != "-33.87,151.21" {
		t.Fatalf("unexpected negative-latitude key: %q", c.Key())
	}
}
