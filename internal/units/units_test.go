package units

import (
	"math"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestNormalizeTemperature(t *testing.T) {
	cases := []struct {
		name  string
		value *float64
		unit  *string
		wantC float64
		wantF float64
	}{
		{"celsius", ptr(25.0), ptr("CELSIUS"), 25, 77},
		{"fahrenheit", ptr(212.0), ptr("fahrenheit"), 100, 212},
		{"missing unit defaults to celsius", ptr(0.0), nil, 0, 32},
		{"unknown unit defaults to celsius", ptr(-40.0), ptr("KELVIN?"), -40, -40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, f := NormalizeTemperature(tc.value, tc.unit)
			if c == nil || f == nil {
				t.Fatalf("expected values, got nil")
			}
			if !approx(*c, tc.wantC) || !approx(*f, tc.wantF) {
				t.Fatalf("got (%.2f, %.2f), want (%.2f, %.2f)", *c, *f, tc.wantC, tc.wantF)
			}
		})
	}

	if c, f := NormalizeTemperature(nil, ptr("CELSIUS")); c != nil || f != nil {
		t.Fatalf("expected nil pair for missing temperature")
	}
}

func TestNormalizeWindSpeed(t *testing.T) {
	k, m := NormalizeWindSpeed(ptr(10.0), ptr("KILOMETERS_PER_HOUR"))
	if !approx(*k, 10) || !approx(*m, 6.21) {
		t.Fatalf("kph: got (%.2f, %.2f)", *k, *m)
	}

	k, m = NormalizeWindSpeed(ptr(10.0), ptr("MPH"))
	if !approx(*k, 16.09) || !approx(*m, 10) {
		t.Fatalf("mph: got (%.2f, %.2f)", *k, *m)
	}

	// Unknown unit falls back to meters per second.
	k, m = NormalizeWindSpeed(ptr(10.0), nil)
	if !approx(*k, 36) || !approx(*m, 22.37) {
		t.Fatalf("m/s: got (%.2f, %.2f)", *k, *m)
	}

	if k, m := NormalizeWindSpeed(nil, nil); k != nil || m != nil {
		t.Fatalf("expected nil pair for missing wind speed")
	}
}

func TestDegreesToCardinal(t *testing.T) {
	cases := map[float64]string{
		0:     "N",
		11.2:  "N",
		11.3:  "NNE",
		90:    "E",
		180:   "S",
		270:   "W",
		348.7: "NNW",
		359:   "N",
		-90:   "W",
		450:   "E",
	}
	for deg, want := range cases {
		if got := DegreesToCardinal(deg); got != want {
			t.Errorf("DegreesToCardinal(%v) = %s, want %s", deg, got, want)
		}
	}
}
