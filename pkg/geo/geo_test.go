package geo

import (
	"math"
	"testing"

	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

func TestDistanceMeters_KnownPairs(t *testing.T) {
	// London Eye to Big Ben is roughly 320m.
	eye := Point{Latitude: 51.503324, Longitude: -0.119543}
	ben := Point{Latitude: 51.500729, Longitude: -0.124625}

	got := DistanceMeters(eye, ben)
	if got < 280 || got > 360 {
		t.Fatalf("expected ~320m, got %f", got)
	}
}

func TestDistanceMeters_ZeroForSamePoint(t *testing.T) {
	p := Point{Latitude: 53.4808, Longitude: -2.2426}
	if got := DistanceMeters(p, p); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := Point{Latitude: 51.5, Longitude: -0.12}
	b := Point{Latitude: 48.8566, Longitude: 2.3522}
	if d1, d2 := DistanceMeters(a, b), DistanceMeters(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("expected symmetric distance, got %f and %f", d1, d2)
	}
}

func TestWithinRadius(t *testing.T) {
	site := Point{Latitude: 51.5, Longitude: -0.12}
	near := Point{Latitude: 51.5003, Longitude: -0.12}
	far := Point{Latitude: 51.51, Longitude: -0.12}

	if !WithinRadius(site, near, 500) {
		t.Fatal("expected ~33m point to be within 500m")
	}
	if WithinRadius(site, far, 500) {
		t.Fatal("expected ~1.1km point to be outside 500m")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"valid", Point{51.5, -0.12}, false},
		{"lat too high", Point{90.1, 0}, true},
		{"lat too low", Point{-90.1, 0}, true},
		{"lon too high", Point{0, 180.1}, true},
		{"lon too low", Point{0, -180.1}, true},
		{"nan", Point{math.NaN(), 0}, true},
		{"boundary", Point{90, -180}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.point.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				typed := pkgerrors.As(err)
				if typed == nil || typed.Code() != pkgerrors.CodeValidation {
					t.Fatalf("expected validation code got %v", err)
				}
			}
		})
	}
}
