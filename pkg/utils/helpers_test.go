package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	t.Run("zero distance to itself", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(37.7749, -122.4194, 37.7749, -122.4194))
	})

	t.Run("symmetry", func(t *testing.T) {
		d1 := Haversine(37.7749, -122.4194, 40.7128, -74.0060)
		d2 := Haversine(40.7128, -74.0060, 37.7749, -122.4194)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("san francisco to new york", func(t *testing.T) {
		d := Haversine(37.7749, -122.4194, 40.7128, -74.0060)
		// Great-circle distance is ~4130 km on the spherical approximation.
		assert.InDelta(t, 4130, d, 10)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := Haversine(0, 0, 1, 0)
		assert.InDelta(t, 111.19, d, 0.1)
	})
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name            string
		value, min, max float64
		want            float64
	}{
		{"below", -0.5, 0, 1, 0},
		{"above", 1.5, 0, 1, 1},
		{"inside", 0.25, 0, 1, 0.25},
		{"at min", 0, 0, 1, 0},
		{"at max", 1, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.value, tt.min, tt.max))
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		places int
		want   float64
	}{
		{"three places", 0.99077, 3, 0.991},
		{"six places", 37.7748999, 6, 37.7749},
		{"zero places", 2.5, 0, 3},
		{"negative value", -122.4199501, 6, -122.41995},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RoundTo(tt.value, tt.places), 1e-9)
		})
	}
}
