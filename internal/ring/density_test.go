package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDensityReferenceValue(t *testing.T) {
	// Fixed reference from the community tooling this must stay
	// bit-compatible with.
	d, ok := Density(44934000000, 108800000, 115180000)
	assert.True(t, ok)
	assert.InDelta(t, 10.009106, d, 1e-9)
}

func TestDensityDeterministic(t *testing.T) {
	a, okA := Density(1.5e10, 5.0e7, 9.0e7)
	b, okB := Density(1.5e10, 5.0e7, 9.0e7)
	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, a, b)
}

func TestDensityInvalidInputs(t *testing.T) {
	tests := []struct {
		name               string
		mass, inner, outer float64
	}{
		{"zero mass", 0, 1e8, 2e8},
		{"negative mass", -1, 1e8, 2e8},
		{"zero inner radius", 1e10, 0, 2e8},
		{"zero outer radius", 1e10, 1e8, 0},
		{"negative inner radius", 1e10, -1e8, 2e8},
		{"negative outer radius", 1e10, 1e8, -2e8},
		{"inner equals outer", 1e10, 2e8, 2e8},
		{"inner greater than outer", 1e10, 3e8, 2e8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Density(tt.mass, tt.inner, tt.outer)
			assert.False(t, ok)
			assert.Zero(t, d)
		})
	}
}

func TestDensityPtr(t *testing.T) {
	mass := 44934000000.0
	inner := 108800000.0
	outer := 115180000.0

	d := DensityPtr(&mass, &inner, &outer)
	if assert.NotNil(t, d) {
		assert.InDelta(t, 10.009106, *d, 1e-9)
	}

	assert.Nil(t, DensityPtr(nil, &inner, &outer))
	assert.Nil(t, DensityPtr(&mass, nil, &outer))
	assert.Nil(t, DensityPtr(&mass, &inner, nil))

	bad := 0.0
	assert.Nil(t, DensityPtr(&bad, &inner, &outer))
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeMetallic, ParseType("eRingClass_Metalic"))
	assert.Equal(t, TypeMetallic, ParseType("Metallic"))
	assert.Equal(t, TypeMetalRich, ParseType("eRingClass_MetalRich"))
	assert.Equal(t, TypeMetalRich, ParseType("Metal Rich"))
	assert.Equal(t, TypeRocky, ParseType("Rocky"))
	assert.Equal(t, TypeIcy, ParseType("eRingClass_Icy"))
	assert.Equal(t, TypeUnknown, ParseType("NoSuchClass"))
	assert.Equal(t, TypeUnknown, ParseType(""))
	assert.False(t, TypeUnknown.Known())
	assert.True(t, TypeIcy.Known())
}

func TestParseReserveLevel(t *testing.T) {
	assert.Equal(t, ReservePristine, ParseReserveLevel("PristineResources"))
	assert.Equal(t, ReservePristine, ParseReserveLevel("Pristine"))
	assert.Equal(t, ReserveDepleted, ParseReserveLevel("DepletedResources"))
	assert.Equal(t, ReserveUnknown, ParseReserveLevel("bogus"))
}

func TestOriginFidelity(t *testing.T) {
	assert.Greater(t, OriginJournal.Fidelity(), OriginImport.Fidelity())
	assert.Greater(t, OriginImport.Fidelity(), OriginLiveFeed.Fidelity())
	assert.Greater(t, OriginLiveFeed.Fidelity(), Origin("").Fidelity())
}
