package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDensity(t *testing.T) {
	tests := []struct {
		name    string
		density float64
		want    string
	}{
		{"well above core threshold", 25000, UrbanCore},
		{"exactly core threshold", 10000, UrbanCore},
		{"just below core threshold", 9999.9, InnerSuburban},
		{"exactly inner threshold", 3000, InnerSuburban},
		{"just below inner threshold", 2999.9, OuterSuburban},
		{"sparse", 12, OuterSuburban},
		{"zero", 0, UnknownClass},
		{"negative", -5, UnknownClass},
		{"NaN", math.NaN(), UnknownClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDensity(tt.density, 10000, 3000))
		})
	}
}

func TestDerivePercentages(t *testing.T) {
	a := AreaDemographics{
		TractDemographics: TractDemographics{
			TotalUnits:      200,
			SingleFamily:    150,
			Duplex:          10,
			Multifamily:     50,
			YearBuiltTotal:  100,
			Built2010Plus:   25,
			BuiltPre1970:    50,
			Built1970To2009: 25,
		},
	}
	a.DerivePercentages()

	assert.InDelta(t, 75, a.PctSingleFamily, 1e-9)
	assert.InDelta(t, 5, a.PctDuplex, 1e-9)
	assert.InDelta(t, 25, a.PctMultifamily, 1e-9)
	assert.InDelta(t, 25, a.PctBuilt2010Plus, 1e-9)
	assert.InDelta(t, 50, a.PctBuiltPre1970, 1e-9)
}

func TestDerivePercentages_ZeroDenominators(t *testing.T) {
	var a AreaDemographics
	a.DerivePercentages()

	assert.Zero(t, a.PctSingleFamily)
	assert.Zero(t, a.PctMultifamily)
	assert.Zero(t, a.PctBuilt2010Plus)
}
