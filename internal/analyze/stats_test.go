package analyze

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

func TestWelchTTest(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}

	tStat, p := WelchTTest(a, b)
	assert.InDelta(t, -1.897, tStat, 1e-3)
	assert.InDelta(t, 0.1066, p, 5e-3)

	// Symmetric in sign.
	tStat2, p2 := WelchTTest(b, a)
	assert.InDelta(t, -tStat, tStat2, 1e-9)
	assert.InDelta(t, p, p2, 1e-9)
}

func TestWelchTTest_Degenerate(t *testing.T) {
	tStat, p := WelchTTest([]float64{1}, []float64{2, 3})
	assert.True(t, math.IsNaN(tStat))
	assert.True(t, math.IsNaN(p))

	// Identical constant samples have zero standard error.
	tStat, _ = WelchTTest([]float64{5, 5, 5}, []float64{5, 5, 5})
	assert.True(t, math.IsNaN(tStat))
}

func TestOneWayANOVA(t *testing.T) {
	f, p := OneWayANOVA(
		[]float64{1, 2, 3},
		[]float64{2, 3, 4},
		[]float64{4, 5, 6},
	)
	assert.InDelta(t, 7.0, f, 1e-9)
	assert.InDelta(t, 0.027, p, 3e-3)

	_, pSame := OneWayANOVA([]float64{1, 2, 3}, []float64{1, 2, 3})
	assert.Greater(t, pSame, 0.9)
}

func TestPearsonR(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 2, 3, 4, 6}

	r, p := PearsonR(x, y)
	assert.InDelta(t, 0.9864, r, 1e-3)
	assert.InDelta(t, 0.0019, p, 1e-3)

	// A perfect fit pins the p-value at zero.
	r, p = PearsonR(x, []float64{2, 4, 6, 8, 10})
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.Zero(t, p)
}

func TestTestReport(t *testing.T) {
	areas := []*MergedArea{}
	addArea := func(class string, rate float64) {
		areas = append(areas, &MergedArea{
			AreaDemographics: domain.AreaDemographics{
				ResponseAreaID:    "A",
				UrbanClass:        class,
				TractDemographics: domain.TractDemographics{Population: 5000},
			},
			IncidentsPer1000Pop: rate,
		})
	}
	for _, rate := range []float64{10, 12, 11, 13} {
		addArea(domain.UrbanCore, rate)
	}
	for _, rate := range []float64{20, 22, 21, 23} {
		addArea(domain.InnerSuburban, rate)
	}
	for _, rate := range []float64{30, 31, 32, 33} {
		addArea(domain.OuterSuburban, rate)
	}

	report := TestReport(areas)
	require.NotEmpty(t, report)
	assert.Contains(t, report, "T-test: Inner Suburban vs Urban Core")
	assert.Contains(t, report, "T-test: Outer Suburban vs Urban Core")
	assert.Contains(t, report, "ANOVA: All Urban Classifications")
	assert.Contains(t, report, "Correlation: % Single-Family vs Incident Rate")
	// Clearly separated groups come out significant.
	assert.Contains(t, report, "Significant at a=0.05: Yes")
}

func TestTestReport_ExcludesTinyAreas(t *testing.T) {
	// All areas under the population floor: nothing to test.
	areas := []*MergedArea{
		{AreaDemographics: domain.AreaDemographics{
			UrbanClass:        domain.UrbanCore,
			TractDemographics: domain.TractDemographics{Population: 50},
		}},
	}
	assert.Empty(t, TestReport(areas))
}
