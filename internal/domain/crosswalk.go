package domain

// Urban classification bands, from densest to sparsest.
const (
	UrbanCore     = "urban_core"
	InnerSuburban = "inner_suburban"
	OuterSuburban = "outer_suburban"
	UnknownClass  = "unknown"
)

// SquareMetersPerSquareMile converts planar areas computed in a meter-based
// CRS to the square miles used for density reporting.
const SquareMetersPerSquareMile = 2.59e6

// CrosswalkWeight is one (tract, response area) pair with the fraction of the
// tract's area falling inside that response area.
type CrosswalkWeight struct {
	GEOID          string  `csv:"geoid"`
	ResponseAreaID string  `csv:"response_area_id"`
	Weight         float64 `csv:"weight"`
	TractArea      float64 `csv:"tract_area"`
	IntersectArea  float64 `csv:"intersect_area"`
}

// AreaDemographics is the per-response-area aggregate: demographics allocated
// through the crosswalk plus derived density and classification.
type AreaDemographics struct {
	ResponseAreaID string `csv:"response_area_id"`
	TractDemographics

	PctSingleFamily    float64 `csv:"pct_single_family"`
	PctDuplex          float64 `csv:"pct_duplex"`
	PctSmallMF         float64 `csv:"pct_small_mf"`
	PctLargeMF         float64 `csv:"pct_large_mf"`
	PctMultifamily     float64 `csv:"pct_multifamily"`
	PctBuilt2010Plus   float64 `csv:"pct_built_2010_plus"`
	PctBuilt1970To2009 float64 `csv:"pct_built_1970_2009"`
	PctBuiltPre1970    float64 `csv:"pct_built_pre_1970"`

	AreaSqMiles float64 `csv:"area_sq_miles"`
	PopDensity  float64 `csv:"pop_density"`
	UrbanClass  string  `csv:"urban_class"`
}

// DerivePercentages fills the percentage fields from the allocated counts.
// Zero denominators leave the percentages at zero rather than dividing.
func (a *AreaDemographics) DerivePercentages() {
	if a.TotalUnits > 0 {
		a.PctSingleFamily = a.SingleFamily / a.TotalUnits * 100
		a.PctDuplex = a.Duplex / a.TotalUnits * 100
		a.PctSmallMF = a.SmallMultifamily / a.TotalUnits * 100
		a.PctLargeMF = a.LargeMultifamily / a.TotalUnits * 100
		a.PctMultifamily = a.Multifamily / a.TotalUnits * 100
	}
	if a.YearBuiltTotal > 0 {
		a.PctBuilt2010Plus = a.Built2010Plus / a.YearBuiltTotal * 100
		a.PctBuilt1970To2009 = a.Built1970To2009 / a.YearBuiltTotal * 100
		a.PctBuiltPre1970 = a.BuiltPre1970 / a.YearBuiltTotal * 100
	}
}

// ClassifyDensity maps a population density (people per square mile) to its
// urban band. Lower bounds are inclusive: exactly coreMin is urban_core.
// Zero, negative, or NaN-like densities classify as unknown.
func ClassifyDensity(density, coreMin, innerMin float64) string {
	switch {
	case !(density > 0): // catches 0, negatives, and NaN
		return UnknownClass
	case density >= coreMin:
		return UrbanCore
	case density >= innerMin:
		return InnerSuburban
	default:
		return OuterSuburban
	}
}
