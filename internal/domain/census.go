package domain

import (
	"strings"
)

// TractDemographics holds the ACS attributes carried through the crosswalk
// for one census tract. Missing upstream values are zero.
type TractDemographics struct {
	GEOID      string  `csv:"geoid"`
	Population float64 `csv:"population"`

	// B25024 units-in-structure groupings.
	TotalUnits       float64 `csv:"total_units"`
	SingleFamily     float64 `csv:"single_family"`
	Duplex           float64 `csv:"duplex"`
	SmallMultifamily float64 `csv:"small_multifamily"`
	LargeMultifamily float64 `csv:"large_multifamily"`
	Multifamily      float64 `csv:"multifamily"`
	MobileOther      float64 `csv:"mobile_other"`

	// B25034 year-structure-built groupings.
	YearBuiltTotal  float64 `csv:"yb_total"`
	Built2010Plus   float64 `csv:"built_2010_plus"`
	Built1970To2009 float64 `csv:"built_1970_2009"`
	BuiltPre1970    float64 `csv:"built_pre_1970"`
}

// Scale returns a copy with every attribute multiplied by w. Used by the
// crosswalk allocation.
func (t TractDemographics) Scale(w float64) TractDemographics {
	return TractDemographics{
		GEOID:            t.GEOID,
		Population:       t.Population * w,
		TotalUnits:       t.TotalUnits * w,
		SingleFamily:     t.SingleFamily * w,
		Duplex:           t.Duplex * w,
		SmallMultifamily: t.SmallMultifamily * w,
		LargeMultifamily: t.LargeMultifamily * w,
		Multifamily:      t.Multifamily * w,
		MobileOther:      t.MobileOther * w,
		YearBuiltTotal:   t.YearBuiltTotal * w,
		Built2010Plus:    t.Built2010Plus * w,
		Built1970To2009:  t.Built1970To2009 * w,
		BuiltPre1970:     t.BuiltPre1970 * w,
	}
}

// Add accumulates other into t and returns the sum.
func (t TractDemographics) Add(other TractDemographics) TractDemographics {
	t.Population += other.Population
	t.TotalUnits += other.TotalUnits
	t.SingleFamily += other.SingleFamily
	t.Duplex += other.Duplex
	t.SmallMultifamily += other.SmallMultifamily
	t.LargeMultifamily += other.LargeMultifamily
	t.Multifamily += other.Multifamily
	t.MobileOther += other.MobileOther
	t.YearBuiltTotal += other.YearBuiltTotal
	t.Built2010Plus += other.Built2010Plus
	t.Built1970To2009 += other.Built1970To2009
	t.BuiltPre1970 += other.BuiltPre1970
	return t
}

// BuildGEOID assembles the 11-character tract identifier from its FIPS parts,
// zero-padding each component to its fixed width (2, 3, 6).
func BuildGEOID(state, county, tract string) string {
	return zeroPad(state, 2) + zeroPad(county, 3) + zeroPad(tract, 6)
}

func zeroPad(s string, width int) string {
	s = strings.TrimSpace(s)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// NormalizeGEOID expands a bare 6-character tract code to the full form using
// the given state and county. Already-complete identifiers pass through.
func NormalizeGEOID(geoid, state, county string) string {
	geoid = strings.TrimSpace(geoid)
	if len(geoid) == 6 {
		return BuildGEOID(state, county, geoid)
	}
	return geoid
}
