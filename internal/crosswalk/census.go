// Package crosswalk implements the third pipeline stage: the area-weighted
// allocation of census tract demographics onto fire response areas.
package crosswalk

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// LoadCensus reads the three census API CSVs (population B01003, housing
// units B25024, year built B25034) and merges them into per-tract
// demographics keyed by GEOID. A tract missing from one table keeps zeros
// for that table's fields.
func LoadCensus(popPath, housingPath, yearBuiltPath string) (map[string]*domain.TractDemographics, error) {
	tracts := make(map[string]*domain.TractDemographics)

	get := func(geoid string) *domain.TractDemographics {
		t, ok := tracts[geoid]
		if !ok {
			t = &domain.TractDemographics{GEOID: geoid}
			tracts[geoid] = t
		}
		return t
	}

	err := eachCensusRow(popPath, func(geoid string, v func(column string) float64) {
		get(geoid).Population = v("B01003_001E")
	})
	if err != nil {
		return nil, fmt.Errorf("load population table: %w", err)
	}

	err = eachCensusRow(housingPath, func(geoid string, v func(column string) float64) {
		t := get(geoid)
		t.TotalUnits = v("B25024_001E")
		t.SingleFamily = v("B25024_002E") + v("B25024_003E")
		t.Duplex = v("B25024_004E")
		t.SmallMultifamily = v("B25024_005E") + v("B25024_006E") + v("B25024_007E")
		t.LargeMultifamily = v("B25024_008E") + v("B25024_009E")
		t.Multifamily = t.Duplex + t.SmallMultifamily + t.LargeMultifamily
		t.MobileOther = v("B25024_010E") + v("B25024_011E")
	})
	if err != nil {
		return nil, fmt.Errorf("load housing table: %w", err)
	}

	err = eachCensusRow(yearBuiltPath, func(geoid string, v func(column string) float64) {
		t := get(geoid)
		t.YearBuiltTotal = v("B25034_001E")
		t.Built2010Plus = v("B25034_002E") + v("B25034_003E")
		t.Built1970To2009 = v("B25034_004E") + v("B25034_005E") + v("B25034_006E") + v("B25034_007E")
		t.BuiltPre1970 = v("B25034_008E") + v("B25034_009E") + v("B25034_010E") + v("B25034_011E")
	})
	if err != nil {
		return nil, fmt.Errorf("load year built table: %w", err)
	}

	return tracts, nil
}

// eachCensusRow parses one census API CSV (header row of column names, then
// data rows) and invokes fn per row with the assembled GEOID and a column
// accessor. Unparseable values and the ACS negative sentinels read as zero.
func eachCensusRow(path string, fn func(geoid string, v func(column string) float64)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("%s has no data rows", path)
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, geoCol := range []string{"state", "county", "tract"} {
		if _, ok := idx[geoCol]; !ok {
			return fmt.Errorf("%s missing geography column %q", path, geoCol)
		}
	}

	for _, row := range rows[1:] {
		geoid := domain.BuildGEOID(row[idx["state"]], row[idx["county"]], row[idx["tract"]])

		v := func(column string) float64 {
			i, ok := idx[column]
			if !ok || i >= len(row) {
				return 0
			}
			val, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil || val < 0 {
				return 0
			}
			return val
		}
		fn(geoid, v)
	}
	return nil
}
