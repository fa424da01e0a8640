// Package domain models Austin Fire Department (AFD) incident records, census
// demographics, and the tract-to-response-area crosswalk that links them.
//
// # Data Sources
//
// Incident records come from the City of Austin open-data portal (Socrata),
// published in two vintages (2018-2021 and 2022-2024) with slightly different
// column sets. Response-area and fire-station boundaries come from the city's
// ArcGIS FeatureServer. Demographics come from the Census Bureau ACS 5-year
// API; tract boundaries from TIGER/Line shapefiles.
//
// # Incident Conventions
//
// Location format:
//
//	"(<a>, <b>)" where the pair is either (lat, lon) or (lon, lat) depending
//	on vintage. The negative member is the longitude (Austin sits near
//	30.27N, -97.74W). Parsed coordinates outside lat 29-32 / lon -99..-96
//	are rejected as malformed and counted, not silently kept.
//
// Problem strings are free-form dispatch descriptions ("BOX-Structure Fire",
// "GRASS - Small Grass Fire"). Keyword matching buckets them into five
// categories: structure, vehicle, outdoor/vegetation, trash/dumpster, other.
// A record matching several keyword groups takes the first match in that
// priority order.
//
// # Census Conventions
//
// GEOID is the 11-character tract identifier: 2-digit state FIPS, 3-digit
// county FIPS, 6-digit tract code, each zero-padded. ACS table B01003 carries
// total population, B25024 units-in-structure, B25034 year-structure-built.
// The B25024 breakdown is grouped as:
//
//	single_family      = 002 (detached) + 003 (attached)
//	duplex             = 004
//	small_multifamily  = 005 (3-4) + 006 (5-9) + 007 (10-19)
//	large_multifamily  = 008 (20-49) + 009 (50+)
//	mobile_other       = 010 (mobile home) + 011 (boat/RV/van)
//
// and B25034 as built 2010+ (002+003), 1970-2009 (004..007), pre-1970
// (008..011).
//
// # Crosswalk
//
// A crosswalk weight is the fraction of a tract's area falling inside one
// response area. Weights for a tract sum to at most 1; tracts partially
// outside the study area legitimately sum below 1. Allocation multiplies each
// tract attribute by the weight and sums per response area, which assumes
// population is uniformly distributed within a tract — a known approximation
// of area-weighted interpolation, stated here rather than hidden.
//
// # Density Classification
//
// Population density (people per square mile of planar polygon area)
// discretizes into named bands with inclusive lower bounds:
//
//	>= 10,000  urban_core
//	>=  3,000  inner_suburban
//	>       0  outer_suburban
//	otherwise  unknown
//
// Exactly 10,000 people/sq-mi is urban_core.
package domain
