package crosswalk

import (
	"math"
	"sort"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
)

// BuildStats tallies what the overlay skipped or could not compute.
type BuildStats struct {
	ZeroAreaTracts int // degenerate tract geometry, excluded up front
	FailedPairs    int // intersection errors, pair excluded
}

// BuildWeights intersects every tract with every response area and returns
// one weight row per overlapping pair. Geometries must already be projected
// to a planar meter-based CRS. Tracts with zero or negative area are skipped
// rather than dividing by them.
func BuildWeights(tracts []geo.TractShape, areas []geo.Feature) ([]domain.CrosswalkWeight, BuildStats) {
	var weights []domain.CrosswalkWeight
	var stats BuildStats

	for _, tract := range tracts {
		tractArea := geo.Area(tract.Geometry)
		if tractArea <= 0 {
			stats.ZeroAreaTracts++
			continue
		}

		for _, area := range areas {
			isect, err := geo.IntersectionArea(tract.Geometry, area.Geometry)
			if err != nil {
				stats.FailedPairs++
				continue
			}
			if isect <= 0 {
				continue
			}

			w := isect / tractArea
			if w > 1 {
				// Numerical noise from the clipper; a tract slice can never
				// exceed the tract.
				w = 1
			}
			weights = append(weights, domain.CrosswalkWeight{
				GEOID:          tract.GEOID,
				ResponseAreaID: area.ID,
				Weight:         w,
				TractArea:      tractArea,
				IntersectArea:  isect,
			})
		}
	}

	sort.Slice(weights, func(i, j int) bool {
		if weights[i].GEOID != weights[j].GEOID {
			return weights[i].GEOID < weights[j].GEOID
		}
		return weights[i].ResponseAreaID < weights[j].ResponseAreaID
	})
	return weights, stats
}

// WeightSums returns the per-tract sum of crosswalk weights. A clean
// partition of response areas keeps every sum at or below 1; sums above
// 1+eps indicate overlapping boundaries and double-counted population.
func WeightSums(weights []domain.CrosswalkWeight) map[string]float64 {
	sums := make(map[string]float64)
	for _, w := range weights {
		sums[w.GEOID] += w.Weight
	}
	return sums
}

// Allocate multiplies each tract's demographics by its crosswalk weights and
// sums the contributions per response area. Tracts absent from the census
// tables contribute nothing and are counted in missing.
func Allocate(weights []domain.CrosswalkWeight, census map[string]*domain.TractDemographics) (map[string]*domain.AreaDemographics, int) {
	areas := make(map[string]*domain.AreaDemographics)
	missing := 0

	for _, w := range weights {
		tract, ok := census[w.GEOID]
		if !ok {
			missing++
			continue
		}

		a, ok := areas[w.ResponseAreaID]
		if !ok {
			a = &domain.AreaDemographics{ResponseAreaID: w.ResponseAreaID}
			areas[w.ResponseAreaID] = a
		}
		share := tract.Scale(w.Weight)
		share.GEOID = ""
		a.TractDemographics = a.TractDemographics.Add(share)
	}
	return areas, missing
}

// Finalize computes area, density, percentages, and the urban classification
// for every response area. Areas with no allocated demographics still get a
// row (zero counts, unknown class) so the output covers the whole layer.
// The areas slice must be projected; geometry area is read from it.
func Finalize(projected []geo.Feature, demo map[string]*domain.AreaDemographics, coreMin, innerMin float64) []*domain.AreaDemographics {
	out := make([]*domain.AreaDemographics, 0, len(projected))
	for _, f := range projected {
		a, ok := demo[f.ID]
		if !ok {
			a = &domain.AreaDemographics{ResponseAreaID: f.ID}
		}
		a.AreaSqMiles = geo.Area(f.Geometry) / domain.SquareMetersPerSquareMile
		if a.AreaSqMiles > 0 {
			a.PopDensity = a.Population / a.AreaSqMiles
		}
		a.DerivePercentages()
		a.UrbanClass = domain.ClassifyDensity(a.PopDensity, coreMin, innerMin)
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ResponseAreaID < out[j].ResponseAreaID })
	return out
}

// CheckConservation compares allocated population against the population the
// crosswalk should have delivered, returning the relative error. A tract's
// expected contribution is its population scaled by its weight sum, capped at
// 1: boundary tracts partially outside the layer legitimately contribute only
// their covered fraction, while overlapping response areas push the allocated
// total above the cap and surface as error.
func CheckConservation(weights []domain.CrosswalkWeight, census map[string]*domain.TractDemographics, areas map[string]*domain.AreaDemographics) float64 {
	var input float64
	for geoid, sum := range WeightSums(weights) {
		if sum > 1 {
			sum = 1
		}
		if t, ok := census[geoid]; ok {
			input += t.Population * sum
		}
	}

	var allocated float64
	for _, a := range areas {
		allocated += a.Population
	}

	if input == 0 {
		if allocated == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(allocated-input) / input
}
