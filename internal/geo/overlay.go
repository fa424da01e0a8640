package geo

import (
	"fmt"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Area returns the planar area of mp in the units of its CRS (square meters
// after UTM projection).
func Area(mp orb.MultiPolygon) float64 {
	return planar.Area(mp)
}

// IntersectionArea computes the area of the geometric intersection of a and b.
// Both inputs must already be in the same planar CRS. Disjoint inputs return
// zero with no error; degenerate geometry surfaces as an error so the caller
// can skip and count it.
func IntersectionArea(a, b orb.MultiPolygon) (float64, error) {
	isect, err := polygol.Intersection(toGeom(a), toGeom(b))
	if err != nil {
		return 0, fmt.Errorf("polygon intersection: %w", err)
	}
	return planar.Area(fromGeom(isect)), nil
}

// ContainsPoint reports whether pt falls inside mp.
func ContainsPoint(mp orb.MultiPolygon, pt orb.Point) bool {
	return planar.MultiPolygonContains(mp, pt)
}

// toGeom converts an orb.MultiPolygon to polygol's raw ring representation.
func toGeom(mp orb.MultiPolygon) polygol.Geom {
	g := make([][][][]float64, 0, len(mp))
	for _, poly := range mp {
		rings := make([][][]float64, 0, len(poly))
		for _, ring := range poly {
			coords := make([][]float64, 0, len(ring))
			for _, pt := range ring {
				coords = append(coords, []float64{pt[0], pt[1]})
			}
			rings = append(rings, coords)
		}
		g = append(g, rings)
	}
	return g
}

func fromGeom(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, rings := range g {
		poly := make(orb.Polygon, 0, len(rings))
		for _, coords := range rings {
			ring := make(orb.Ring, 0, len(coords))
			for _, c := range coords {
				if len(c) < 2 {
					continue
				}
				ring = append(ring, orb.Point{c[0], c[1]})
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}
	return mp
}
