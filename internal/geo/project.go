package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// WGS84 ellipsoid and transverse Mercator constants.
const (
	semiMajor    = 6378137.0
	flattening   = 1 / 298.257223563
	scaleFactor  = 0.9996
	falseEasting = 500000.0
)

// Projection maps one coordinate to another coordinate system.
type Projection = func(orb.Point) orb.Point

// UTMProjection returns the forward transverse Mercator projection for the
// given UTM zone (northern hemisphere). Input points are geographic
// (lon, lat) degrees; output is meters. Area math on geographic coordinates
// silently produces garbage, so every layer goes through this before the
// overlay.
func UTMProjection(zone int) Projection {
	lon0 := float64(zone*6-183) * math.Pi / 180

	e2 := flattening * (2 - flattening)
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)

	return func(p orb.Point) orb.Point {
		lon := p[0] * math.Pi / 180
		lat := p[1] * math.Pi / 180

		sinLat := math.Sin(lat)
		cosLat := math.Cos(lat)
		tanLat := math.Tan(lat)

		n := semiMajor / math.Sqrt(1-e2*sinLat*sinLat)
		t := tanLat * tanLat
		c := ep2 * cosLat * cosLat
		a := cosLat * (lon - lon0)

		// Meridional arc length.
		m := semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*lat -
			(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*lat) +
			(15*e4/256+45*e6/1024)*math.Sin(4*lat) -
			(35*e6/3072)*math.Sin(6*lat))

		a2 := a * a
		a3 := a2 * a
		a4 := a3 * a
		a5 := a4 * a
		a6 := a5 * a

		x := scaleFactor*n*(a+(1-t+c)*a3/6+
			(5-18*t+t*t+72*c-58*ep2)*a5/120) + falseEasting
		y := scaleFactor * (m + n*tanLat*(a2/2+
			(5-t+9*c+4*c*c)*a4/24+
			(61-58*t+t*t+600*c-330*ep2)*a6/720))

		return orb.Point{x, y}
	}
}

// ProjectMultiPolygon applies proj to every vertex of a copy of mp.
func ProjectMultiPolygon(mp orb.MultiPolygon, proj Projection) orb.MultiPolygon {
	out := mp.Clone()
	for _, poly := range out {
		for _, ring := range poly {
			for i, pt := range ring {
				ring[i] = proj(pt)
			}
		}
	}
	return out
}
