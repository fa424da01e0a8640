package geo

import (
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonToMulti(t *testing.T) {
	t.Run("single clockwise ring", func(t *testing.T) {
		p := &shp.Polygon{
			Parts: []int32{0},
			Points: []shp.Point{
				{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
			},
		}
		mp := polygonToMulti(p)
		require.Len(t, mp, 1)
		require.Len(t, mp[0], 1)
		assert.InDelta(t, 100, Area(mp), 1e-9)
	})

	t.Run("outer ring with hole", func(t *testing.T) {
		p := &shp.Polygon{
			Parts: []int32{0, 5},
			Points: []shp.Point{
				// clockwise outer
				{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
				// counter-clockwise hole
				{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2},
			},
		}
		mp := polygonToMulti(p)
		require.Len(t, mp, 1)
		require.Len(t, mp[0], 2)
	})

	t.Run("two outer rings", func(t *testing.T) {
		p := &shp.Polygon{
			Parts: []int32{0, 5},
			Points: []shp.Point{
				{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
				{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 5}, {X: 5, Y: 5},
			},
		}
		mp := polygonToMulti(p)
		assert.Len(t, mp, 2)
	})

	t.Run("degenerate ring dropped", func(t *testing.T) {
		p := &shp.Polygon{
			Parts:  []int32{0},
			Points: []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		}
		assert.Empty(t, polygonToMulti(p))
	})
}

func TestSignedRingArea(t *testing.T) {
	cw := polygonToMulti(&shp.Polygon{
		Parts: []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0},
		},
	})
	// Clockwise rings become outer polygons, never holes.
	assert.Len(t, cw, 1)
}
