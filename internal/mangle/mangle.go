// Public domain.

// Package mangle evaluates spherical polygon masks in the mangle polygon
// format.
//
// A polygon is the intersection of caps.  A cap is the region on one side of
// a circle on the unit sphere; it is given by the unit vector of its axis
// and the value cm = 1 - cos(radius).  A positive cm selects the region
// within the radius, a negative cm selects the complement of the cap with
// radius given by -cm.
package mangle

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// NoPolygon is returned by PolyID for points outside every polygon.
const NoPolygon = -1

// Cap is a single spherical cap.
type Cap struct {
	Vec coord.Cart // axis, a unit vector
	CM  float64    // 1 - cos(radius), negated for the complement
}

// Contains reports whether the unit vector p lies within the cap.
func (c *Cap) Contains(p *coord.Cart) bool {
	cd := 1 - (c.Vec.X*p.X + c.Vec.Y*p.Y + c.Vec.Z*p.Z)
	if c.CM < 0 {
		return cd > -c.CM
	}
	return cd < c.CM
}

// Polygon is an intersection of caps with the attributes given in the
// polygon file.
type Polygon struct {
	ID     int64
	Weight float64
	Pixel  int64
	Area   float64 // steradians
	Caps   []Cap
}

// Contains reports whether the unit vector p lies within every cap of the
// polygon.  A polygon with no caps is the whole sky.
func (pl *Polygon) Contains(p *coord.Cart) bool {
	for i := range pl.Caps {
		if !pl.Caps[i].Contains(p) {
			return false
		}
	}
	return true
}

// Mask is the content of one polygon file.  Polygons are kept in file order.
type Mask struct {
	Polygons     []Polygon
	Pixelization string // resolution and scheme, such as "6s", if given
	Snapped      bool
	Balkanized   bool
}

// Vector returns the unit vector for right ascension and declination given in
// degrees.
func Vector(ra, dec float64) coord.Cart {
	sr, cr := math.Sincos(unit.AngleFromDeg(ra).Rad())
	sd, cd := math.Sincos(unit.AngleFromDeg(dec).Rad())
	return coord.Cart{
		X: cd * cr,
		Y: cd * sr,
		Z: sd,
	}
}

// PolyID returns the id of the first polygon, in file order, that contains
// the point at ra, dec (degrees), or NoPolygon.
//
// Weights are not consulted; a polygon with zero weight still matches.
func (m *Mask) PolyID(ra, dec float64) int64 {
	p := Vector(ra, dec)
	return m.polyID(&p)
}

func (m *Mask) polyID(p *coord.Cart) int64 {
	for i := range m.Polygons {
		if m.Polygons[i].Contains(p) {
			return m.Polygons[i].ID
		}
	}
	return NoPolygon
}

// Contains reports whether any polygon contains the point at ra, dec.
func (m *Mask) Contains(ra, dec float64) bool {
	return m.PolyID(ra, dec) != NoPolygon
}

// PolyIDs evaluates PolyID for parallel slices of coordinates.  The result
// has the length of the shorter slice; callers check lengths beforehand.
func (m *Mask) PolyIDs(ra, dec []float64) []int64 {
	n := len(ra)
	if len(dec) < n {
		n = len(dec)
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = m.PolyID(ra[i], dec[i])
	}
	return ids
}
