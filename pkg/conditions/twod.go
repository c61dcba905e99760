package conditions

import (
	"fmt"
	"math"

	"github.com/jihwankim/spectrum-utils/pkg/parameters"
)

// edge is one line segment of a band or contour, with precomputed
// slope/intercept. A vertical segment has vertical set and no
// slope/intercept.
type edge struct {
	p1, p2   Point
	m, b     float64
	vertical bool
}

func newEdge(p1, p2 Point) edge {
	e := edge{p1: p1, p2: p2}
	if p1.X == p2.X {
		e.vertical = true
		return e
	}
	e.m = (p2.Y - p1.Y) / (p2.X - p1.X)
	e.b = p1.Y - e.m*p1.X
	return e
}

// covers reports whether x lies inside the segment's x-extent.
func (e edge) covers(x float64) bool {
	return x >= math.Min(e.p1.X, e.p2.X) && x <= math.Max(e.p1.X, e.p2.X)
}

// yAt returns the segment y at x; only valid for non-vertical edges.
func (e edge) yAt(x float64) float64 { return e.m*x + e.b }

// crosses reports whether the horizontal ray from (x, y) to +infinity
// crosses the edge. A vertical edge counts iff x <= edge.x.
func (e edge) crosses(x, y float64) bool {
	if y < math.Min(e.p1.Y, e.p2.Y) || y > math.Max(e.p1.Y, e.p2.Y) {
		return false
	}
	if e.vertical {
		return x <= e.p1.X
	}
	if e.m == 0 {
		// Horizontal edge at the ray's height; the shared vertices are
		// counted by the adjacent edges.
		return false
	}
	return x <= (y-e.b)/e.m
}

// Band accepts events where the point formed by its two parameters lies
// on or below the polyline through its points. Non-monotone point lists
// are permitted; any segment whose x-extent covers the event's x may
// accept it.
type Band struct {
	cacheCell
	noFold
	noDependencies
	xid, yid uint32
	points   []Point
	segments []edge
}

// NewBand creates a band on (xid, yid). At least two points are
// required.
func NewBand(xid, yid uint32, points []Point) (*Band, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: band needs at least 2 points, got %d", ErrTooFewPoints, len(points))
	}
	owned := make([]Point, len(points))
	copy(owned, points)
	segments := make([]edge, 0, len(owned)-1)
	for i := 0; i+1 < len(owned); i++ {
		segments = append(segments, newEdge(owned[i], owned[i+1]))
	}
	return &Band{xid: xid, yid: yid, points: owned, segments: segments}, nil
}

func (b *Band) Evaluate(_ *Dictionary, e *parameters.FlatEvent) bool {
	x, okx := e.Get(b.xid)
	y, oky := e.Get(b.yid)
	if !okx || !oky {
		return false
	}
	for _, s := range b.segments {
		if !s.covers(x) {
			continue
		}
		if s.vertical {
			if y <= math.Max(s.p1.Y, s.p2.Y) {
				return true
			}
			continue
		}
		if y <= s.yAt(x) {
			return true
		}
	}
	return false
}

func (b *Band) Type() string { return "Band" }

func (b *Band) Points() []Point { return b.points }

// ParameterIDs returns the (x, y) parameter ids.
func (b *Band) ParameterIDs() (x, y uint32) { return b.xid, b.yid }

// contourShape holds the geometry shared by Contour and MultiContour:
// the edge table including the closing edge, and the circumscribing
// rectangle used for trivial rejection.
type contourShape struct {
	points []Point
	edges  []edge
	ll, ur Point
}

func newContourShape(points []Point) (contourShape, error) {
	if len(points) < 3 {
		return contourShape{}, fmt.Errorf("%w: contour needs at least 3 points, got %d", ErrTooFewPoints, len(points))
	}
	owned := make([]Point, len(points))
	copy(owned, points)
	shape := contourShape{points: owned, ll: owned[0], ur: owned[0]}
	for i := 0; i+1 < len(owned); i++ {
		shape.edges = append(shape.edges, newEdge(owned[i], owned[i+1]))
		shape.ll.X = math.Min(shape.ll.X, owned[i+1].X)
		shape.ll.Y = math.Min(shape.ll.Y, owned[i+1].Y)
		shape.ur.X = math.Max(shape.ur.X, owned[i+1].X)
		shape.ur.Y = math.Max(shape.ur.Y, owned[i+1].Y)
	}
	shape.edges = append(shape.edges, newEdge(owned[len(owned)-1], owned[0]))
	return shape, nil
}

// inside applies the even-odd horizontal-ray test after bounding-box
// rejection.
func (c *contourShape) inside(x, y float64) bool {
	if x < c.ll.X || y < c.ll.Y || x > c.ur.X || y > c.ur.Y {
		return false
	}
	crossings := 0
	for _, e := range c.edges {
		if e.crosses(x, y) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// Contour accepts events whose (x, y) point lies inside the closed
// polygon through its points.
type Contour struct {
	cacheCell
	noFold
	noDependencies
	xid, yid uint32
	shape    contourShape
}

// NewContour creates a contour on (xid, yid). At least three points are
// required; the polygon is closed implicitly.
func NewContour(xid, yid uint32, points []Point) (*Contour, error) {
	shape, err := newContourShape(points)
	if err != nil {
		return nil, err
	}
	return &Contour{xid: xid, yid: yid, shape: shape}, nil
}

func (c *Contour) Evaluate(_ *Dictionary, e *parameters.FlatEvent) bool {
	x, okx := e.Get(c.xid)
	y, oky := e.Get(c.yid)
	if !okx || !oky {
		return false
	}
	return c.shape.inside(x, y)
}

func (c *Contour) Type() string { return "Contour" }

func (c *Contour) Points() []Point { return c.shape.points }

// ParameterIDs returns the (x, y) parameter ids.
func (c *Contour) ParameterIDs() (x, y uint32) { return c.xid, c.yid }

// Inside reports containment for a raw coordinate pair. Used by
// reconstitution checks and tests.
func (c *Contour) Inside(x, y float64) bool { return c.shape.inside(x, y) }

// MultiContour applies contour geometry across a set of parameters:
// the event is accepted when any pair of listed parameters, both
// present, forms a point inside the polygon. It is fold-capable with
// pairwise outside semantics.
type MultiContour struct {
	cacheCell
	noDependencies
	ids   []uint32
	shape contourShape
}

// NewMultiContour creates a multi-parameter contour over ids. At least
// three points are required.
func NewMultiContour(ids []uint32, points []Point) (*MultiContour, error) {
	shape, err := newContourShape(points)
	if err != nil {
		return nil, err
	}
	owned := make([]uint32, len(ids))
	copy(owned, ids)
	return &MultiContour{ids: owned, shape: shape}, nil
}

func (m *MultiContour) Evaluate(_ *Dictionary, e *parameters.FlatEvent) bool {
	for i := 0; i+1 < len(m.ids); i++ {
		v1, ok1 := e.Get(m.ids[i])
		if !ok1 {
			continue
		}
		for _, second := range m.ids[i+1:] {
			if v2, ok2 := e.Get(second); ok2 && m.shape.inside(v1, v2) {
				return true
			}
		}
	}
	return false
}

func (m *MultiContour) Type() string { return "MultiContour" }

func (m *MultiContour) Points() []Point { return m.shape.points }

// ParameterIDs returns the ids the contour covers, in definition order.
func (m *MultiContour) ParameterIDs() []uint32 { return m.ids }

func (m *MultiContour) IsFold() bool { return true }

// Evaluate2 returns the pairs whose point lies outside the polygon.
func (m *MultiContour) Evaluate2(e *parameters.FlatEvent) PairSet {
	result := make(PairSet)
	for i := 0; i+1 < len(m.ids); i++ {
		v1, ok1 := e.Get(m.ids[i])
		if !ok1 {
			continue
		}
		for _, second := range m.ids[i+1:] {
			if v2, ok2 := e.Get(second); ok2 && !m.shape.inside(v1, v2) {
				result[NewIDPair(m.ids[i], second)] = struct{}{}
			}
		}
	}
	return result
}

// Evaluate1 returns the present ids that belong to no inside pair.
func (m *MultiContour) Evaluate1(e *parameters.FlatEvent) IDSet {
	inside := make(IDSet)
	present := make(IDSet)
	for i, first := range m.ids {
		v1, ok1 := e.Get(first)
		if !ok1 {
			continue
		}
		present[first] = struct{}{}
		for _, second := range m.ids[i+1:] {
			if v2, ok2 := e.Get(second); ok2 && m.shape.inside(v1, v2) {
				inside[first] = struct{}{}
				inside[second] = struct{}{}
			}
		}
	}
	result := make(IDSet)
	for id := range present {
		if _, ok := inside[id]; !ok {
			result[id] = struct{}{}
		}
	}
	return result
}
