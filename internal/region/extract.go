package region

import "sort"

// ExtractOptions controls region extraction.
type ExtractOptions struct {
	// NormalizeCorners reorders each quadrilateral to top-left, top-right,
	// bottom-right, bottom-left before it is stored.
	NormalizeCorners bool
}

// Extract converts a raw recognizer payload into text regions.
//
// The first annotation (the whole-image aggregate) is dropped, so a response
// with N annotations yields N-1 regions in the same order. A nil or empty
// response yields an empty, non-nil slice. Missing vertices and coordinates
// become 0.
func Extract(resp *RawResponse, opts ExtractOptions) []TextRegion {
	anns := resp.Annotations()
	if len(anns) <= 1 {
		return []TextRegion{}
	}

	regions := make([]TextRegion, 0, len(anns)-1)
	for _, a := range anns[1:] {
		r := TextRegion{
			Text:    a.Description,
			Corners: cornersOf(a.BoundingPoly),
		}
		if opts.NormalizeCorners {
			r.Corners = NormalizeCorners(r.Corners)
		}
		regions = append(regions, r)
	}
	return regions
}

// cornersOf resolves up to four vertices, zero-filling anything absent.
func cornersOf(poly *RawPoly) [4]Point {
	var corners [4]Point
	if poly == nil {
		return corners
	}
	for i, v := range poly.Vertices {
		if i >= len(corners) {
			break
		}
		corners[i] = Point{X: valueOr0(v.X), Y: valueOr0(v.Y)}
	}
	return corners
}

func valueOr0(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// NormalizeCorners orders four points as top-left, top-right, bottom-right,
// bottom-left. Top-left has the smallest x+y and bottom-right the largest;
// of the remaining two, top-right has the larger x-y.
func NormalizeCorners(c [4]Point) [4]Point {
	pts := c[:]
	sorted := make([]Point, len(pts))
	copy(sorted, pts)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X+sorted[i].Y < sorted[j].X+sorted[j].Y
	})
	tl, br := sorted[0], sorted[3]
	a, b := sorted[1], sorted[2]
	tr, bl := a, b
	if b.X-b.Y > a.X-a.Y {
		tr, bl = b, a
	}
	return [4]Point{tl, tr, br, bl}
}
