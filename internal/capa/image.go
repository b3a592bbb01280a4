package capa

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag:           "imageresponse",
		allowedInputs: []string{"imageinput"},
	}, newImageResponse)
}

// imageResponse grades clicks on an image. Each image input declares either
// a rectangle list ("(x1,y1)-(x2,y2);...") or a JSON region list (one
// polygon, or a list of polygons); a click anywhere inside or on the
// boundary of any listed shape is correct.
type imageResponse struct {
	base
	rects   [][]rect    // per input
	regions [][]polygon // per input
}

type rect struct{ x1, y1, x2, y2 float64 }

type point struct{ x, y float64 }

type polygon []point

var (
	rectanglePat = regexp.MustCompile(`^\(([0-9]+),([0-9]+)\)-\(([0-9]+),([0-9]+)\)$`)
	clickPat     = regexp.MustCompile(`^\[([0-9]+),([0-9]+)\]$`)
)

func newImageResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["imageresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	r := &imageResponse{
		base:    b,
		rects:   make([][]rect, len(inputs)),
		regions: make([][]polygon, len(inputs)),
	}
	for i, in := range inputs {
		rs := in.Attr("rectangle", "")
		rg := in.Attr("regions", "")
		if rs == "" && rg == "" {
			return nil, domain.Specf("imageresponse: input %d needs a rectangle or regions attribute", i+1)
		}
		if rs != "" {
			for _, one := range strings.Split(rs, ";") {
				rc, err := parseRectangle(strings.TrimSpace(one))
				if err != nil {
					return nil, err
				}
				r.rects[i] = append(r.rects[i], rc)
			}
		}
		if rg != "" {
			polys, err := parseRegions(rg)
			if err != nil {
				return nil, err
			}
			r.regions[i] = polys
		}
	}
	return r, nil
}

func parseRectangle(s string) (rect, error) {
	m := rectanglePat.FindStringSubmatch(s)
	if m == nil {
		return rect{}, domain.Specf("imageresponse: bad rectangle %q", s)
	}
	var v [4]float64
	for i := 0; i < 4; i++ {
		v[i], _ = strconv.ParseFloat(m[i+1], 64)
	}
	rc := rect{v[0], v[1], v[2], v[3]}
	if rc.x1 >= rc.x2 || rc.y1 >= rc.y2 {
		return rect{}, domain.Specf("imageresponse: degenerate rectangle %q", s)
	}
	return rc, nil
}

// parseRegions accepts one polygon ([[x,y],...]) or a list of polygons.
func parseRegions(s string) ([]polygon, error) {
	var multi [][][]float64
	if err := json.Unmarshal([]byte(s), &multi); err == nil && len(multi) > 0 && len(multi[0]) > 0 && len(multi[0][0]) == 2 {
		return buildPolygons(multi)
	}
	var single [][]float64
	if err := json.Unmarshal([]byte(s), &single); err == nil {
		return buildPolygons([][][]float64{single})
	}
	return nil, domain.Specf("imageresponse: bad regions %q", s)
}

func buildPolygons(raw [][][]float64) ([]polygon, error) {
	out := make([]polygon, 0, len(raw))
	for _, p := range raw {
		if len(p) < 3 {
			return nil, domain.Specf("imageresponse: region needs at least 3 vertices")
		}
		poly := make(polygon, 0, len(p))
		for _, v := range p {
			if len(v) != 2 {
				return nil, domain.Specf("imageresponse: region vertex needs exactly 2 coordinates")
			}
			poly = append(poly, point{v[0], v[1]})
		}
		out = append(out, convexHull(poly))
	}
	return out, nil
}

func (r *imageResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	cm := domain.NewCorrectMap()
	for i, id := range r.ids {
		a, ok := answers[id]
		e := domain.CorrectMapEntry{Correctness: domain.Incorrect, PointsPossible: r.points}
		if ok {
			hit, err := r.hit(i, a.Text)
			if err != nil {
				return nil, err
			}
			if hit {
				e.Correctness = domain.Correct
				e.PointsEarned = r.points
			}
		}
		cm.Set(id, e)
	}
	return cm, nil
}

func (r *imageResponse) hit(i int, click string) (bool, error) {
	m := clickPat.FindStringSubmatch(strings.ReplaceAll(click, " ", ""))
	if m == nil {
		return false, domain.Inputf("could not interpret %q as a click position", click)
	}
	x, _ := strconv.ParseFloat(m[1], 64)
	y, _ := strconv.ParseFloat(m[2], 64)
	for _, rc := range r.rects[i] {
		if x >= rc.x1 && x <= rc.x2 && y >= rc.y1 && y <= rc.y2 {
			return true, nil
		}
	}
	for _, poly := range r.regions[i] {
		if poly.contains(point{x, y}) {
			return true, nil
		}
	}
	return false, nil
}

// convexHull computes the convex hull of the points (monotone chain).
// Region authors may list vertices in any order, so grading works on the
// hull rather than the raw ring.
func convexHull(pts polygon) polygon {
	if len(pts) <= 2 {
		return pts
	}
	sorted := make(polygon, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].x != sorted[b].x {
			return sorted[a].x < sorted[b].x
		}
		return sorted[a].y < sorted[b].y
	})
	cross := func(o, a, b point) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	var hull polygon
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// contains reports whether p lies inside or on the boundary of the convex
// polygon (vertices in counter-clockwise order).
func (poly polygon) contains(p point) bool {
	if len(poly) < 3 {
		return false
	}
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if (b.x-a.x)*(p.y-a.y)-(b.y-a.y)*(p.x-a.x) < 0 {
			return false
		}
	}
	return true
}
