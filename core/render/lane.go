package render

import (
	"fmt"
	"strings"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/model"
	applog "github.com/pastatsh/note-editor/internal/log"
)

// Segment is one renderable piece of a lane's path, confined to a single
// measure. Start is the chart-position-earlier endpoint, so with measures
// stacked bottom-up Start.Y >= End.Y. X coordinates track the lane's left
// edge; the widths give its extent at each endpoint.
type Segment struct {
	Measure    *model.Measure
	Start, End Point
	StartWidth float64
	EndWidth   float64
}

// NotePointInfo locates a chart position on a lane: the screen point at the
// requested column offset and the full lane width at that height.
type NotePointInfo struct {
	Point Point
	Width float64
}

// NotePlacement is the result of the inverse mapping from a mouse position
// back onto the chart grid.
type NotePlacement struct {
	MeasureIndex       int
	HorizontalIndex    int
	VerticalIndex      int
	MeasurePosition    frac.Fraction
	HorizontalPosition frac.Fraction
}

// ComputeSegments projects a lane's control points into per-measure line
// segments. A control-point pair spanning several measures is subdivided at
// every integer chart position, so no segment crosses a measure boundary.
// Horizontal offset and width are interpolated between the pair's endpoints
// with exact fractions; pixels appear only in the final projection through
// the measure bounds.
func ComputeSegments(points []*model.LanePoint, measures []*model.Measure) []Segment {
	byIndex := make(map[int]*model.Measure, len(measures))
	for _, m := range measures {
		byIndex[m.Index] = m
	}

	var segs []Segment
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		posA, posB := a.Position(), b.Position()
		span := posB.Sub(posA)
		if span.Numerator <= 0 {
			continue
		}
		widthA := widthFraction(a)
		widthB := widthFraction(b)

		for mi := int(posA.Floor()); frac.New(int64(mi), 1).Cmp(posB) < 0; mi++ {
			lo := maxFrac(posA, frac.New(int64(mi), 1))
			hi := minFrac(posB, frac.New(int64(mi)+1, 1))
			if hi.Cmp(lo) <= 0 {
				continue
			}
			m, ok := byIndex[mi]
			if !ok {
				continue
			}

			t0 := lo.Sub(posA).Div(span)
			t1 := hi.Sub(posA).Div(span)
			h0 := lerpFrac(a.HorizontalPosition, b.HorizontalPosition, t0)
			h1 := lerpFrac(a.HorizontalPosition, b.HorizontalPosition, t1)
			w0 := lerpFrac(widthA, widthB, t0)
			w1 := lerpFrac(widthA, widthB, t1)
			o0 := lo.Sub(frac.New(int64(mi), 1))
			o1 := hi.Sub(frac.New(int64(mi), 1))

			segs = append(segs, Segment{
				Measure:    m,
				Start:      Point{X: m.X + m.Width*h0.Value(), Y: m.Y + m.Height*(1-o0.Value())},
				End:        Point{X: m.X + m.Width*h1.Value(), Y: m.Y + m.Height*(1-o1.Value())},
				StartWidth: m.Width * w0.Value(),
				EndWidth:   m.Width * w1.Value(),
			})
		}
	}
	return segs
}

// widthFraction is the lane width as a fraction of the measure width: the
// point's horizontal size counted in columns of the horizontal denominator.
func widthFraction(p *model.LanePoint) frac.Fraction {
	return frac.New(int64(p.HorizontalSize), p.HorizontalPosition.Denominator)
}

func lerpFrac(a, b, t frac.Fraction) frac.Fraction {
	return a.Add(b.Sub(a).Mul(t))
}

func maxFrac(a, b frac.Fraction) frac.Fraction {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minFrac(a, b frac.Fraction) frac.Fraction {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

/* ─── resolver ─── */

type cacheEntry struct {
	fingerprint string
	segments    []Segment
}

// Resolver answers lane geometry queries, caching computed segments per
// lane. A cache entry is reused until the lane's control points or the
// measure bounds change; invalidation is by fingerprint comparison, never
// by expiry.
type Resolver struct {
	cache  map[string]cacheEntry
	logger *applog.Logger
}

func NewResolver(logger *applog.Logger) *Resolver {
	return &Resolver{cache: make(map[string]cacheEntry), logger: logger}
}

// Segments returns the lane's screen-space segments, recomputing only when
// the geometry inputs changed since the last call.
func (r *Resolver) Segments(tl *model.Timeline, lane *model.Lane) []Segment {
	points := make([]*model.LanePoint, 0, len(lane.Points))
	for _, guid := range lane.Points {
		p, ok := tl.LanePointByGUID(guid)
		if !ok {
			r.logger.Errorf("[RENDER] Lane %s references unknown point %s", lane.GUID, guid)
			continue
		}
		points = append(points, p)
	}

	fp := fingerprint(points, tl.Measures)
	if e, ok := r.cache[lane.GUID]; ok && e.fingerprint == fp {
		return e.segments
	}
	segs := ComputeSegments(points, tl.Measures)
	r.cache[lane.GUID] = cacheEntry{fingerprint: fp, segments: segs}
	r.logger.Debugf("[RENDER] Recomputed %d segment(s) for lane %s", len(segs), lane.GUID)
	return segs
}

// Invalidate drops the cached segments for a lane.
func (r *Resolver) Invalidate(laneGUID string) {
	delete(r.cache, laneGUID)
}

func fingerprint(points []*model.LanePoint, measures []*model.Measure) string {
	var sb strings.Builder
	for _, p := range points {
		fmt.Fprintf(&sb, "%d:%s:%s:%d;", p.MeasureIndex, p.MeasurePosition, p.HorizontalPosition, p.HorizontalSize)
	}
	for _, m := range measures {
		fmt.Fprintf(&sb, "%d:%g,%g,%g,%g;", m.Index, m.X, m.Y, m.Width, m.Height)
	}
	return sb.String()
}

// GetNotePointInfo maps a chart position within a measure onto the lane's
// screen geometry. The segment whose vertical range covers the target y is
// found first (first match wins), then the lane's left edge and width are
// interpolated at that height and the horizontal fraction offsets into the
// lane. Returns nil when no segment covers the position: the caller treats
// that as "cannot place or render here".
func (r *Resolver) GetNotePointInfo(tl *model.Timeline, lane *model.Lane, measure *model.Measure, horizontal, vertical frac.Fraction) *NotePointInfo {
	y := measure.Y + measure.Height*(1-vertical.Value())

	for _, seg := range r.Segments(tl, lane) {
		if y > seg.Start.Y || y < seg.End.Y {
			continue
		}
		f := 0.0
		if seg.Start.Y != seg.End.Y {
			f = (seg.Start.Y - y) / (seg.Start.Y - seg.End.Y)
		}
		left := seg.Start.X + (seg.End.X-seg.Start.X)*f
		width := seg.StartWidth + (seg.EndWidth-seg.StartWidth)*f
		return &NotePointInfo{
			Point: Point{X: left + width*horizontal.Value(), Y: y},
			Width: width,
		}
	}
	return nil
}

// GetNotePointInfoFromMousePosition inverts the mapping: it scans the
// discrete grid of column × division cells (horizontal ascending, then
// vertical ascending, first match wins) and tests the mouse point against
// each cell's projected rectangle, half a cell above and below the cell's
// point and one column wide. With allowOutOfBounds set the scan extends one
// column past each lane edge and one division below the measure, for drag
// and resize interactions. A hit on the measure's top boundary row is
// remapped to the start of the next measure: dropping on the boundary line
// means placing at position zero of the measure above.
func (r *Resolver) GetNotePointInfoFromMousePosition(tl *model.Timeline, lane *model.Lane, measure, nextMeasure *model.Measure, divisionCount int, mouse Point, allowOutOfBounds bool) *NotePlacement {
	columns := lane.Division
	if columns < 1 || divisionCount < 1 {
		return nil
	}
	cellH := measure.Height / float64(divisionCount)

	hLo, hHi := 0, columns-1
	vLo := 0
	if allowOutOfBounds {
		hLo, hHi = -1, columns
		vLo = -1
	}

	for h := hLo; h <= hHi; h++ {
		for v := vLo; v <= divisionCount; v++ {
			// Out-of-range cells borrow the geometry of the nearest
			// in-range cell and shift by whole cells from there.
			hc := clampInt(h, 0, columns-1)
			vc := clampInt(v, 0, divisionCount)
			info := r.GetNotePointInfo(tl, lane, measure, frac.New(int64(hc), int64(columns)), frac.New(int64(vc), int64(divisionCount)))
			if info == nil {
				continue
			}
			colW := info.Width / float64(columns)
			x := info.Point.X + float64(h-hc)*colW
			y := info.Point.Y + float64(vc-v)*cellH

			cell := Rect{
				Min: Point{X: x, Y: y - cellH/2},
				Max: Point{X: x + colW, Y: y + cellH/2},
			}
			if !cell.Contains(mouse) {
				continue
			}
			if v == divisionCount {
				if nextMeasure == nil {
					continue
				}
				return &NotePlacement{
					MeasureIndex:       nextMeasure.Index,
					HorizontalIndex:    h,
					VerticalIndex:      0,
					MeasurePosition:    frac.Zero(),
					HorizontalPosition: frac.New(int64(h), int64(columns)),
				}
			}
			return &NotePlacement{
				MeasureIndex:       measure.Index,
				HorizontalIndex:    h,
				VerticalIndex:      v,
				MeasurePosition:    frac.New(int64(v), int64(divisionCount)),
				HorizontalPosition: frac.New(int64(h), int64(columns)),
			}
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
