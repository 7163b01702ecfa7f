package render

import (
	"testing"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/model"
	applog "github.com/pastatsh/note-editor/internal/log"
)

// buildScene lays out three 400x300 measures stacked bottom-up (measure 0
// spans y 600..900) with a full-width lane covering measures 0 and 1.
func buildScene(t *testing.T) (*model.Timeline, *model.Lane) {
	t.Helper()
	tl := model.NewTimeline(applog.Discard())
	tl.SetMeasureCount(3)
	LayoutMeasures(tl.Measures, 0, 900, 400, 300)

	p1 := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       0,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     4,
	}
	p2 := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       2,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     4,
	}
	lane := &model.Lane{GUID: model.NewGUID(), Division: 4}
	tl.AddLane(lane, p1, p2)
	return tl, lane
}

func TestComputeSegmentsSubdividesAtMeasureBoundaries(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())

	segs := r.Segments(tl, lane)
	if len(segs) != 2 {
		t.Fatalf("expected 2 unit segments for a 2-measure span, got %d", len(segs))
	}
	if segs[0].Measure.Index != 0 || segs[1].Measure.Index != 1 {
		t.Fatalf("expected one segment per measure, got %d and %d", segs[0].Measure.Index, segs[1].Measure.Index)
	}
	// Position increases upward: each segment runs from its measure's
	// bottom edge to its top edge.
	if segs[0].Start.Y != 900 || segs[0].End.Y != 600 {
		t.Fatalf("segment 0 spans y %g..%g, want 900..600", segs[0].Start.Y, segs[0].End.Y)
	}
	if segs[1].Start.Y != 600 || segs[1].End.Y != 300 {
		t.Fatalf("segment 1 spans y %g..%g, want 600..300", segs[1].Start.Y, segs[1].End.Y)
	}
}

func TestHorizontalOffsetStepsByWidthFraction(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)

	base := r.GetNotePointInfo(tl, lane, m0, frac.New(0, 4), frac.New(1, 4))
	if base == nil {
		t.Fatal("expected point info")
	}
	step := r.GetNotePointInfo(tl, lane, m0, frac.New(1, 4), frac.New(1, 4))
	if step == nil {
		t.Fatal("expected point info")
	}

	if got, want := step.Point.X-base.Point.X, base.Width/4; got != want {
		t.Fatalf("expected x to advance by width/4 = %g, got %g", want, got)
	}
	if base.Point.Y != step.Point.Y {
		t.Fatalf("y must not depend on the horizontal offset: %g vs %g", base.Point.Y, step.Point.Y)
	}
}

func TestGetNotePointInfoOutsideLaneReturnsNil(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m2, _ := tl.MeasureByIndex(2)

	// The lane ends at chart position 2; measure 2's interior is uncovered.
	if info := r.GetNotePointInfo(tl, lane, m2, frac.New(0, 4), frac.New(1, 4)); info != nil {
		t.Fatalf("expected nil outside the lane's extent, got %+v", info)
	}
}

func TestDiagonalLaneInterpolatesOffsetAndWidth(t *testing.T) {
	tl := model.NewTimeline(applog.Discard())
	tl.SetMeasureCount(1)
	LayoutMeasures(tl.Measures, 0, 300, 400, 300)

	p1 := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       0,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     2,
	}
	p2 := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       1,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(2, 4),
		HorizontalSize:     2,
	}
	lane := &model.Lane{GUID: model.NewGUID(), Division: 4}
	tl.AddLane(lane, p1, p2)

	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)

	info := r.GetNotePointInfo(tl, lane, m0, frac.New(0, 4), frac.New(1, 2))
	if info == nil {
		t.Fatal("expected point info")
	}
	// Halfway up, the left edge has moved half of its 0 -> 200px drift.
	if info.Point.X != 100 {
		t.Fatalf("expected interpolated left edge at x=100, got %g", info.Point.X)
	}
	if info.Width != 200 {
		t.Fatalf("expected constant width 200, got %g", info.Width)
	}
}

func TestMouseHitResolvesCell(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)
	m1, _ := tl.MeasureByIndex(1)

	p := r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: 150, Y: 860}, false)
	if p == nil {
		t.Fatal("expected a placement")
	}
	if p.MeasureIndex != 0 || p.HorizontalIndex != 1 || p.VerticalIndex != 1 {
		t.Fatalf("expected cell (h=1, v=1) in measure 0, got %+v", p)
	}
	if !p.MeasurePosition.Equal(frac.New(1, 4)) || !p.HorizontalPosition.Equal(frac.New(1, 4)) {
		t.Fatalf("expected positions 1/4, got %s and %s", p.MeasurePosition, p.HorizontalPosition)
	}
}

func TestMouseHitOnBoundaryRowLandsInNextMeasure(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)
	m1, _ := tl.MeasureByIndex(1)

	// y=600 is the exact boundary: measure 0's top edge, measure 1's start.
	p := r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: 50, Y: 600}, false)
	if p == nil {
		t.Fatal("expected a placement")
	}
	if p.MeasureIndex != m1.Index {
		t.Fatalf("boundary drop must land in the next measure, got measure %d", p.MeasureIndex)
	}
	if !p.MeasurePosition.IsZero() || p.VerticalIndex != 0 {
		t.Fatalf("boundary drop must land at the next measure's start, got %+v", p)
	}
}

func TestMouseMissReturnsNil(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)
	m1, _ := tl.MeasureByIndex(1)

	if p := r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: 2000, Y: 2000}, false); p != nil {
		t.Fatalf("expected nil for a far miss, got %+v", p)
	}
	// One column left of the lane: only reachable with allowOutOfBounds.
	if p := r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: -50, Y: 900}, false); p != nil {
		t.Fatalf("expected nil outside lane bounds, got %+v", p)
	}
}

func TestMouseOutOfBoundsExtendsScan(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())
	m0, _ := tl.MeasureByIndex(0)
	m1, _ := tl.MeasureByIndex(1)

	p := r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: -50, Y: 900}, true)
	if p == nil {
		t.Fatal("expected a placement one column beyond the lane")
	}
	if p.HorizontalIndex != -1 || p.VerticalIndex != 0 {
		t.Fatalf("expected cell (h=-1, v=0), got %+v", p)
	}

	p = r.GetNotePointInfoFromMousePosition(tl, lane, m0, m1, 4, Point{X: 50, Y: 960}, true)
	if p == nil {
		t.Fatal("expected a placement one division below the measure")
	}
	if p.VerticalIndex != -1 {
		t.Fatalf("expected v=-1 below the measure, got %+v", p)
	}
	if !p.MeasurePosition.Equal(frac.New(-1, 4)) {
		t.Fatalf("expected position -1/4, got %s", p.MeasurePosition)
	}
}

func TestSegmentCacheReusedUntilGeometryChanges(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())

	first := r.Segments(tl, lane)
	second := r.Segments(tl, lane)
	if &first[0] != &second[0] {
		t.Fatal("expected cached segments to be reused")
	}

	// Moving a control point must invalidate the cache.
	p, _ := tl.LanePointByGUID(lane.Points[1])
	p.MeasureIndex = 1
	third := r.Segments(tl, lane)
	if len(third) != 1 {
		t.Fatalf("expected 1 segment after shortening the lane, got %d", len(third))
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	tl, lane := buildScene(t)
	r := NewResolver(applog.Discard())

	first := r.Segments(tl, lane)
	r.Invalidate(lane.GUID)
	second := r.Segments(tl, lane)
	if len(first) != len(second) {
		t.Fatalf("recomputed segments differ in count: %d vs %d", len(first), len(second))
	}
	if &first[0] == &second[0] {
		t.Fatal("expected fresh segments after invalidation")
	}
}
