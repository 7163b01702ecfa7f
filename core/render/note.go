package render

import (
	"github.com/pastatsh/note-editor/core/model"
	applog "github.com/pastatsh/note-editor/internal/log"
)

// Thickness in pixels of a note rectangle, centered on its chart position.
const noteThickness = 8

// RectPrimitive is a filled rectangle for the drawing collaborator.
type RectPrimitive struct {
	Rect  Rect
	Type  string
	Layer int
}

// LinePrimitive is a straight line for the drawing collaborator.
type LinePrimitive struct {
	Start, End Point
}

// LaneRenderer turns a lane's segments into line primitives for the lane's
// left and right edges.
type LaneRenderer struct {
	resolver *Resolver
}

func NewLaneRenderer(resolver *Resolver) *LaneRenderer {
	return &LaneRenderer{resolver: resolver}
}

func (lr *LaneRenderer) Render(tl *model.Timeline, lane *model.Lane) []LinePrimitive {
	segs := lr.resolver.Segments(tl, lane)
	prims := make([]LinePrimitive, 0, 2*len(segs))
	for _, seg := range segs {
		prims = append(prims,
			LinePrimitive{Start: seg.Start, End: seg.End},
			LinePrimitive{
				Start: Point{X: seg.Start.X + seg.StartWidth, Y: seg.Start.Y},
				End:   Point{X: seg.End.X + seg.EndWidth, Y: seg.End.Y},
			})
	}
	return prims
}

// NoteRenderer computes note rectangles from the lane geometry.
type NoteRenderer struct {
	resolver *Resolver
	logger   *applog.Logger
}

func NewNoteRenderer(resolver *Resolver, logger *applog.Logger) *NoteRenderer {
	return &NoteRenderer{resolver: resolver, logger: logger}
}

// GetBounds returns the note's screen rectangle, or nil when the lane
// geometry does not cover the note's position.
func (nr *NoteRenderer) GetBounds(tl *model.Timeline, n *model.Note) *Rect {
	lane, ok := tl.LaneByGUID(n.Lane)
	if !ok {
		nr.logger.Errorf("[RENDER] Note %s references unknown lane %s", n.GUID, n.Lane)
		return nil
	}
	measure, ok := tl.MeasureByIndex(n.MeasureIndex)
	if !ok {
		return nil
	}
	info := nr.resolver.GetNotePointInfo(tl, lane, measure, n.HorizontalPosition, n.MeasurePosition)
	if info == nil {
		return nil
	}
	colW := info.Width / float64(n.HorizontalPosition.Denominator)
	w := colW * float64(n.HorizontalSize)
	return &Rect{
		Min: Point{X: info.Point.X, Y: info.Point.Y - noteThickness/2},
		Max: Point{X: info.Point.X + w, Y: info.Point.Y + noteThickness/2},
	}
}

func (nr *NoteRenderer) Render(tl *model.Timeline, n *model.Note) *RectPrimitive {
	bounds := nr.GetBounds(tl, n)
	if bounds == nil {
		return nil
	}
	return &RectPrimitive{Rect: *bounds, Type: n.Type, Layer: n.Layer}
}
