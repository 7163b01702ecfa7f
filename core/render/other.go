package render

import (
	"fmt"
	"strings"

	"github.com/pastatsh/note-editor/core/model"
)

// LabelPrimitive is a text label for the drawing collaborator. StackIndex
// counts earlier labels at the same point this frame, so co-located markers
// can be offset instead of drawn on top of each other.
type LabelPrimitive struct {
	Point      Point
	Text       string
	StackIndex int
}

// OtherObjectRenderer lays out marker labels (BPM, speed, ...). The stack
// counter is per-frame state: BeginFrame resets it before each render pass.
type OtherObjectRenderer struct {
	stacks map[Point]int
}

func NewOtherObjectRenderer() *OtherObjectRenderer {
	return &OtherObjectRenderer{stacks: make(map[Point]int)}
}

// BeginFrame clears the label stack counters.
func (r *OtherObjectRenderer) BeginFrame() {
	r.stacks = make(map[Point]int)
}

func (r *OtherObjectRenderer) Render(tl *model.Timeline, o *model.OtherObject) *LabelPrimitive {
	measure, ok := tl.MeasureByIndex(o.MeasureIndex)
	if !ok {
		return nil
	}
	p := Point{
		X: measure.X,
		Y: measure.Y + measure.Height*(1-o.MeasurePosition.Value()),
	}
	idx := r.stacks[p]
	r.stacks[p] = idx + 1
	return &LabelPrimitive{
		Point:      p,
		Text:       fmt.Sprintf("%s %g", strings.ToUpper(o.Type), o.Value),
		StackIndex: idx,
	}
}
