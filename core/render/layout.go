package render

import "github.com/pastatsh/note-editor/core/model"

// LayoutMeasures assigns screen bounds to measures as a single vertical
// column: measure 0 sits at the bottom and chart position increases upward,
// so within a measure the y coordinate decreases as the offset grows.
func LayoutMeasures(measures []*model.Measure, x, bottom, width, height float64) {
	for _, m := range measures {
		m.X = x
		m.Width = width
		m.Height = height
		m.Y = bottom - float64(m.Index+1)*height
	}
}
