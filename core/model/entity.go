// Package model holds the chart entities and the Timeline aggregate that
// owns them. Entities reference each other by guid only, never by pointer,
// so the history engine can swap whole collections in and out and rebuild
// the lookup indices wholesale.
package model

import (
	"github.com/google/uuid"

	"github.com/pastatsh/note-editor/core/frac"
)

// OtherObject type tags. BPM markers drive time calculation.
const (
	ObjectTypeBPM   = "bpm"
	ObjectTypeSpeed = "speed"
	ObjectTypeStop  = "stop"
)

// NewGUID mints an entity identifier.
func NewGUID() string { return uuid.NewString() }

// Measure is one timeline segment. Screen bounds are assigned by the layout
// pass before rendering; they are in-memory state, not chart data.
type Measure struct {
	Index int           `json:"index"`
	Beat  frac.Fraction `json:"beat"` // time signature, 4/4 by default

	X, Y, Width, Height float64 `json:"-"`
}

func NewMeasure(index int) *Measure {
	return &Measure{Index: index, Beat: frac.New(4, 4)}
}

// BeatCount is the number of quarter-note beats the measure spans.
func (m *Measure) BeatCount() float64 { return 4 * m.Beat.Value() }

// LanePoint is one vertex of a lane's path through time.
type LanePoint struct {
	GUID               string        `json:"guid"`
	MeasureIndex       int           `json:"measureIndex"`
	MeasurePosition    frac.Fraction `json:"measurePosition"`
	HorizontalPosition frac.Fraction `json:"horizontalPosition"`
	HorizontalSize     int           `json:"horizontalSize"`
}

// Position is the point's continuous chart position as an exact fraction.
func (p *LanePoint) Position() frac.Fraction {
	return chartPosition(p.MeasureIndex, p.MeasurePosition)
}

// SamePlace reports whether two points coincide in both the chart position
// and horizontal axes. Lane merging joins lanes at such vertices.
func (p *LanePoint) SamePlace(q *LanePoint) bool {
	return p.Position().Equal(q.Position()) &&
		p.HorizontalPosition.Equal(q.HorizontalPosition) &&
		p.HorizontalSize == q.HorizontalSize
}

// Lane is an ordered path of LanePoint guids. Points must stay sorted by
// chart position and number at least two; OptimizeLane enforces both.
type Lane struct {
	GUID         string   `json:"guid"`
	Points       []string `json:"points"`
	TemplateName string   `json:"templateName"`
	Division     int      `json:"division"`
}

// NoteEditorProps carries derived editor state. Time is the judgment
// timestamp in seconds, recomputed by CalculateTime and never authored.
type NoteEditorProps struct {
	Time float64 `json:"time"`
}

// Note is a placed note. It belongs to exactly one lane at a time.
type Note struct {
	GUID               string          `json:"guid"`
	Type               string          `json:"type"`
	Lane               string          `json:"lane"`
	Layer              int             `json:"layer"`
	MeasureIndex       int             `json:"measureIndex"`
	MeasurePosition    frac.Fraction   `json:"measurePosition"`
	HorizontalPosition frac.Fraction   `json:"horizontalPosition"`
	HorizontalSize     int             `json:"horizontalSize"`
	Speed              float64         `json:"speed"`
	EditorProps        NoteEditorProps `json:"editorProps"`
	CustomProps        map[string]any  `json:"customProps,omitempty"`
}

func (n *Note) Position() frac.Fraction {
	return chartPosition(n.MeasureIndex, n.MeasurePosition)
}

// NoteLine spans from a head note to a tail note, with optional inner notes
// positioned between them. Head must not come after tail; OptimizeNoteLine
// swaps them when an edit inverts the order.
type NoteLine struct {
	GUID       string   `json:"guid"`
	Head       string   `json:"head"`
	Tail       string   `json:"tail"`
	InnerNotes []string `json:"innerNotes"`
}

// OtherObject is a non-visual placed object such as a BPM or speed marker.
type OtherObject struct {
	GUID            string        `json:"guid"`
	Type            string        `json:"type"`
	MeasureIndex    int           `json:"measureIndex"`
	MeasurePosition frac.Fraction `json:"measurePosition"`
	Value           float64       `json:"value"`
	Layer           int           `json:"layer"`
}

func (o *OtherObject) Position() frac.Fraction {
	return chartPosition(o.MeasureIndex, o.MeasurePosition)
}

func (o *OtherObject) IsBPM() bool { return o.Type == ObjectTypeBPM }

// newDefaultBPM is the marker reinserted whenever the last BPM marker is
// removed; a timeline must never be without one.
func newDefaultBPM() *OtherObject {
	return &OtherObject{
		GUID:            NewGUID(),
		Type:            ObjectTypeBPM,
		MeasureIndex:    0,
		MeasurePosition: frac.Zero(),
		Value:           120,
	}
}

func chartPosition(measureIndex int, offset frac.Fraction) frac.Fraction {
	return frac.New(int64(measureIndex), 1).Add(offset)
}
