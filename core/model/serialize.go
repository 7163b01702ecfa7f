package model

import (
	"encoding/json"
	"fmt"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/history"
	applog "github.com/pastatsh/note-editor/internal/log"
)

// Serializable is the persisted chart document. The file-persistence
// collaborator owns reading and writing the bytes; the timeline only maps
// itself to and from this shape.
type Serializable struct {
	Notes        []*Note        `json:"notes"`
	NoteLines    []*NoteLine    `json:"noteLines"`
	Measures     []*Measure     `json:"measures"`
	Lanes        []*Lane        `json:"lanes"`
	LanePoints   []*LanePoint   `json:"lanePoints"`
	OtherObjects []*OtherObject `json:"otherObjects"`

	// Legacy documents stored tempo markers in dedicated arrays. They are
	// migrated into OtherObjects on load and never written back.
	LegacyBPMChanges   []legacyTempoChange `json:"bpmChanges,omitempty"`
	LegacySpeedChanges []legacyTempoChange `json:"speedChanges,omitempty"`
}

type legacyTempoChange struct {
	MeasureIndex    int           `json:"measureIndex"`
	MeasurePosition frac.Fraction `json:"measurePosition"`
	Value           float64       `json:"value"`
}

// ToSerializable maps the timeline onto the persisted document shape.
// Collections are shared, not copied: callers marshal immediately.
func (t *Timeline) ToSerializable() *Serializable {
	return &Serializable{
		Notes:        t.Notes,
		NoteLines:    t.NoteLines,
		Measures:     t.Measures,
		Lanes:        t.Lanes,
		LanePoints:   t.LanePoints,
		OtherObjects: t.OtherObjects,
	}
}

// FromSerializable replaces the timeline's entire state with the document's
// and re-anchors the history stack there, so a freshly loaded chart starts
// with no undo history.
func (t *Timeline) FromSerializable(s *Serializable) error {
	// Measure indices drive slice sizing in time calculation; a negative
	// one from a hand-edited document must not get past this boundary.
	for _, m := range s.Measures {
		if m.Index < 0 {
			return fmt.Errorf("measure has negative index %d", m.Index)
		}
	}
	t.load(s)
	t.Normalize()
	snap, err := t.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot loaded state: %w", err)
	}
	t.history = history.New(snap, t.logger)
	t.pending = nil
	return nil
}

// load swaps in the document's collections and rebuilds every piece of
// derived state. Shared by file loads and history transitions.
func (t *Timeline) load(s *Serializable) {
	t.Notes = orEmpty(s.Notes)
	t.NoteLines = orEmpty(s.NoteLines)
	t.Measures = orEmpty(s.Measures)
	t.Lanes = orEmpty(s.Lanes)
	t.LanePoints = orEmpty(s.LanePoints)
	t.OtherObjects = orEmpty(s.OtherObjects)

	for _, line := range t.NoteLines {
		if line.InnerNotes == nil {
			line.InnerNotes = []string{}
		}
	}
	for _, lane := range t.Lanes {
		if lane.Points == nil {
			lane.Points = []string{}
		}
	}

	// Fraction fields absent from the document decode to a zero
	// denominator; default them here so the invariant holds everywhere
	// past the load boundary.
	fix := func(f *frac.Fraction) {
		if f.Denominator == 0 {
			*f = frac.Zero()
		}
	}
	for _, n := range t.Notes {
		fix(&n.MeasurePosition)
		fix(&n.HorizontalPosition)
	}
	for _, p := range t.LanePoints {
		fix(&p.MeasurePosition)
		fix(&p.HorizontalPosition)
	}
	for _, o := range t.OtherObjects {
		fix(&o.MeasurePosition)
	}
	for _, m := range t.Measures {
		if m.Beat.Denominator == 0 {
			m.Beat = frac.New(4, 4)
		}
	}

	t.migrateLegacy(s)
	t.rebuildIndices()
	t.ensureBPMFloor()
	t.CalculateTime()
}

func (t *Timeline) migrateLegacy(s *Serializable) {
	migrate := func(entries []legacyTempoChange, objType string) {
		if len(entries) == 0 {
			return
		}
		for _, o := range t.OtherObjects {
			if o.Type == objType {
				// Modern markers take precedence; the legacy array is stale.
				t.logger.Warnf("[TIMELINE] Dropping %d legacy %s change(s) shadowed by otherObjects", len(entries), objType)
				return
			}
		}
		t.logger.Infof("[TIMELINE] Migrating %d legacy %s change(s)", len(entries), objType)
		for _, e := range entries {
			pos := e.MeasurePosition
			if pos.Denominator == 0 {
				pos = frac.Zero()
			}
			t.OtherObjects = append(t.OtherObjects, &OtherObject{
				GUID:            NewGUID(),
				Type:            objType,
				MeasureIndex:    e.MeasureIndex,
				MeasurePosition: pos,
				Value:           e.Value,
			})
		}
	}
	migrate(s.LegacyBPMChanges, ObjectTypeBPM)
	migrate(s.LegacySpeedChanges, ObjectTypeSpeed)
}

// snapshot is the canonical serialized form the history engine diffs.
func (t *Timeline) snapshot() ([]byte, error) {
	return json.Marshal(t.ToSerializable())
}

// restore is the history side of the snapshot contract: full reload,
// indices and judgment times rebuilt from scratch.
func (t *Timeline) restore(snap []byte) error {
	var s Serializable
	if err := json.Unmarshal(snap, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	t.load(&s)
	return nil
}

// ToJSON renders the chart document for on-disk storage.
func (t *Timeline) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t.ToSerializable(), "", "  ")
}

// FromJSON builds a timeline from a chart document.
func FromJSON(data []byte, logger *applog.Logger) (*Timeline, error) {
	var s Serializable
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	t := NewTimeline(logger)
	if err := t.FromSerializable(&s); err != nil {
		return nil, err
	}
	return t, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
