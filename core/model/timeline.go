package model

import (
	"fmt"
	"sort"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/history"
	"github.com/pastatsh/note-editor/core/timing"
	applog "github.com/pastatsh/note-editor/internal/log"
)

// Timeline is the aggregate owning every entity collection plus the derived
// guid indices and the undo/redo stack. All mutation goes through its
// methods; each one leaves the indices consistent before returning, since
// renderers may run synchronously in the same tick.
type Timeline struct {
	Notes        []*Note
	NoteLines    []*NoteLine
	Measures     []*Measure
	Lanes        []*Lane
	LanePoints   []*LanePoint
	OtherObjects []*OtherObject

	noteMap      map[string]*Note
	lanePointMap map[string]*LanePoint
	laneMap      map[string]*Lane

	calc     *timing.Calculator
	history  *history.Stack
	pending  *Note  // note currently being drawn or dragged, if any
	onChange func() // inspector refresh hook
	logger   *applog.Logger
}

// NewTimeline creates an empty timeline seeded with the mandatory BPM
// marker and an undo stack anchored at the canonical empty state.
func NewTimeline(logger *applog.Logger) *Timeline {
	t := &Timeline{
		Notes:        []*Note{},
		NoteLines:    []*NoteLine{},
		Measures:     []*Measure{},
		Lanes:        []*Lane{},
		LanePoints:   []*LanePoint{},
		OtherObjects: []*OtherObject{},
		logger:       logger,
	}
	t.rebuildIndices()
	t.ensureBPMFloor()
	t.CalculateTime()
	t.Normalize()
	// The undo stack bottoms out at the initial state, seeded marker
	// included, so exhausting undo restores exactly this snapshot.
	snap, _ := t.snapshot()
	t.history = history.New(snap, logger)
	return t
}

/* ─── lookups ─── */

func (t *Timeline) NoteByGUID(guid string) (*Note, bool) {
	n, ok := t.noteMap[guid]
	return n, ok
}

func (t *Timeline) LaneByGUID(guid string) (*Lane, bool) {
	l, ok := t.laneMap[guid]
	return l, ok
}

func (t *Timeline) LanePointByGUID(guid string) (*LanePoint, bool) {
	p, ok := t.lanePointMap[guid]
	return p, ok
}

// MeasureByIndex returns the measure with the given ordinal, if present.
func (t *Timeline) MeasureByIndex(index int) (*Measure, bool) {
	for _, m := range t.Measures {
		if m.Index == index {
			return m, true
		}
	}
	return nil, false
}

func (t *Timeline) rebuildIndices() {
	t.noteMap = make(map[string]*Note, len(t.Notes))
	for _, n := range t.Notes {
		t.noteMap[n.GUID] = n
	}
	t.lanePointMap = make(map[string]*LanePoint, len(t.LanePoints))
	for _, p := range t.LanePoints {
		t.lanePointMap[p.GUID] = p
	}
	t.laneMap = make(map[string]*Lane, len(t.Lanes))
	for _, l := range t.Lanes {
		t.laneMap[l.GUID] = l
	}
}

/* ─── measures ─── */

// SetMeasureCount grows or shrinks the measure list, re-indexing so the
// ordinals stay dense.
func (t *Timeline) SetMeasureCount(count int) {
	for len(t.Measures) < count {
		t.Measures = append(t.Measures, NewMeasure(len(t.Measures)))
	}
	if len(t.Measures) > count {
		t.Measures = t.Measures[:count]
	}
	for i, m := range t.Measures {
		m.Index = i
	}
	t.CalculateTime()
}

/* ─── notes ─── */

func (t *Timeline) AddNote(n *Note) {
	t.Notes = append(t.Notes, n)
	t.noteMap[n.GUID] = n
	t.logger.Debugf("[TIMELINE] Added note %s at %d+%s", n.GUID, n.MeasureIndex, n.MeasurePosition)
	t.CalculateTime()
}

// RemoveNote deletes the note and cascades: note lines headed or tailed by
// it are removed, and its guid is stripped from every line's inner notes.
// Nothing may keep referencing a deleted note.
func (t *Timeline) RemoveNote(n *Note) {
	t.Notes = removeByGUID(t.Notes, n.GUID, func(x *Note) string { return x.GUID })
	delete(t.noteMap, n.GUID)

	var doomed []*NoteLine
	for _, line := range t.NoteLines {
		if line.Head == n.GUID || line.Tail == n.GUID {
			doomed = append(doomed, line)
			continue
		}
		line.InnerNotes = removeString(line.InnerNotes, n.GUID)
	}
	for _, line := range doomed {
		t.RemoveNoteLine(line)
	}

	if t.pending == n {
		t.pending = nil
	}
	t.logger.Debugf("[TIMELINE] Removed note %s (cascaded %d line(s))", n.GUID, len(doomed))
	t.CalculateTime()
}

/* ─── note lines ─── */

func (t *Timeline) AddNoteLine(line *NoteLine) {
	if line.InnerNotes == nil {
		line.InnerNotes = []string{}
	}
	t.NoteLines = append(t.NoteLines, line)
	t.logger.Debugf("[TIMELINE] Added note line %s (%s -> %s)", line.GUID, line.Head, line.Tail)
}

func (t *Timeline) RemoveNoteLine(line *NoteLine) {
	t.NoteLines = removeByGUID(t.NoteLines, line.GUID, func(x *NoteLine) string { return x.GUID })
	t.logger.Debugf("[TIMELINE] Removed note line %s", line.GUID)
}

// AddInnerLineNote synthesizes a zero-size note at the exact rational
// midpoint of the line's head and tail and registers it as an inner note.
// A line whose head or tail cannot be resolved is left untouched.
func (t *Timeline) AddInnerLineNote(line *NoteLine, noteType string) *Note {
	head, okH := t.noteMap[line.Head]
	tail, okT := t.noteMap[line.Tail]
	if !okH || !okT {
		t.logger.Warnf("[TIMELINE] AddInnerLineNote: line %s has unresolved endpoints", line.GUID)
		return nil
	}

	mid := head.Position().Add(tail.Position()).DivInt(2)
	n := &Note{
		GUID:               NewGUID(),
		Type:               noteType,
		Lane:               head.Lane,
		Layer:              head.Layer,
		MeasureIndex:       int(mid.Floor()),
		MeasurePosition:    mid.FracPart(),
		HorizontalPosition: head.HorizontalPosition,
		HorizontalSize:     0,
		Speed:              head.Speed,
	}
	t.AddNote(n)
	line.InnerNotes = append(line.InnerNotes, n.GUID)
	return n
}

/* ─── other objects ─── */

func (t *Timeline) AddOtherObject(o *OtherObject) {
	t.OtherObjects = append(t.OtherObjects, o)
	t.logger.Debugf("[TIMELINE] Added %s object %s", o.Type, o.GUID)
	if o.IsBPM() {
		t.CalculateTime()
	}
}

// RemoveOtherObject deletes the object. Removing the last BPM marker
// reinserts the default one at measure 0: time calculation always has at
// least one tempo anchor.
func (t *Timeline) RemoveOtherObject(o *OtherObject) {
	t.OtherObjects = removeByGUID(t.OtherObjects, o.GUID, func(x *OtherObject) string { return x.GUID })
	if o.IsBPM() {
		t.ensureBPMFloor()
		t.CalculateTime()
	}
	t.logger.Debugf("[TIMELINE] Removed %s object %s", o.Type, o.GUID)
}

func (t *Timeline) ensureBPMFloor() {
	for _, o := range t.OtherObjects {
		if o.IsBPM() {
			return
		}
	}
	t.logger.Infof("[TIMELINE] No BPM marker left, reinserting %g at measure 0", float64(timing.DefaultBPM))
	t.OtherObjects = append(t.OtherObjects, newDefaultBPM())
}

/* ─── lanes ─── */

func (t *Timeline) AddLane(lane *Lane, points ...*LanePoint) {
	for _, p := range points {
		t.LanePoints = append(t.LanePoints, p)
		t.lanePointMap[p.GUID] = p
		lane.Points = append(lane.Points, p.GUID)
	}
	t.Lanes = append(t.Lanes, lane)
	t.laneMap[lane.GUID] = lane
	t.logger.Debugf("[TIMELINE] Added lane %s with %d point(s)", lane.GUID, len(lane.Points))
}

// ExtendLane stretches the last point of the note's lane so the lane covers
// at least through the measure after the note. Used when a note is placed
// past the current lane extent.
func (t *Timeline) ExtendLane(n *Note) {
	lane, ok := t.laneMap[n.Lane]
	if !ok || len(lane.Points) == 0 {
		t.logger.Errorf("[TIMELINE] ExtendLane: note %s references unknown lane %s", n.GUID, n.Lane)
		return
	}
	last, ok := t.lanePointMap[lane.Points[len(lane.Points)-1]]
	if !ok {
		t.logger.Errorf("[TIMELINE] ExtendLane: lane %s has unresolved last point", lane.GUID)
		return
	}
	target := frac.New(int64(n.MeasureIndex+1), 1)
	if last.Position().Cmp(target) < 0 {
		last.MeasureIndex = n.MeasureIndex + 1
		last.MeasurePosition = frac.Zero()
		t.logger.Debugf("[TIMELINE] Extended lane %s through measure %d", lane.GUID, n.MeasureIndex+1)
	}
}

/* ─── derived state ─── */

// CalculateTime rebuilds the tempo integrator from the BPM markers and
// measures, then recomputes every note's judgment timestamp. Call after any
// structural change affecting tempo or measure layout; the mutating methods
// above do so themselves.
func (t *Timeline) CalculateTime() {
	objs := make([]*OtherObject, len(t.OtherObjects))
	copy(objs, t.OtherObjects)
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].Position().Cmp(objs[j].Position()) < 0
	})

	var changes []timing.BPMChange
	for _, o := range objs {
		if o.IsBPM() {
			changes = append(changes, timing.BPMChange{Position: o.Position().Value(), BPM: o.Value})
		}
	}

	maxIndex := -1
	for _, m := range t.Measures {
		if m.Index > maxIndex {
			maxIndex = m.Index
		}
	}
	beats := make([]float64, maxIndex+1)
	for _, m := range t.Measures {
		beats[m.Index] = m.BeatCount()
	}

	t.calc = timing.New(changes, beats)
	for _, n := range t.Notes {
		n.EditorProps.Time = t.calc.GetTime(n.Position().Value())
	}
}

// TimeAt exposes the tempo integrator for collaborators (audio preview).
func (t *Timeline) TimeAt(chartPosition float64) float64 {
	return t.calc.GetTime(chartPosition)
}

/* ─── history ─── */

// Save normalizes the timeline and records a history checkpoint against the
// previous snapshot.
func (t *Timeline) Save() error {
	t.Normalize()
	snap, err := t.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := t.history.Push(snap); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	t.notifyChange()
	return nil
}

// Undo steps back one checkpoint, rebuilding every collection, index and
// judgment time from the restored snapshot. A no-op when nothing can be
// undone. Any pending note reference is invalidated: the entity it pointed
// at may not exist in the restored state.
func (t *Timeline) Undo() error {
	snap, err := t.history.Undo()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	if err := t.restore(snap); err != nil {
		return fmt.Errorf("restore undo state: %w", err)
	}
	t.pending = nil
	t.notifyChange()
	t.logger.Infof("[TIMELINE] Undo")
	return nil
}

// Redo mirrors Undo in the forward direction.
func (t *Timeline) Redo() error {
	snap, err := t.history.Redo()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	if err := t.restore(snap); err != nil {
		return fmt.Errorf("restore redo state: %w", err)
	}
	t.pending = nil
	t.notifyChange()
	t.logger.Infof("[TIMELINE] Redo")
	return nil
}

func (t *Timeline) CanUndo() bool { return t.history.CanUndo() }
func (t *Timeline) CanRedo() bool { return t.history.CanRedo() }

// Normalize reduces every fraction to lowest terms, folds whole-measure
// overflow of intra-measure offsets into the measure index, and orders all
// collections deterministically so equal states serialize identically.
func (t *Timeline) Normalize() {
	// Horizontal fractions are left unreduced: their denominator is the
	// sub-lane column count and horizontalSize is measured in its columns.
	for _, n := range t.Notes {
		n.MeasureIndex, n.MeasurePosition = normalizeOffset(n.MeasureIndex, n.MeasurePosition)
	}
	for _, p := range t.LanePoints {
		p.MeasureIndex, p.MeasurePosition = normalizeOffset(p.MeasureIndex, p.MeasurePosition)
	}
	for _, o := range t.OtherObjects {
		o.MeasureIndex, o.MeasurePosition = normalizeOffset(o.MeasureIndex, o.MeasurePosition)
	}

	sort.SliceStable(t.Notes, func(i, j int) bool { return lessByPosition(t.Notes[i].Position(), t.Notes[i].GUID, t.Notes[j].Position(), t.Notes[j].GUID) })
	sort.SliceStable(t.OtherObjects, func(i, j int) bool {
		return lessByPosition(t.OtherObjects[i].Position(), t.OtherObjects[i].GUID, t.OtherObjects[j].Position(), t.OtherObjects[j].GUID)
	})
	sort.SliceStable(t.LanePoints, func(i, j int) bool {
		return lessByPosition(t.LanePoints[i].Position(), t.LanePoints[i].GUID, t.LanePoints[j].Position(), t.LanePoints[j].GUID)
	})
	sort.SliceStable(t.NoteLines, func(i, j int) bool { return t.NoteLines[i].GUID < t.NoteLines[j].GUID })
	sort.SliceStable(t.Lanes, func(i, j int) bool { return t.Lanes[i].GUID < t.Lanes[j].GUID })
	sort.SliceStable(t.Measures, func(i, j int) bool { return t.Measures[i].Index < t.Measures[j].Index })
}

/* ─── collaborators ─── */

// SetOnChange registers the inspector refresh hook, invoked after every
// save, undo and redo.
func (t *Timeline) SetOnChange(fn func()) { t.onChange = fn }

func (t *Timeline) notifyChange() {
	if t.onChange != nil {
		t.onChange()
	}
}

// SetPendingNote tracks the note currently being drawn or dragged. The
// reference is cleared on undo/redo and when the note is removed.
func (t *Timeline) SetPendingNote(n *Note) { t.pending = n }
func (t *Timeline) PendingNote() *Note     { return t.pending }

/* ─── validation ─── */

// Validate checks cross-reference integrity. Violations are programmer
// errors in normal editing (the cascades and optimization passes prevent
// them), but charts loaded from disk get checked at the boundary.
func (t *Timeline) Validate() []error {
	var errs []error
	for _, n := range t.Notes {
		if _, ok := t.laneMap[n.Lane]; !ok {
			errs = append(errs, fmt.Errorf("note %s references unknown lane %s", n.GUID, n.Lane))
		}
	}
	for _, lane := range t.Lanes {
		if len(lane.Points) < 2 {
			errs = append(errs, fmt.Errorf("lane %s has %d point(s), need at least 2", lane.GUID, len(lane.Points)))
		}
		for _, guid := range lane.Points {
			if _, ok := t.lanePointMap[guid]; !ok {
				errs = append(errs, fmt.Errorf("lane %s references unknown point %s", lane.GUID, guid))
			}
		}
	}
	for _, line := range t.NoteLines {
		if _, ok := t.noteMap[line.Head]; !ok {
			errs = append(errs, fmt.Errorf("note line %s references unknown head %s", line.GUID, line.Head))
		}
		if _, ok := t.noteMap[line.Tail]; !ok {
			errs = append(errs, fmt.Errorf("note line %s references unknown tail %s", line.GUID, line.Tail))
		}
		for _, guid := range line.InnerNotes {
			if _, ok := t.noteMap[guid]; !ok {
				errs = append(errs, fmt.Errorf("note line %s references unknown inner note %s", line.GUID, guid))
			}
		}
	}
	hasBPM := false
	for _, o := range t.OtherObjects {
		if o.IsBPM() {
			hasBPM = true
			break
		}
	}
	if !hasBPM {
		errs = append(errs, fmt.Errorf("timeline has no BPM marker"))
	}
	return errs
}

/* ─── helpers ─── */

func normalizeOffset(measureIndex int, offset frac.Fraction) (int, frac.Fraction) {
	carry := offset.Floor()
	if carry != 0 {
		measureIndex += int(carry)
	}
	return measureIndex, offset.FracPart().Reduced()
}

func lessByPosition(pa frac.Fraction, ga string, pb frac.Fraction, gb string) bool {
	if c := pa.Cmp(pb); c != 0 {
		return c < 0
	}
	return ga < gb
}

func removeByGUID[T any](s []T, guid string, key func(T) string) []T {
	out := s[:0]
	for _, v := range s {
		if key(v) != guid {
			out = append(out, v)
		}
	}
	return out
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
