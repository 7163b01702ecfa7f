package model

import "sort"

// Optimize runs the structural cleanup passes in order. Invoked before
// every persistence write.
func (t *Timeline) Optimize() {
	t.OptimizeLane()
	t.OptimizeNoteLine()
	t.OptimizeNote()
}

// OptimizeLane sorts every lane's points by chart position, then merges
// lanes that share an endpoint vertex until no merge is found. Each merge
// removes one lane, so the loop is bounded by the lane count even if a
// cycle of shared endpoints slips in.
func (t *Timeline) OptimizeLane() {
	for _, lane := range t.Lanes {
		sort.SliceStable(lane.Points, func(i, j int) bool {
			pi, oki := t.lanePointMap[lane.Points[i]]
			pj, okj := t.lanePointMap[lane.Points[j]]
			if !oki || !okj {
				return false
			}
			return pi.Position().Cmp(pj.Position()) < 0
		})
	}

	limit := len(t.Lanes)
	for i := 0; i < limit; i++ {
		dst, src := t.findMergeablePair()
		if dst == nil {
			break
		}
		t.mergeLanes(dst, src)
	}
}

func (t *Timeline) findMergeablePair() (*Lane, *Lane) {
	for _, a := range t.Lanes {
		if len(a.Points) == 0 {
			continue
		}
		tail, ok := t.lanePointMap[a.Points[len(a.Points)-1]]
		if !ok {
			continue
		}
		for _, b := range t.Lanes {
			if a == b || len(b.Points) == 0 {
				continue
			}
			head, ok := t.lanePointMap[b.Points[0]]
			if !ok {
				continue
			}
			if tail.SamePlace(head) {
				return a, b
			}
		}
	}
	return nil, nil
}

// mergeLanes absorbs src into dst. The shared vertex is kept once; every
// note on src is re-pointed at dst.
func (t *Timeline) mergeLanes(dst, src *Lane) {
	shared := src.Points[0]
	t.LanePoints = removeByGUID(t.LanePoints, shared, func(p *LanePoint) string { return p.GUID })
	delete(t.lanePointMap, shared)
	dst.Points = append(dst.Points, src.Points[1:]...)

	moved := 0
	for _, n := range t.Notes {
		if n.Lane == src.GUID {
			n.Lane = dst.GUID
			moved++
		}
	}

	t.Lanes = removeByGUID(t.Lanes, src.GUID, func(l *Lane) string { return l.GUID })
	delete(t.laneMap, src.GUID)
	t.logger.Debugf("[TIMELINE] Merged lane %s into %s (%d note(s) moved)", src.GUID, dst.GUID, moved)
}

// OptimizeNoteLine orients every line so its head does not come after its
// tail, and prunes lines whose endpoints no longer resolve.
func (t *Timeline) OptimizeNoteLine() {
	var dangling []*NoteLine
	for _, line := range t.NoteLines {
		head, okH := t.noteMap[line.Head]
		tail, okT := t.noteMap[line.Tail]
		if !okH || !okT {
			dangling = append(dangling, line)
			continue
		}
		if head.Position().Cmp(tail.Position()) > 0 {
			line.Head, line.Tail = line.Tail, line.Head
			t.logger.Debugf("[TIMELINE] Swapped head/tail of note line %s", line.GUID)
		}
	}
	for _, line := range dangling {
		t.logger.Warnf("[TIMELINE] Pruning dangling note line %s", line.GUID)
		t.RemoveNoteLine(line)
	}
}

// OptimizeNote deletes inner notes that drifted outside their line's
// [head, tail] span, then any zero-size note no line references as an
// inner note. Zero-size notes exist only as line decorations.
func (t *Timeline) OptimizeNote() {
	var doomed []*Note
	for _, line := range t.NoteLines {
		head, okH := t.noteMap[line.Head]
		tail, okT := t.noteMap[line.Tail]
		if !okH || !okT {
			continue
		}
		kept := line.InnerNotes[:0]
		for _, guid := range line.InnerNotes {
			n, ok := t.noteMap[guid]
			if !ok {
				continue
			}
			if n.Position().Cmp(head.Position()) < 0 || n.Position().Cmp(tail.Position()) > 0 {
				doomed = append(doomed, n)
				continue
			}
			kept = append(kept, guid)
		}
		line.InnerNotes = kept
	}
	for _, n := range doomed {
		t.logger.Debugf("[TIMELINE] Removing out-of-span inner note %s", n.GUID)
		t.RemoveNote(n)
	}

	referenced := make(map[string]bool)
	for _, line := range t.NoteLines {
		for _, guid := range line.InnerNotes {
			referenced[guid] = true
		}
	}
	var strays []*Note
	for _, n := range t.Notes {
		if n.HorizontalSize == 0 && !referenced[n.GUID] {
			strays = append(strays, n)
		}
	}
	for _, n := range strays {
		t.logger.Debugf("[TIMELINE] Removing stray zero-size note %s", n.GUID)
		t.RemoveNote(n)
	}
}
