// Package timing converts chart positions into playback timestamps by
// integrating tempo over measures. The chart position scale is continuous:
// measure index plus the unit-interval offset within that measure.
package timing

import (
	"math"
	"sort"
)

const DefaultBPM = 120

// BPMChange is one tempo marker on the continuous chart position scale.
type BPMChange struct {
	Position float64
	BPM      float64
}

// Calculator integrates seconds-per-measure segment by segment. It is
// rebuilt from scratch whenever tempo markers or measures change; it never
// mutates after construction.
type Calculator struct {
	changes      []BPMChange
	measureBeats []float64
}

// New builds a calculator from tempo markers and per-measure beat counts.
// Markers are sorted by position; a marker at or before position 0 anchors
// the integration, with DefaultBPM filling in when none exists.
func New(changes []BPMChange, measureBeats []float64) *Calculator {
	sorted := make([]BPMChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return &Calculator{changes: sorted, measureBeats: measureBeats}
}

func (c *Calculator) beatsOf(measure int) float64 {
	if measure >= 0 && measure < len(c.measureBeats) && c.measureBeats[measure] > 0 {
		return c.measureBeats[measure]
	}
	return 4
}

func (c *Calculator) bpmAt(pos float64) float64 {
	bpm := float64(DefaultBPM)
	for _, ch := range c.changes {
		if ch.Position > pos {
			break
		}
		if ch.BPM > 0 {
			bpm = ch.BPM
		}
	}
	return bpm
}

// GetTime returns the playback timestamp in seconds for a chart position.
// Integration breaks at every measure boundary and tempo marker so each
// segment has one beat count and one tempo.
func (c *Calculator) GetTime(pos float64) float64 {
	if pos <= 0 {
		return 0
	}
	t := 0.0
	p := 0.0
	for p < pos {
		next := math.Min(math.Floor(p)+1, pos)
		for _, ch := range c.changes {
			if ch.Position > p && ch.Position < next {
				next = ch.Position
				break
			}
		}
		m := int(math.Floor(p))
		t += (next - p) * c.beatsOf(m) * 60.0 / c.bpmAt(p)
		p = next
	}
	return t
}
