package model

import (
	"bytes"
	"encoding/json"
	"testing"

	applog "github.com/pastatsh/note-editor/internal/log"
)

func TestJSONRoundTrip(t *testing.T) {
	tl := newTestTimeline()
	lane := addTestLane(tl, 0, 2)
	tl.AddNote(newTestNote(lane, 0, 1, 4))
	tl.AddNote(newTestNote(lane, 1, 3, 8))
	tl.Normalize()

	data, err := tl.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	loaded, err := FromJSON(data, applog.Discard())
	if err != nil {
		t.Fatalf("from json: %v", err)
	}

	want := mustSnapshot(t, tl)
	got := mustSnapshot(t, loaded)
	if !bytes.Equal(want, got) {
		t.Fatalf("round trip changed state:\nwant: %s\ngot:  %s", want, got)
	}
	if loaded.CanUndo() {
		t.Fatal("freshly loaded chart must start with empty history")
	}
}

func TestLoadMigratesLegacyTempoArrays(t *testing.T) {
	doc := `{
		"notes": [], "noteLines": [], "measures": [], "lanes": [], "lanePoints": [],
		"otherObjects": [],
		"bpmChanges": [{"measureIndex": 0, "measurePosition": {"numerator":0,"denominator":1}, "value": 150}],
		"speedChanges": [{"measureIndex": 1, "measurePosition": {"numerator":1,"denominator":2}, "value": 2}]
	}`
	tl, err := FromJSON([]byte(doc), applog.Discard())
	if err != nil {
		t.Fatalf("from json: %v", err)
	}

	var bpm, speed int
	for _, o := range tl.OtherObjects {
		switch o.Type {
		case ObjectTypeBPM:
			bpm++
			if o.Value != 150 {
				t.Fatalf("expected migrated BPM 150, got %g", o.Value)
			}
		case ObjectTypeSpeed:
			speed++
		}
	}
	if bpm != 1 || speed != 1 {
		t.Fatalf("expected 1 bpm + 1 speed marker, got %d + %d", bpm, speed)
	}

	// Legacy arrays never survive a rewrite.
	data, err := tl.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out["bpmChanges"]; ok {
		t.Fatal("bpmChanges must not be written back")
	}
	if _, ok := out["speedChanges"]; ok {
		t.Fatal("speedChanges must not be written back")
	}
}

func TestLegacyTempoArraysShadowedByModernMarkers(t *testing.T) {
	doc := `{
		"notes": [], "noteLines": [], "measures": [], "lanes": [], "lanePoints": [],
		"otherObjects": [{"guid":"x","type":"bpm","measureIndex":0,"measurePosition":{"numerator":0,"denominator":1},"value":200,"layer":0}],
		"bpmChanges": [{"measureIndex": 0, "measurePosition": {"numerator":0,"denominator":1}, "value": 150}]
	}`
	tl, err := FromJSON([]byte(doc), applog.Discard())
	if err != nil {
		t.Fatalf("from json: %v", err)
	}

	var bpms []*OtherObject
	for _, o := range tl.OtherObjects {
		if o.IsBPM() {
			bpms = append(bpms, o)
		}
	}
	if len(bpms) != 1 || bpms[0].Value != 200 {
		t.Fatalf("expected modern 200 BPM marker to win, got %+v", bpms)
	}
}

func TestLoadedChartWithoutBPMGetsFloor(t *testing.T) {
	doc := `{"notes": [], "noteLines": [], "measures": [], "lanes": [], "lanePoints": [], "otherObjects": []}`
	tl, err := FromJSON([]byte(doc), applog.Discard())
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	var bpms []*OtherObject
	for _, o := range tl.OtherObjects {
		if o.IsBPM() {
			bpms = append(bpms, o)
		}
	}
	if len(bpms) != 1 || bpms[0].Value != 120 || bpms[0].MeasureIndex != 0 {
		t.Fatalf("expected default 120 BPM at measure 0, got %+v", bpms)
	}
}

func TestFromJSONRejectsNegativeMeasureIndex(t *testing.T) {
	doc := `{"notes": [], "noteLines": [], "measures": [{"index": -1, "beat": {"numerator":4,"denominator":4}}],
		"lanes": [], "lanePoints": [], "otherObjects": []}`
	if _, err := FromJSON([]byte(doc), applog.Discard()); err == nil {
		t.Fatal("expected error for negative measure index at the load boundary")
	}
}

func TestFromJSONRejectsMalformedFractions(t *testing.T) {
	doc := `{"notes": [{"guid":"n","type":"tap","lane":"l","measureIndex":0,
		"measurePosition":{"numerator":1,"denominator":0},
		"horizontalPosition":{"numerator":0,"denominator":4},
		"horizontalSize":1,"speed":1,"editorProps":{"time":0}}],
		"noteLines": [], "measures": [], "lanes": [], "lanePoints": [], "otherObjects": []}`
	if _, err := FromJSON([]byte(doc), applog.Discard()); err == nil {
		t.Fatal("expected error for zero denominator at the load boundary")
	}
}
