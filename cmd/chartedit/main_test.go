package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/model"
	"github.com/pastatsh/note-editor/internal/config"
	applog "github.com/pastatsh/note-editor/internal/log"
)

func newCLITestChart(t *testing.T) *model.Timeline {
	t.Helper()
	tl := model.NewTimeline(applog.Discard())
	tl.SetMeasureCount(2)
	head := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       0,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     4,
	}
	tail := &model.LanePoint{
		GUID:               model.NewGUID(),
		MeasureIndex:       2,
		MeasurePosition:    frac.Zero(),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     4,
	}
	tl.AddLane(&model.Lane{GUID: model.NewGUID(), TemplateName: "default", Division: 4}, head, tail)
	return tl
}

func cliTestNote(lane string, measure int, num, den int64) *model.Note {
	return &model.Note{
		GUID:               model.NewGUID(),
		Type:               "tap",
		Lane:               lane,
		MeasureIndex:       measure,
		MeasurePosition:    frac.New(num, den),
		HorizontalPosition: frac.New(0, 4),
		HorizontalSize:     1,
		Speed:              1,
	}
}

func TestWriteChartRunsCleanupPasses(t *testing.T) {
	tl := newCLITestChart(t)
	lane := tl.Lanes[0]
	late := cliTestNote(lane.GUID, 0, 1, 2)
	early := cliTestNote(lane.GUID, 0, 0, 1)
	tl.AddNote(late)
	tl.AddNote(early)
	// Inverted on purpose: the written document must come out swapped.
	tl.AddNoteLine(&model.NoteLine{GUID: model.NewGUID(), Head: late.GUID, Tail: early.GUID})

	path := filepath.Join(t.TempDir(), "chart.json")
	if err := writeChart(tl, path); err != nil {
		t.Fatalf("write chart: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	loaded, err := model.FromJSON(data, applog.Discard())
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if len(loaded.NoteLines) != 1 {
		t.Fatalf("expected 1 note line, got %d", len(loaded.NoteLines))
	}
	line := loaded.NoteLines[0]
	if line.Head != early.GUID || line.Tail != late.GUID {
		t.Fatalf("persisted line not cleaned up: head %s tail %s", line.Head, line.Tail)
	}
}

func TestPlaceNoteUsesConfiguredDivisions(t *testing.T) {
	tl := newCLITestChart(t)
	cfg := config.Default()
	cfg.VerticalDivision = 8

	n, err := placeNote(tl, cfg, 1, 3, 2)
	if err != nil {
		t.Fatalf("place note: %v", err)
	}
	if !n.MeasurePosition.Equal(frac.New(3, 8)) {
		t.Fatalf("expected measure position 3/8, got %s", n.MeasurePosition)
	}
	if !n.HorizontalPosition.Equal(frac.New(2, 4)) {
		t.Fatalf("expected horizontal position 2/4, got %s", n.HorizontalPosition)
	}
	if _, ok := tl.NoteByGUID(n.GUID); !ok {
		t.Fatal("placed note missing from index")
	}
}

func TestPlaceNoteRejectsCellOutsideGrid(t *testing.T) {
	tl := newCLITestChart(t)
	cfg := config.Default()

	if _, err := placeNote(tl, cfg, 0, cfg.VerticalDivision, 0); err == nil {
		t.Fatal("expected error for row past the vertical division")
	}
	if _, err := placeNote(tl, cfg, 0, 0, -1); err == nil {
		t.Fatal("expected error for negative column")
	}
	if _, err := placeNote(tl, cfg, -1, 0, 0); err == nil {
		t.Fatal("expected error for negative measure")
	}
}
