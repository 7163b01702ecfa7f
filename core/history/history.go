// Package history implements linear undo/redo over serialized timeline
// snapshots. Each checkpoint stores a pair of RFC 6902 structural patches:
// one taking the state a step backward, one taking it forward again. The
// stack never interprets the snapshot beyond it being a JSON document.
package history

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	applog "github.com/pastatsh/note-editor/internal/log"
)

type checkpoint struct {
	undo json.RawMessage // patch: state after -> state before
	redo json.RawMessage // patch: state before -> state after
}

// Stack is an append-only checkpoint sequence plus a cursor. The cursor
// counts applied checkpoints, so it sits in [0, len(entries)]; the snapshot
// at the cursor is kept verbatim so patches always apply to known input.
type Stack struct {
	entries []checkpoint
	index   int
	prev    []byte
	logger  *applog.Logger
}

// New creates a stack anchored at the given serialized state. The first
// Push diffs against it, so callers pass the canonical empty document for
// a fresh editor session.
func New(initial []byte, logger *applog.Logger) *Stack {
	anchor := make([]byte, len(initial))
	copy(anchor, initial)
	return &Stack{prev: anchor, logger: logger}
}

func (s *Stack) CanUndo() bool { return s.index > 0 }
func (s *Stack) CanRedo() bool { return s.index < len(s.entries) }

// Len reports the number of checkpoints, Cursor how many are applied.
func (s *Stack) Len() int    { return len(s.entries) }
func (s *Stack) Cursor() int { return s.index }

// Push records the transition from the current cursor state to the given
// state. Any checkpoints past the cursor are discarded first; making a new
// edit after an undo forfeits the redo branch.
func (s *Stack) Push(current []byte) error {
	redo, err := diff(s.prev, current)
	if err != nil {
		return fmt.Errorf("diff forward: %w", err)
	}
	undo, err := diff(current, s.prev)
	if err != nil {
		return fmt.Errorf("diff backward: %w", err)
	}

	if dropped := len(s.entries) - s.index; dropped > 0 {
		s.logger.Debugf("[HISTORY] Discarding %d redo checkpoint(s)", dropped)
	}
	s.entries = append(s.entries[:s.index], checkpoint{undo: undo, redo: redo})
	s.index = len(s.entries)

	snap := make([]byte, len(current))
	copy(snap, current)
	s.prev = snap

	s.logger.Debugf("[HISTORY] Saved checkpoint %d (undo %dB, redo %dB)", s.index, len(undo), len(redo))
	return nil
}

// Undo steps the cursor back one checkpoint and returns the reconstructed
// earlier state. It returns (nil, nil) when there is nothing to undo; a
// non-nil error means the stored patch failed to apply and the operation
// had no effect.
func (s *Stack) Undo() ([]byte, error) {
	if !s.CanUndo() {
		return nil, nil
	}
	entry := s.entries[s.index-1]
	restored, err := apply(entry.undo, s.prev)
	if err != nil {
		return nil, fmt.Errorf("apply undo patch %d: %w", s.index, err)
	}
	s.index--
	s.prev = restored
	s.logger.Debugf("[HISTORY] Undo to checkpoint %d", s.index)
	return restored, nil
}

// Redo steps the cursor forward one checkpoint. Semantics mirror Undo.
func (s *Stack) Redo() ([]byte, error) {
	if !s.CanRedo() {
		return nil, nil
	}
	entry := s.entries[s.index]
	restored, err := apply(entry.redo, s.prev)
	if err != nil {
		return nil, fmt.Errorf("apply redo patch %d: %w", s.index+1, err)
	}
	s.index++
	s.prev = restored
	s.logger.Debugf("[HISTORY] Redo to checkpoint %d", s.index)
	return restored, nil
}

func diff(from, to []byte) (json.RawMessage, error) {
	patch, err := jsondiff.CompareJSON(from, to)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(patch)
}

func apply(patch json.RawMessage, doc []byte) ([]byte, error) {
	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	return decoded.Apply(doc)
}
