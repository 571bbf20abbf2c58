// Package docctx holds the top-level document context: the single owner
// of the canonical document state. Every mutation of the tree, from the
// editor surface or the quote review overlays, funnels through one entry
// point here, which versions the change, maintains undo history, and
// schedules the debounced persistence write.
package docctx

import (
	"fmt"
	"log"
	"sync"
	"time"

	"sermonscribe/api/internal/document"
	"sermonscribe/api/internal/history"
	"sermonscribe/api/internal/review"
)

// AutosaveDebounce is the quiet period before a dirty document is written
// to storage.
const AutosaveDebounce = 2 * time.Second

// Source identifies which surface produced a root update. The external
// version counter advances only for non-editor sources, so the editor
// never re-syncs its own writes back into itself.
type Source string

const (
	SourceEditor     Source = "editor"
	SourceReview     Source = "review"
	SourceTranscript Source = "transcript"
	SourceSystem     Source = "system"
)

// PersistFunc writes one serialized document state blob, keyed by
// document id. The context treats the blob as opaque beyond producing it.
type PersistFunc func(docID, blob string) error

// DocumentContext mediates between the converter, the history codec, and
// the quote review state machine for one open document.
type DocumentContext struct {
	mu    sync.Mutex
	state *document.State

	editVersion     int
	savedVersion    int
	externalVersion int

	saving     bool
	autoSaving bool
	lastErr    error

	persist  PersistFunc
	autosave *Debouncer
	codecOpt history.SerializeOptions
}

// New wraps an initial state. persist may be nil for an in-memory
// document; autosave then degrades to a no-op.
func New(state *document.State, persist PersistFunc) *DocumentContext {
	return &DocumentContext{
		state:    state,
		persist:  persist,
		autosave: NewDebouncer(AutosaveDebounce),
		codecOpt: history.SerializeOptions{IncludeEventLog: true, MaxEvents: document.MaxEventLog},
	}
}

// UpdateDocumentState replaces the canonical root. This is the only
// sanctioned mutation entry point: it bumps the edit version, pushes the
// previous root onto the undo stack, clears the redo stack, and schedules
// a debounced persistence write. Ownership of newRoot transfers to the
// context.
func (c *DocumentContext) UpdateDocumentState(newRoot *document.RootNode, source Source) error {
	if newRoot == nil {
		return fmt.Errorf("update document state: nil root")
	}
	c.mu.Lock()
	if newRoot.ID != c.state.Root.ID {
		c.mu.Unlock()
		return fmt.Errorf("update document state: root id changed from %s to %s", c.state.Root.ID, newRoot.ID)
	}
	c.applyLocked(newRoot, source, document.EventEdit, "")
	c.mu.Unlock()

	c.scheduleAutosave()
	return nil
}

// updateFromOverlay commits a root produced by a quote overlay action,
// recording the specific event type. It rides the same version-bumping
// path as UpdateDocumentState; the source is always the review surface,
// so the editor is told to re-sync.
func (c *DocumentContext) updateFromOverlay(newRoot *document.RootNode, event document.EventType, nodeID string) error {
	if newRoot == nil {
		return fmt.Errorf("update document state: nil root")
	}
	c.mu.Lock()
	if newRoot.ID != c.state.Root.ID {
		c.mu.Unlock()
		return fmt.Errorf("update document state: root id changed from %s to %s", c.state.Root.ID, newRoot.ID)
	}
	c.applyLocked(newRoot, SourceReview, event, nodeID)
	c.mu.Unlock()

	c.scheduleAutosave()
	return nil
}

// applyLocked is the shared version-bumping path for updates, undo, and
// redo. Callers hold c.mu.
func (c *DocumentContext) applyLocked(newRoot *document.RootNode, source Source, event document.EventType, nodeID string) {
	if newRoot != nil {
		c.state.PushUndo(c.state.Root)
		c.state.Root = newRoot
	}
	c.state.AppendEvent(event, nodeID)
	c.editVersion++
	if source != SourceEditor {
		c.externalVersion++
	}
}

// Undo swaps the current root for the newest undo snapshot. It goes
// through the same version-bumping path as a regular update; the external
// version always advances because the editor must re-render the restored
// tree.
func (c *DocumentContext) Undo() bool {
	c.mu.Lock()
	if !c.state.Undo() {
		c.mu.Unlock()
		return false
	}
	c.state.AppendEvent(document.EventUndo, "")
	c.editVersion++
	c.externalVersion++
	c.mu.Unlock()

	c.scheduleAutosave()
	return true
}

// Redo restores the most recently undone root.
func (c *DocumentContext) Redo() bool {
	c.mu.Lock()
	if !c.state.Redo() {
		c.mu.Unlock()
		return false
	}
	c.state.AppendEvent(document.EventRedo, "")
	c.editVersion++
	c.externalVersion++
	c.mu.Unlock()

	c.scheduleAutosave()
	return true
}

// CanUndo reports whether an undo snapshot is available.
func (c *DocumentContext) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.UndoStack) > 0
}

// CanRedo reports whether a redo snapshot is available.
func (c *DocumentContext) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.RedoStack) > 0
}

// Root returns a deep copy of the canonical root. Mutating the copy has
// no effect; changes come back through UpdateDocumentState.
func (c *DocumentContext) Root() *document.RootNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Root.Clone()
}

// EditVersion returns the monotonic edit counter.
func (c *DocumentContext) EditVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editVersion
}

// ExternalVersion returns the counter the editor watches to know when the
// tree changed underneath it.
func (c *DocumentContext) ExternalVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.externalVersion
}

// SaveState derives the four-value persistence status.
func (c *DocumentContext) SaveState() document.SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.saving:
		return document.SaveStateSaving
	case c.autoSaving:
		return document.SaveStateAutoSaving
	case c.editVersion == c.savedVersion:
		return document.SaveStateSaved
	default:
		return document.SaveStateUnsaved
	}
}

// Quotes projects the current tree into review items.
func (c *DocumentContext) Quotes() []review.QuoteReviewItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return review.ProjectQuotes(c.state.Root)
}

// Paragraphs projects the current tree into paragraph spans.
func (c *DocumentContext) Paragraphs() []review.ParagraphSpan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return review.ProjectParagraphs(c.state.Root)
}

// Save serializes and writes the document synchronously, cancelling any
// pending autosave.
func (c *DocumentContext) Save() error {
	c.autosave.Cancel()

	c.mu.Lock()
	if c.persist == nil {
		c.mu.Unlock()
		return nil
	}
	c.saving = true
	version := c.editVersion
	blob, err := history.CompactSerialize(c.state, c.codecOpt)
	docID := c.state.Root.ID
	c.mu.Unlock()

	if err == nil {
		err = c.persist(docID, blob)
	}

	c.mu.Lock()
	c.saving = false
	if err == nil {
		c.savedVersion = version
	}
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("save document %s: %w", docID, err)
	}
	return nil
}

// LastError returns the most recent persistence error, if any. Failures
// keep the in-memory document intact; they never discard state.
func (c *DocumentContext) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close flushes any unsaved changes and clears the autosave timer. The
// context must not be used after Close.
func (c *DocumentContext) Close() error {
	c.autosave.Cancel()

	c.mu.Lock()
	dirty := c.editVersion != c.savedVersion && c.persist != nil
	c.mu.Unlock()

	if dirty {
		return c.Save()
	}
	return nil
}

func (c *DocumentContext) scheduleAutosave() {
	c.mu.Lock()
	if c.persist == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.autosave.Trigger(func() {
		c.mu.Lock()
		c.autoSaving = true
		version := c.editVersion
		blob, err := history.CompactSerialize(c.state, c.codecOpt)
		docID := c.state.Root.ID
		persist := c.persist
		c.mu.Unlock()

		if err == nil {
			err = persist(docID, blob)
		}

		c.mu.Lock()
		c.autoSaving = false
		if err == nil {
			c.savedVersion = version
		}
		c.lastErr = err
		c.mu.Unlock()

		if err != nil {
			log.Printf("autosave %s: %v", docID, err)
		}
	})
}
