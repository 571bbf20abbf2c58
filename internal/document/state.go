package document

import "time"

// Default bounds for the persisted unit. The event log drops oldest
// entries first; undo snapshots are whole prior roots.
const (
	MaxEventLog  = 100
	MaxUndoDepth = 50
)

// EventType labels entries in the bounded document event log.
type EventType string

const (
	EventEdit          EventType = "edit"
	EventQuoteVerified EventType = "quote_verified"
	EventQuoteCreated  EventType = "quote_created"
	EventQuoteDeleted  EventType = "quote_deleted"
	EventMerge         EventType = "paragraph_merge"
	EventUndo          EventType = "undo"
	EventRedo          EventType = "redo"
)

// Event is one entry in the document event log.
type Event struct {
	Type   EventType `json:"type"`
	NodeID string    `json:"nodeId,omitempty"`
	At     time.Time `json:"at"`
}

// SaveState is the four-value persistence status surfaced to the UI.
type SaveState string

const (
	SaveStateSaved      SaveState = "saved"
	SaveStateUnsaved    SaveState = "unsaved"
	SaveStateSaving     SaveState = "saving"
	SaveStateAutoSaving SaveState = "auto-saving"
)

// State is the persisted unit: the canonical root plus its bounded event
// log and undo/redo snapshot stacks.
type State struct {
	Root      *RootNode   `json:"root"`
	EventLog  []Event     `json:"eventLog"`
	UndoStack []*RootNode `json:"undoStack"`
	RedoStack []*RootNode `json:"redoStack"`
}

// NewState wraps a root in a fresh state with empty log and stacks.
func NewState(root *RootNode) *State {
	return &State{Root: root}
}

// AppendEvent records an event, dropping the oldest entry once the log
// exceeds MaxEventLog.
func (s *State) AppendEvent(eventType EventType, nodeID string) {
	s.EventLog = append(s.EventLog, Event{Type: eventType, NodeID: nodeID, At: time.Now()})
	if len(s.EventLog) > MaxEventLog {
		s.EventLog = s.EventLog[len(s.EventLog)-MaxEventLog:]
	}
}

// PushUndo stores a prior root snapshot, bounded at MaxUndoDepth, and
// clears the redo stack: a fresh edit forfeits anything previously undone.
func (s *State) PushUndo(prev *RootNode) {
	s.UndoStack = append(s.UndoStack, prev)
	if len(s.UndoStack) > MaxUndoDepth {
		s.UndoStack = s.UndoStack[len(s.UndoStack)-MaxUndoDepth:]
	}
	s.RedoStack = nil
}

// Undo swaps the current root for the newest undo snapshot. Returns false
// when there is nothing to undo.
func (s *State) Undo() bool {
	if len(s.UndoStack) == 0 {
		return false
	}
	last := s.UndoStack[len(s.UndoStack)-1]
	s.UndoStack = s.UndoStack[:len(s.UndoStack)-1]
	s.RedoStack = append(s.RedoStack, s.Root)
	s.Root = last
	return true
}

// Redo restores the most recently undone root. Returns false when the
// redo stack is empty.
func (s *State) Redo() bool {
	if len(s.RedoStack) == 0 {
		return false
	}
	last := s.RedoStack[len(s.RedoStack)-1]
	s.RedoStack = s.RedoStack[:len(s.RedoStack)-1]
	s.UndoStack = append(s.UndoStack, s.Root)
	s.Root = last
	return true
}

// Clone deep-copies the state, snapshots included.
func (s *State) Clone() *State {
	out := &State{Root: s.Root.Clone()}
	if s.EventLog != nil {
		out.EventLog = append([]Event(nil), s.EventLog...)
	}
	for _, snap := range s.UndoStack {
		out.UndoStack = append(out.UndoStack, snap.Clone())
	}
	for _, snap := range s.RedoStack {
		out.RedoStack = append(out.RedoStack, snap.Clone())
	}
	return out
}
