// Package history serializes document state for storage. The byte layout
// is an implementation detail: compatibility is this-version-to-itself
// only, enforced by the format field.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"

	"golang.org/x/crypto/blake2b"

	"sermonscribe/api/internal/document"
)

// FormatVersion marks the current envelope layout.
const FormatVersion = 1

var (
	// ErrCorruptRecord indicates a record that could not be decoded at
	// all. No partial state is returned.
	ErrCorruptRecord = errors.New("history: corrupt record")
	// ErrUnsupportedRecord indicates a legacy record without a structured
	// state envelope. These are not migrated; restoring one is a reported
	// failure, never a silent empty document.
	ErrUnsupportedRecord = errors.New("history: unsupported record format")
)

// SerializeOptions bound what goes into the stored record.
type SerializeOptions struct {
	IncludeEventLog bool
	// MaxEvents caps the serialized event log; zero means
	// document.MaxEventLog.
	MaxEvents int
}

type envelope struct {
	Format      int                  `json:"format"`
	Root        *document.RootNode   `json:"root"`
	EventLog    []document.Event     `json:"eventLog,omitempty"`
	UndoStack   []*document.RootNode `json:"undoStack,omitempty"`
	RedoStack   []*document.RootNode `json:"redoStack,omitempty"`
	Fingerprint string               `json:"fingerprint,omitempty"`
}

// CompactSerialize encodes a document state as a storage blob. The event
// log is truncated to the most recent MaxEvents entries; whenever that
// truncation drops anything, both undo and redo stacks are cleared, since
// undoing past the cut would dangle. Excluding the log entirely via
// IncludeEventLog=false is a caller choice, not a prune, and keeps the
// stacks.
func CompactSerialize(state *document.State, opts SerializeOptions) (string, error) {
	if state == nil || state.Root == nil {
		return "", fmt.Errorf("history: nil state")
	}
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = document.MaxEventLog
	}

	env := envelope{
		Format:    FormatVersion,
		Root:      state.Root,
		UndoStack: state.UndoStack,
		RedoStack: state.RedoStack,
	}
	if opts.IncludeEventLog {
		events := state.EventLog
		if len(events) > maxEvents {
			events = events[len(events)-maxEvents:]
			env.UndoStack = nil
			env.RedoStack = nil
		}
		env.EventLog = events
	}

	fingerprint, err := Fingerprint(state.Root)
	if err != nil {
		return "", err
	}
	env.Fingerprint = fingerprint

	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("history: marshal state: %w", err)
	}
	return string(payload), nil
}

// CompactDeserialize is the inverse of CompactSerialize. It returns the
// decoded state, or an error with no partial state: callers must treat
// the document as unrecoverable from that record.
func CompactDeserialize(text string) (*document.State, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if _, ok := fields["format"]; !ok {
		return nil, ErrUnsupportedRecord
	}
	if _, ok := fields["root"]; !ok {
		return nil, ErrUnsupportedRecord
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if env.Format != FormatVersion {
		return nil, fmt.Errorf("%w: format %d", ErrUnsupportedRecord, env.Format)
	}
	if env.Root == nil {
		return nil, fmt.Errorf("%w: null root", ErrCorruptRecord)
	}
	if _, err := env.Root.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return &document.State{
		Root:      env.Root,
		EventLog:  env.EventLog,
		UndoStack: env.UndoStack,
		RedoStack: env.RedoStack,
	}, nil
}

// Fingerprint returns a stable content hash of the root, used to detect
// no-op saves before touching storage.
func Fingerprint(root *document.RootNode) (string, error) {
	canonical, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("history: fingerprint: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return fmt.Sprintf("%x", sum[:16]), nil
}

// EstimateStorageBytes sizes a stored blob the way the storage budget
// counts it: two bytes per UTF-16 code unit.
func EstimateStorageBytes(text string) int {
	return 2 * len(utf16.Encode([]rune(text)))
}
