package history

import (
	"encoding/json"
	"errors"
	"testing"

	"sermonscribe/api/internal/document"
)

func testState() *document.State {
	root := &document.RootNode{
		ID: "doc_codec", Version: 4, Title: "Grace",
		Children: []*document.Node{
			{ID: "p1", Type: document.NodeParagraph, Version: 1, Children: []*document.Node{
				{ID: "t1", Type: document.NodeText, Version: 1, Content: "Amazing grace, how sweet the sound."},
			}},
		},
	}
	state := document.NewState(root)
	state.AppendEvent(document.EventEdit, "p1")
	state.AppendEvent(document.EventQuoteCreated, "q1")
	prior := root.Clone()
	prior.Title = "Earlier"
	state.UndoStack = []*document.RootNode{prior}
	return state
}

func TestRoundTripIdempotence(t *testing.T) {
	state := testState()
	opts := SerializeOptions{IncludeEventLog: true}

	first, err := CompactSerialize(state, opts)
	if err != nil {
		t.Fatalf("CompactSerialize() error = %v", err)
	}
	decoded, err := CompactDeserialize(first)
	if err != nil {
		t.Fatalf("CompactDeserialize() error = %v", err)
	}
	second, err := CompactSerialize(decoded, opts)
	if err != nil {
		t.Fatalf("second CompactSerialize() error = %v", err)
	}
	decodedAgain, err := CompactDeserialize(second)
	if err != nil {
		t.Fatalf("second CompactDeserialize() error = %v", err)
	}

	rootA, _ := json.Marshal(decoded.Root)
	rootB, _ := json.Marshal(decodedAgain.Root)
	if string(rootA) != string(rootB) {
		t.Errorf("root diverged across serialize cycles:\n%s\n%s", rootA, rootB)
	}
	if decoded.Root.ID != "doc_codec" || decoded.Root.Title != "Grace" {
		t.Errorf("decoded root = %+v", decoded.Root)
	}
	if len(decoded.EventLog) != 2 {
		t.Errorf("event log = %d entries, want 2", len(decoded.EventLog))
	}
	if len(decoded.UndoStack) != 1 {
		t.Errorf("undo stack = %d entries, want 1", len(decoded.UndoStack))
	}
}

func TestTruncationClearsStacks(t *testing.T) {
	state := testState()
	for i := 0; i < 10; i++ {
		state.AppendEvent(document.EventEdit, "p1")
	}

	payload, err := CompactSerialize(state, SerializeOptions{IncludeEventLog: true, MaxEvents: 5})
	if err != nil {
		t.Fatalf("CompactSerialize() error = %v", err)
	}
	decoded, err := CompactDeserialize(payload)
	if err != nil {
		t.Fatalf("CompactDeserialize() error = %v", err)
	}
	if len(decoded.EventLog) != 5 {
		t.Errorf("event log = %d, want 5", len(decoded.EventLog))
	}
	// Oldest dropped first: the survivors are the most recent entries.
	for _, event := range decoded.EventLog {
		if event.Type != document.EventEdit {
			t.Errorf("surviving event = %s, want only the recent edits", event.Type)
		}
	}
	if len(decoded.UndoStack) != 0 || len(decoded.RedoStack) != 0 {
		t.Error("stacks survived a pruned log; undoing past the cut would dangle")
	}
}

func TestExcludedLogKeepsStacks(t *testing.T) {
	state := testState()
	payload, err := CompactSerialize(state, SerializeOptions{IncludeEventLog: false})
	if err != nil {
		t.Fatalf("CompactSerialize() error = %v", err)
	}
	decoded, err := CompactDeserialize(payload)
	if err != nil {
		t.Fatalf("CompactDeserialize() error = %v", err)
	}
	if len(decoded.EventLog) != 0 {
		t.Errorf("event log = %d, want excluded", len(decoded.EventLog))
	}
	if len(decoded.UndoStack) != 1 {
		t.Error("undo stack lost when log merely excluded")
	}
}

func TestDeserializeLegacyRecordFails(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"legacy without envelope", `{"title":"Old Sermon","content":"..."}`, ErrUnsupportedRecord},
		{"future format", `{"format":99,"root":{"id":"x","children":[]}}`, ErrUnsupportedRecord},
		{"not json", `not json at all`, ErrCorruptRecord},
		{"null root", `{"format":1,"root":null}`, ErrCorruptRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := CompactDeserialize(tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompactDeserialize() error = %v, want %v", err, tt.wantErr)
			}
			if state != nil {
				t.Error("partial state returned on failure")
			}
		})
	}
}

func TestFingerprintStableAndContentSensitive(t *testing.T) {
	root := testState().Root
	a, err := Fingerprint(root)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	b, _ := Fingerprint(root)
	if a != b {
		t.Error("fingerprint not deterministic")
	}

	changed := root.Clone()
	changed.Children[0].Children[0].Content = "different"
	// Keep timestamps identical so only content differs.
	changed.UpdatedAt = root.UpdatedAt
	c, _ := Fingerprint(changed)
	if a == c {
		t.Error("fingerprint unchanged after content edit")
	}
}

func TestEstimateStorageBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"abc", 6},
		{"héllo", 10},
		{"𝕊", 4}, // surrogate pair: two UTF-16 units
	}
	for _, tt := range tests {
		if got := EstimateStorageBytes(tt.input); got != tt.want {
			t.Errorf("EstimateStorageBytes(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
