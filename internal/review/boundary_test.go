package review

import (
	"sync"
	"testing"
	"time"
)

type commitRecorder struct {
	mu      sync.Mutex
	commits []Proposal
}

func (r *commitRecorder) record(p Proposal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, p)
}

func (r *commitRecorder) snapshot() []Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Proposal(nil), r.commits...)
}

func TestBoundaryCommitterCoalescesDrag(t *testing.T) {
	rec := &commitRecorder{}
	c := NewBoundaryCommitter(rec.record)

	// A drag is a stream of proposals; only the settled one commits.
	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 20})
	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 30})
	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 45})
	c.Flush()

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("got %d commits, want 1", len(got))
	}
	if got[0].End != 45 {
		t.Errorf("committed End = %d, want the last proposal's 45", got[0].End)
	}
}

func TestBoundaryCommitterCancelDropsPending(t *testing.T) {
	rec := &commitRecorder{}
	c := NewBoundaryCommitter(rec.record)

	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 20})
	c.Cancel()
	c.Flush()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("got %d commits after cancel, want 0", len(got))
	}
}

func TestBoundaryCommitterFiresAfterDebounce(t *testing.T) {
	rec := &commitRecorder{}
	fired := make(chan struct{}, 1)
	c := NewBoundaryCommitter(func(p Proposal) {
		rec.record(p)
		fired <- struct{}{}
	})

	c.Propose(Proposal{QuoteID: "q1", Start: 0, End: 9})

	select {
	case <-fired:
	case <-time.After(CommitDebounce + 2*time.Second):
		t.Fatal("debounce never fired")
	}
	if got := rec.snapshot(); len(got) != 1 || got[0].End != 9 {
		t.Fatalf("commits = %+v", got)
	}

	// Nothing pending afterwards.
	c.Flush()
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("flush after fire added a commit: %+v", got)
	}
}

func TestBoundaryCommitterSubThresholdJitter(t *testing.T) {
	rec := &commitRecorder{}
	c := NewBoundaryCommitter(rec.record)

	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 20})
	// One character of jitter refreshes the pending value but must not
	// be lost.
	c.Propose(Proposal{QuoteID: "q1", Start: 10, End: 21})
	c.Flush()

	got := rec.snapshot()
	if len(got) != 1 || got[0].End != 21 {
		t.Fatalf("commits = %+v, want single commit at End 21", got)
	}
}
