package review

import (
	"sync"
	"time"
)

const (
	// CommitDebounce is how long a drag must settle before its boundary
	// is committed.
	CommitDebounce = 500 * time.Millisecond

	// MinBoundaryDelta is the smallest offset movement that restarts the
	// debounce window. Sub-threshold jitter updates the pending proposal
	// without pushing the commit further out.
	MinBoundaryDelta = 3
)

// Proposal is one candidate boundary for a quote, plus the paragraph
// spans the range touches so the commit can raise a merge negotiation.
type Proposal struct {
	QuoteID string
	Start   int
	End     int
	Merge   []ParagraphSpan
}

// BoundaryCommitter debounces live drag updates into a single commit per
// settled boundary. Successive proposals within the window replace the
// pending one rather than queueing, so a long drag produces exactly one
// commit.
type BoundaryCommitter struct {
	mu      sync.Mutex
	commit  func(Proposal)
	timer   *time.Timer
	pending *Proposal
}

// NewBoundaryCommitter returns a committer that invokes commit once per
// settled proposal. The callback runs on the timer goroutine.
func NewBoundaryCommitter(commit func(Proposal)) *BoundaryCommitter {
	return &BoundaryCommitter{commit: commit}
}

// Propose records a candidate boundary. A proposal for a different quote,
// or one that moved at least MinBoundaryDelta characters, restarts the
// debounce window; smaller movements only refresh the pending values.
func (c *BoundaryCommitter) Propose(p Proposal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	restart := true
	if prev := c.pending; prev != nil && prev.QuoteID == p.QuoteID {
		if abs(p.Start-prev.Start) < MinBoundaryDelta && abs(p.End-prev.End) < MinBoundaryDelta {
			restart = false
		}
	}
	c.pending = &p

	if !restart && c.timer != nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(CommitDebounce, c.fire)
}

func (c *BoundaryCommitter) fire() {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	if p != nil {
		c.commit(*p)
	}
}

// Flush commits the pending proposal immediately, if any. Used when the
// drag ends before the debounce window elapses.
func (c *BoundaryCommitter) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p != nil {
		c.commit(*p)
	}
}

// Cancel drops the pending proposal without committing.
func (c *BoundaryCommitter) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
