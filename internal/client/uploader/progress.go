package uploader

import (
	"sync"

	"github.com/refsync/refsync/internal/client/models"
)

// ProgressTracker merges the server's eventually-consistent queue snapshots
// with locally observed task completions into a monotonically non-decreasing
// progress pair. The two sources race: a snapshot may arrive before or after
// the local completion events for the very units it already counts. They are
// therefore kept as separate counters — adding local bumps on top of a folded
// snapshot would double-count whenever the snapshot got there first — and the
// reported value is the larger of the two, which can only grow during one run.
type ProgressTracker struct {
	mu sync.Mutex

	// serverDone is the high-water mark of completed+failed across all
	// snapshots folded this run.
	serverDone int

	// localDone counts completions observed by this run's own tasks.
	localDone int

	total int
}

// Fold merges one server snapshot. Completed and failed both mean "no
// longer pending", which is what local progress communicates.
func (p *ProgressTracker) Fold(status models.QueueStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if status.Total > p.total {
		p.total = status.Total
	}
	if done := status.Completed + status.Failed; done > p.serverDone {
		p.serverDone = done
	}
}

// BumpCompleted records one locally observed completion ahead of the next
// server snapshot confirming it.
func (p *ProgressTracker) BumpCompleted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localDone++
	if p.localDone > p.total {
		p.total = p.localDone
	}
}

// Snapshot returns the current (completed, total) pair.
func (p *ProgressTracker) Snapshot() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return max(p.serverDone, p.localDone), p.total
}

// Reset zeroes the tracker. Called at the start of a run; progress is never
// carried across runs.
func (p *ProgressTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serverDone = 0
	p.localDone = 0
	p.total = 0
}
