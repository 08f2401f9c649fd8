// Package uploader implements the upload orchestration engine: it discovers
// pending work from the server-managed queue, executes uploads under a
// bounded concurrency budget, classifies and recovers from failures, and
// reports progress that never appears to regress to an observer.
package uploader

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/logging"
)

const (
	// DefaultConcurrency is the upload worker budget; it is also the batch
	// size requested from the queue service.
	DefaultConcurrency = 3

	errorBackoffBase     = time.Second
	idleBackoffBase      = 2500 * time.Millisecond
	backoffCap           = 60 * time.Second
	maxConsecutiveErrors = 5
	errorPause           = 60 * time.Second
	maxIdlePolls         = 10
)

// QueueService is the narrow queue-service surface the uploader consumes.
// PopQueueItems atomically claims up to max pending items and returns the
// updated aggregate status.
type QueueService interface {
	PopQueueItems(ctx context.Context, max int) ([]models.UploadQueueItem, models.QueueStatus, error)
	CompleteUpload(ctx context.Context, id string, pageCount int) error
	MarkUploadFailed(ctx context.Context, id string, fileHash string) error
	ResetUpload(ctx context.Context, id string) error
}

// AttachmentStore resolves a host item reference to a local file.
type AttachmentStore interface {
	Resolve(ctx context.Context, libraryID int64, key string) (*models.Attachment, error)
}

// Session exposes the authentication state owned by the session subsystem.
// The uploader only reads it.
type Session interface {
	Authenticated(ctx context.Context) bool
}

// StatusFunc receives status-stream events. It may be invoked more often
// than once per completed item (one call per poll plus one per local
// completion) and may be called from multiple goroutines.
type StatusFunc func(models.UploadProgressInfo)

// Config wires an Uploader.
type Config struct {
	Queue       QueueService
	Store       AttachmentStore
	Session     Session
	Logger      logging.Logger
	Concurrency int          // defaults to DefaultConcurrency
	HTTPClient  *http.Client // defaults to http.DefaultClient
}

// Uploader owns the run loop: pop a batch, hand items to the worker pool,
// wait for the batch to drain, repeat. One logical control thread drives the
// loop; the only true parallelism is the pool's worker budget.
type Uploader struct {
	queue       QueueService
	store       AttachmentStore
	session     Session
	logger      logging.Logger
	httpc       *http.Client
	concurrency int

	progress ProgressTracker

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	cbMu     sync.RWMutex
	statusFn StatusFunc

	// sleep is an injection point so tests can observe and skip waits.
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg Config) *Uploader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	u := &Uploader{
		queue:       cfg.Queue,
		store:       cfg.Store,
		session:     cfg.Session,
		logger:      cfg.Logger.With("module", "uploader"),
		httpc:       cfg.HTTPClient,
		concurrency: cfg.Concurrency,
	}
	u.sleep = sleepCtx
	return u
}

// SetStatusCallback replaces the status sink. Starting without ever
// registering a callback is legal; status is simply not observed.
func (u *Uploader) SetStatusCallback(fn StatusFunc) {
	u.cbMu.Lock()
	u.statusFn = fn
	u.cbMu.Unlock()
}

// Start begins the run loop asynchronously. Progress state is reset to zero
// for the new run. A second Start while already running is a no-op.
func (u *Uploader) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		u.logger.Info(context.Background(), "uploader already running")
		return
	}

	u.running = true
	u.progress.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	u.done = make(chan struct{})

	go u.run(ctx, u.done)
}

// Stop signals the run loop to take no further batches and waits for
// in-flight uploads to drain. It does not cancel in-flight PUT requests.
// Calling Stop on an idle uploader is a no-op.
func (u *Uploader) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	cancel, done := u.cancel, u.done
	u.mu.Unlock()

	cancel()
	<-done
}

// Done returns the channel closed when the current run ends, naturally or
// via Stop. Only valid after Start.
func (u *Uploader) Done() <-chan struct{} {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done
}

func (u *Uploader) run(ctx context.Context, done chan struct{}) {
	pool := NewWorkerPool(u.concurrency)
	defer func() {
		pool.Close()
		u.mu.Lock()
		u.running = false
		u.mu.Unlock()
		close(done)
	}()

	// Stop must not abort uploads that already hold a worker slot; their
	// runtime is bounded by the per-attempt deadline instead.
	taskCtx := context.WithoutCancel(ctx)

	errBackoff := NewBackoff(errorBackoffBase, backoffCap)
	idleBackoff := NewBackoff(idleBackoffBase, backoffCap)

	consecutiveErrors := 0
	idlePolls := 0
	prevErr := false

	for {
		if ctx.Err() != nil {
			u.reportCompleted(ctx)
			return
		}

		if !u.session.Authenticated(ctx) {
			// Clean stop: auth loss is not an error and reports no failure.
			u.logger.Info(ctx, "not authenticated, stopping uploader")
			return
		}

		if prevErr {
			if !u.sleep(ctx, errBackoff.Next()) {
				u.reportCompleted(ctx)
				return
			}
		}

		items, status, err := u.queue.PopQueueItems(ctx, u.concurrency)
		if err != nil {
			prevErr = true
			consecutiveErrors++
			// A failed poll breaks the consecutive-empty-poll streak.
			idlePolls = 0
			u.logger.Error(ctx, "queue poll failed", "error", err, "consecutive", consecutiveErrors)
			u.emit(models.UploadStatusFailed)

			if consecutiveErrors >= maxConsecutiveErrors {
				u.logger.Warn(ctx, "too many consecutive poll errors, pausing", "pause", errorPause)
				if !u.sleep(ctx, errorPause) {
					u.reportCompleted(ctx)
					return
				}
				consecutiveErrors = 0
				errBackoff.Reset()
				prevErr = false
			}
			continue
		}

		u.progress.Fold(status)
		u.emit(models.UploadStatusInProgress)

		confirmedEmpty := status.Pending == 0 && status.InProgress == 0

		if len(items) > 0 || confirmedEmpty {
			errBackoff.Reset()
			idleBackoff.Reset()
			consecutiveErrors = 0
			prevErr = false
		}

		if len(items) == 0 {
			if confirmedEmpty {
				u.logger.Info(ctx, "upload queue drained")
				u.reportCompleted(ctx)
				return
			}

			// Work exists server-side but this client did not win any of it.
			idlePolls++
			if idlePolls >= maxIdlePolls {
				u.logger.Info(ctx, "no work won after repeated polls, stopping", "polls", idlePolls)
				return
			}
			if !u.sleep(ctx, idleBackoff.Next()) {
				u.reportCompleted(ctx)
				return
			}
			continue
		}
		idlePolls = 0

		for _, item := range items {
			task := &uploadTask{
				item:   item,
				queue:  u.queue,
				store:  u.store,
				httpc:  u.httpc,
				logger: u.logger,
				sleep:  u.sleep,
				onDone: u.noteLocalCompletion,
			}
			pool.Submit(func() { task.run(taskCtx) })
		}
		pool.Wait()
	}
}

// noteLocalCompletion gives the UI sub-second feedback on a finished upload
// instead of waiting for the next queue poll to confirm it.
func (u *Uploader) noteLocalCompletion() {
	u.progress.BumpCompleted()
	u.emit(models.UploadStatusInProgress)
}

func (u *Uploader) emit(status models.UploadStatus) {
	u.cbMu.RLock()
	fn := u.statusFn
	u.cbMu.RUnlock()
	if fn == nil {
		return
	}
	cur, total := u.progress.Snapshot()
	fn(models.UploadProgressInfo{Status: status, Current: cur, Total: total})
}

func (u *Uploader) reportCompleted(ctx context.Context) {
	u.cbMu.RLock()
	fn := u.statusFn
	u.cbMu.RUnlock()
	if fn == nil {
		return
	}
	_, total := u.progress.Snapshot()
	fn(models.UploadProgressInfo{Status: models.UploadStatusCompleted, Current: total, Total: total})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
