package uploader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/filex"
	"github.com/refsync/refsync/internal/logging"
	"github.com/refsync/refsync/internal/netx"
)

const (
	// maxPutAttempts bounds the in-task fast retry of the PUT itself.
	maxPutAttempts = 3
	// putRetryUnit grows linearly with the attempt number.
	putRetryUnit = 2 * time.Second
	// maxServerAttempts is matched against the server-side attempt counter
	// to decide between resetting the item and failing it for good.
	maxServerAttempts = 3
	// putTimeout bounds a single PUT attempt so a stalled request cannot
	// hold a worker slot forever.
	putTimeout = 5 * time.Minute
)

// uploadTask executes one queue item's life cycle: resolve the local file,
// read it, PUT it to the pre-authorized URL, and report exactly one terminal
// outcome back to the queue service. It never returns an error; reporting
// problems are logged and left for the next poll cycle to reconcile.
type uploadTask struct {
	item   models.UploadQueueItem
	queue  QueueService
	store  AttachmentStore
	httpc  *http.Client
	logger logging.Logger
	sleep  func(ctx context.Context, d time.Duration) bool
	onDone func()
}

func (t *uploadTask) run(ctx context.Context) {
	log := t.logger.With("item", t.item.ID, "attachment", t.item.AttachmentKey)

	att, err := t.store.Resolve(ctx, t.item.LibraryID, t.item.AttachmentKey)
	if err != nil {
		log.Warn(ctx, "attachment not resolvable, marking failed", "error", err)
		t.fail(ctx, log)
		return
	}

	data, err := os.ReadFile(att.LocalPath)
	if err != nil {
		log.Warn(ctx, "attachment not readable, marking failed", "path", att.LocalPath, "error", err)
		t.fail(ctx, log)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = filex.DetectContentType(att.LocalPath, data)
	}

	if err := t.put(ctx, data, contentType); err != nil {
		var se *netx.StatusError
		if errors.As(err, &se) && se.ClientError() {
			// A rejected pre-authorized URL will not start working by waiting.
			log.Warn(ctx, "upload rejected, marking failed", "status", se.StatusCode)
			t.fail(ctx, log)
			return
		}

		if t.item.Attempts >= maxServerAttempts {
			log.Warn(ctx, "transient failure with attempts exhausted, marking failed",
				"attempts", t.item.Attempts, "error", err)
			t.fail(ctx, log)
			return
		}

		log.Info(ctx, "transient failure, returning item to pending",
			"attempts", t.item.Attempts, "error", err)
		if err := t.queue.ResetUpload(ctx, t.item.ID); err != nil {
			log.Error(ctx, "reset report failed", "error", err)
		}
		return
	}

	if err := t.queue.CompleteUpload(ctx, t.item.ID, filex.PDFPageCount(data)); err != nil {
		log.Error(ctx, "completion report failed", "error", err)
		return
	}
	if t.onDone != nil {
		t.onDone()
	}
}

func (t *uploadTask) fail(ctx context.Context, log logging.Logger) {
	if err := t.queue.MarkUploadFailed(ctx, t.item.ID, t.item.FileHash); err != nil {
		log.Error(ctx, "failure report failed", "error", err)
	}
}

// put performs the PUT with the in-task fast retry: up to maxPutAttempts,
// waiting putRetryUnit*attempt between attempts, retrying only transport
// errors and 5xx responses. A 4xx short-circuits immediately.
func (t *uploadTask) put(ctx context.Context, data []byte, contentType string) error {
	var err error
	for attempt := 1; attempt <= maxPutAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, putTimeout)
		err = netx.Put(attemptCtx, t.httpc, t.item.UploadURL, data, contentType)
		cancel()
		if err == nil {
			return nil
		}

		var se *netx.StatusError
		if errors.As(err, &se) && se.ClientError() {
			return err
		}

		if attempt < maxPutAttempts {
			if !t.sleep(ctx, putRetryUnit*time.Duration(attempt)) {
				return err
			}
		}
	}
	return err
}
