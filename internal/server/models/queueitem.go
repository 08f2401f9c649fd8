package models

import "time"

// Queue item states. pending items are claimable; in_progress items belong
// to the client that claimed them until completion, failure, reset, or the
// reaper's visibility timeout.
const (
	QueueStatusPending    = "pending"
	QueueStatusInProgress = "in_progress"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// QueueItem is one row of the upload queue.
type QueueItem struct {
	ID            string
	UserID        string
	LibraryID     int64
	AttachmentKey string
	StorageKey    string
	FileHash      string
	PageCount     int
	Status        string
	Attempts      int
	ClaimedAt     *time.Time
	CreatedAt     time.Time
}

// QueueCounts is the aggregate queue snapshot returned with every pop. The
// JSON field names are part of the wire contract with the agent.
type QueueCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}
