// Package models defines the client-side view of upload queue state and the
// local attachment catalog rows.
package models

// UploadQueueItem is one unit of upload work handed out by the queue
// service. The item ID is opaque and is used to report the outcome;
// Attempts is the server-side attempt counter and is authoritative for the
// retry/permanent-failure decision.
type UploadQueueItem struct {
	ID            string `json:"id"`
	LibraryID     int64  `json:"libraryId"`
	AttachmentKey string `json:"attachmentKey"`
	UploadURL     string `json:"uploadUrl"`
	FileHash      string `json:"fileHash"`
	Attempts      int    `json:"attempts"`
}

// QueueStatus is an aggregate snapshot of the server's queue. None of the
// counters are monotonic across consecutive snapshots; the server may report
// a unit's completion before or after the client's own completion event for
// the same unit.
type QueueStatus struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}
