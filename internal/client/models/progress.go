package models

// UploadStatus is the coarse state reported on the status stream.
type UploadStatus string

const (
	UploadStatusIdle       UploadStatus = "idle"
	UploadStatusInProgress UploadStatus = "in_progress"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// UploadProgressInfo is one status-stream event. Current never decreases
// during a single uploader run.
type UploadProgressInfo struct {
	Status  UploadStatus `json:"status"`
	Current int          `json:"current"`
	Total   int          `json:"total"`
}
