package models

// Attachment is a row in the local attachment catalog: it maps the host
// item reference (libraryId, key) to a file on disk.
type Attachment struct {
	LibraryID   int64
	Key         string
	LocalPath   string
	ContentType string
	FileHash    string
}
