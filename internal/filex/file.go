// Package filex contains small file helpers for the agent: data directory
// bootstrap, attachment content-type detection, and the PDF page-count probe
// used for reporting.
package filex

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DetectContentType picks a MIME type for an attachment. The extension wins
// for the types the plugin cares about; everything else falls back to
// content sniffing.
func DetectContentType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}

var pdfPageMarkers = [][]byte{
	[]byte("/Type/Page"),
	[]byte("/Type /Page"),
}

// PDFPageCount counts page objects in a PDF body. It is a bounded scan for
// "/Type /Page" markers, good enough for the reporting-only page count the
// queue service records; it returns 0 for non-PDF data.
func PDFPageCount(data []byte) int {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0
	}

	count := 0
	for _, marker := range pdfPageMarkers {
		idx := 0
		for {
			j := bytes.Index(data[idx:], marker)
			if j < 0 {
				break
			}
			pos := idx + j + len(marker)
			// "/Type /Pages" is the page-tree node, not a page
			if pos >= len(data) || data[pos] != 's' {
				count++
			}
			idx = pos
		}
	}
	return count
}
