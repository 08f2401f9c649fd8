// Package netx holds the raw HTTP upload helper used to push attachment
// bytes to a pre-authorized (presigned) object-storage URL.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned by Put when the endpoint answers with a non-2xx
// status. It keeps the code so callers can split caller-side (4xx) failures
// from server-side (5xx) ones without matching on message text.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// ClientError reports whether the response status is in the 4xx range.
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Put uploads body to url with a single PUT request and the given
// Content-Type. No chunking, no multipart.
//
// Failure modes:
//   - transport-level problems surface as the underlying *url.Error;
//   - non-2xx responses surface as *StatusError.
func Put(ctx context.Context, client *http.Client, url string, body []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
