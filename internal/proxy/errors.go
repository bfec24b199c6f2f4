package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnreachable marks a dispatch that exhausted the transport
	// retry budget without getting a usable response.
	ErrBackendUnreachable = errors.New("backend unreachable")
	// ErrDispatchTimeout marks a dispatch that exceeded the per-request
	// time budget, retries included.
	ErrDispatchTimeout = errors.New("dispatch timed out")
)

// ValidationError reports a malformed envelope or payload. It maps to a 400
// and is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ImageFetchError reports a remote image reference that could not be
// retrieved. The whole request fails; no partial substitution is kept.
type ImageFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *ImageFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching image %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching image %s: unexpected status %d", e.URL, e.Status)
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// UploadError reports a failed result publication. The generated image is
// lost from the caller's perspective; there is no inline fallback.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("uploading result: %v", e.Err) }

func (e *UploadError) Unwrap() error { return e.Err }
