package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScanNotFound        = errors.New("scan not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidFilter       = errors.New("invalid filter")
	ErrEmptyBatch          = errors.New("empty batch")
	ErrBatchTooLarge       = errors.New("batch exceeds maximum size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// AnalysisRequestError is a non-2xx response from the analyzer. It is fatal
// to the file it was issued for and carries the best-effort message taken
// from the error body.
type AnalysisRequestError struct {
	StatusCode int
	Message    string
}

func (e *AnalysisRequestError) Error() string {
	return e.Message
}

// NetworkError is a transport failure before or during streaming. Records
// already delivered before the failure remain valid.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
