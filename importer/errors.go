package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for file extensions without a decoder.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrJobRunning rejects a start request while another import is in progress.
	ErrJobRunning = errors.New("an import job is already running")
	// ErrOverrideNotFound marks a row whose explicit category override does not exist.
	ErrOverrideNotFound = errors.New("category override not found")
)

// DecodeError wraps a failure to parse the input stream.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
