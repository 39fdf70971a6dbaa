package batch

import (
	"errors"
	"fmt"
)

// ErrNoRecords is returned when a run produced no starter records at all.
var ErrNoRecords = errors.New("no starter records extracted")

// ErrorType classifies document-level failures
type ErrorType int

const (
	// ErrorTypeUnreadable means the document text could not be obtained
	ErrorTypeUnreadable ErrorType = iota
	// ErrorTypeNoRaces means the text holds no race header
	ErrorTypeNoRaces
	// ErrorTypeExtractionPanic means extraction of the document aborted
	ErrorTypeExtractionPanic
	// ErrorTypeSink means the records could not be written
	ErrorTypeSink
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnreadable:
		return "Unreadable"
	case ErrorTypeNoRaces:
		return "NoRaces"
	case ErrorTypeExtractionPanic:
		return "ExtractionPanic"
	case ErrorTypeSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the failure drops the document's records. A document
// without races is reported but has nothing to drop.
func (et ErrorType) Fatal() bool {
	return et != ErrorTypeNoRaces
}

// DocumentError is a failure confined to one document
type DocumentError struct {
	Type  ErrorType
	DocID string
	Err   error
}

// NewDocumentError wraps err for the given document
func NewDocumentError(errorType ErrorType, docID string, err error) *DocumentError {
	return &DocumentError{Type: errorType, DocID: docID, Err: err}
}

// Error implements the error interface
func (e *DocumentError) Error() string {
	if e.DocID == "" {
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Type, e.DocID, e.Err)
}

// Unwrap returns the underlying error
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is matches any DocumentError of the same type
func (e *DocumentError) Is(target error) bool {
	t, ok := target.(*DocumentError)
	return ok && t.Type == e.Type && t.DocID == "" && t.Err == nil
}
