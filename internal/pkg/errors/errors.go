package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// Infrastructure error kinds. Orchestrator stages wrap these so the
	// recovery runner can classify a failure by store.
	ErrGraphStore    = errors.New("graph store error")
	ErrVectorStore   = errors.New("vector store error")
	ErrMetadataStore = errors.New("metadata store error")
	ErrLLM           = errors.New("llm error")

	// ErrExtraction marks extractor failures or empty extraction results.
	ErrExtraction = errors.New("extraction error")

	// ErrPartialPersistence marks an ingest whose graph write committed but
	// whose vector write did not (or vice versa). Non-fatal: callers may
	// re-submit the same source.
	ErrPartialPersistence = errors.New("partial persistence")
)

// StatusError pins an error to an HTTP status and a stable machine code, for
// the cases where the sentinel mapping above is too coarse. The response
// layer unwraps it into the error envelope as-is.
type StatusError struct {
	Status int
	Code   string
	Err    error
}

func (e *StatusError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return fmt.Sprintf("http error (%d)", e.Status)
	}
	return "http error"
}

func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus wraps err with an explicit HTTP status and code.
func WithStatus(status int, code string, err error) *StatusError {
	return &StatusError{Status: status, Code: code, Err: err}
}
