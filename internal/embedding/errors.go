// Package embedding turns text into fixed-length vectors with a frozen sentence-embedding
// model and answers cosine-similarity queries against the competency catalog.
package embedding

import "fmt"

// ModelUnavailableError is fatal: without a working encoder no analysis can run,
// and there is no fallback encoder.
type ModelUnavailableError struct {
	Model   string
	Message string
	Cause   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding model %q unavailable: %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding model %q unavailable: %s", e.Model, e.Message)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}
