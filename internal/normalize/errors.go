package normalize

import (
	"fmt"
	"strings"
)

// MalformedResponseError reports a submission field that cannot be turned into
// a UserResponse. It points at a broken questionnaire adapter, not at user input,
// so it is never silently defaulted.
type MalformedResponseError struct {
	DomainID int
	Field    string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	if e.DomainID > 0 {
		return fmt.Sprintf("malformed response for domain %d, field %q: %s", e.DomainID, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed response field %q: %s", e.Field, e.Reason)
}

// MalformedResponses collects the per-field failures of one submission.
type MalformedResponses []*MalformedResponseError

func (m MalformedResponses) Error() string {
	msgs := make([]string, len(m))
	for i, e := range m {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.As.
func (m MalformedResponses) Unwrap() []error {
	out := make([]error, len(m))
	for i, e := range m {
		out[i] = e
	}
	return out
}

// ForDomain returns the failures recorded against domainID.
func (m MalformedResponses) ForDomain(domainID int) []*MalformedResponseError {
	var out []*MalformedResponseError
	for _, e := range m {
		if e.DomainID == domainID {
			out = append(out, e)
		}
	}
	return out
}
