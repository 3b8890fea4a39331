// Package catalog loads the competency and job catalogs into immutable in-memory tables.
package catalog

import "fmt"

// ErrorKind classifies a catalog load failure.
type ErrorKind string

// Catalog error kinds.
const (
	KindRead              ErrorKind = "read"
	KindMissingColumn     ErrorKind = "missing_column"
	KindDuplicateID       ErrorKind = "duplicate_id"
	KindMalformedID       ErrorKind = "malformed_id"
	KindUnknownDomain     ErrorKind = "unknown_domain"
	KindDanglingReference ErrorKind = "dangling_reference"
	KindMalformedWeight   ErrorKind = "malformed_weight"
	KindEmpty             ErrorKind = "empty"
	KindDomainCount       ErrorKind = "domain_count"
)

// CatalogError is returned when a catalog cannot be loaded. No partial catalog
// is ever returned alongside it.
//
//nolint:revive // CatalogError reads better than catalog.Error at call sites
type CatalogError struct {
	Kind   ErrorKind
	Source string // file or table name
	Row    int    // 1-based data row, 0 when not row-specific
	Value  string
	Cause  error
}

func (e *CatalogError) Error() string {
	msg := fmt.Sprintf("catalog error (%s) in %s", e.Kind, e.Source)
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(": %q", e.Value)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}
