package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/competency-mapper/internal/types"
)

// fieldReader extracts typed values from a decoded JSON object and records a
// MalformedResponseError for every wrong-typed field instead of failing fast.
type fieldReader struct {
	domainID int
	errs     MalformedResponses
}

func (f *fieldReader) fail(field, format string, args ...any) {
	f.errs = append(f.errs, &MalformedResponseError{
		DomainID: f.domainID,
		Field:    field,
		Reason:   fmt.Sprintf(format, args...),
	})
}

func (f *fieldReader) text(field string, v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		f.fail(field, "expected string, got %T", v)
		return ""
	}
}

// list reads a multi-select answer. Items are trimmed, de-duplicated and kept
// in first-seen order.
func (f *fieldReader) list(field string, v any) []string {
	var items []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		items = t
	case []any:
		items = make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				f.fail(field, "item %d: expected string, got %T", i, item)
				return nil
			}
			items = append(items, s)
		}
	default:
		f.fail(field, "expected list of strings, got %T", v)
		return nil
	}
	return dedupe(items)
}

// rating reads an integral self-rating in [0, MaxSelfRating].
func (f *fieldReader) rating(field string, v any) int {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			f.fail(field, "invalid number %q", t.String())
			return 0
		}
		n = parsed
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	default:
		f.fail(field, "expected integer rating, got %T", v)
		return 0
	}

	if n != math.Trunc(n) {
		f.fail(field, "rating %v is not an integer", n)
		return 0
	}
	if n < 0 || n > types.MaxSelfRating {
		f.fail(field, "rating %v outside 0..%d", n, types.MaxSelfRating)
		return 0
	}
	return int(n)
}

func (f *fieldReader) object(field string, v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return t
	default:
		f.fail(field, "expected object, got %T", v)
		return nil
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// appendUnique adds items not already in dst.
func appendUnique(dst []string, items ...string) []string {
	return dedupe(append(dst, items...))
}
