package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/competency-mapper/internal/types"
)

// Index holds one vector per competency. It is read-only after Build and safe
// to share between goroutines.
type Index struct {
	encoder Encoder
	ids     []string
	pos     map[string]int
	vectors []Vector
	dim     int
}

// Build encodes every competency's name and description in one batched call.
func Build(ctx context.Context, enc Encoder, comps []types.Competency) (*Index, error) {
	if enc == nil {
		return nil, &ModelUnavailableError{Message: "no encoder configured"}
	}

	texts := make([]string, len(comps))
	for i, c := range comps {
		texts[i] = c.EmbeddingText()
	}

	vecs, err := enc.EncodeBatch(ctx, texts)
	if err != nil {
		return nil, asUnavailable(enc.Model(), "failed to encode competencies", err)
	}
	if len(vecs) != len(comps) {
		return nil, &ModelUnavailableError{
			Model:   enc.Model(),
			Message: fmt.Sprintf("expected %d vectors, got %d", len(comps), len(vecs)),
		}
	}

	idx := &Index{
		encoder: enc,
		ids:     make([]string, len(comps)),
		pos:     make(map[string]int, len(comps)),
		vectors: vecs,
	}
	for i, c := range comps {
		if idx.dim == 0 {
			idx.dim = len(vecs[i])
		}
		if len(vecs[i]) == 0 || len(vecs[i]) != idx.dim {
			return nil, &ModelUnavailableError{
				Model:   enc.Model(),
				Message: fmt.Sprintf("vector for %s has dimension %d, want %d", c.ID, len(vecs[i]), idx.dim),
			}
		}
		idx.ids[i] = c.ID
		idx.pos[c.ID] = i
	}
	return idx, nil
}

// Encode embeds a single text. Whitespace-only text yields a nil vector.
func (x *Index) Encode(ctx context.Context, text string) (Vector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	vecs, err := x.encoder.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, asUnavailable(x.encoder.Model(), "failed to encode text", err)
	}
	if len(vecs) != 1 {
		return nil, &ModelUnavailableError{Model: x.encoder.Model(), Message: fmt.Sprintf("expected 1 vector, got %d", len(vecs))}
	}
	if x.dim > 0 && len(vecs[0]) != x.dim {
		return nil, &ModelUnavailableError{
			Model:   x.encoder.Model(),
			Message: fmt.Sprintf("query vector has dimension %d, want %d", len(vecs[0]), x.dim),
		}
	}
	return vecs[0], nil
}

// Vector returns the stored vector of a competency.
func (x *Index) Vector(id string) (Vector, bool) {
	i, ok := x.pos[id]
	if !ok {
		return nil, false
	}
	return x.vectors[i], true
}

// Similarities returns the cosine similarity of query against each id, in the
// order given. Unknown ids get 0.
func (x *Index) Similarities(query Vector, ids []string) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		if v, ok := x.Vector(id); ok {
			out[i] = Similarity(query, v)
		}
	}
	return out
}

// Dim is the vector dimension.
func (x *Index) Dim() int { return x.dim }

// Len is the number of indexed competencies.
func (x *Index) Len() int { return len(x.ids) }

// Model is the name of the encoder's model.
func (x *Index) Model() string { return x.encoder.Model() }

func asUnavailable(model, msg string, err error) error {
	var mu *ModelUnavailableError
	if errors.As(err, &mu) {
		return mu
	}
	return &ModelUnavailableError{Model: model, Message: msg, Cause: err}
}
