// Package embeddingtest provides an in-memory Encoder for tests.
package embeddingtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/competency-mapper/internal/embedding"
)

// Encoder returns preset vectors by exact (trimmed) text. Unknown texts get a
// zero vector of the configured dimension.
type Encoder struct {
	Dim int
	Err error

	mu      sync.Mutex
	vectors map[string]embedding.Vector
	calls   int
	texts   []string
}

// New returns an Encoder producing vectors of dimension dim.
func New(dim int) *Encoder {
	return &Encoder{Dim: dim, vectors: make(map[string]embedding.Vector)}
}

// Set registers the vector returned for text.
func (e *Encoder) Set(text string, v ...float32) *Encoder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[strings.TrimSpace(text)] = embedding.Vector(v)
	return e
}

// Model implements embedding.Encoder.
func (e *Encoder) Model() string { return "test-encoder" }

// EncodeBatch implements embedding.Encoder.
func (e *Encoder) EncodeBatch(_ context.Context, texts []string) ([]embedding.Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.texts = append(e.texts, texts...)
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]embedding.Vector, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[strings.TrimSpace(t)]; ok {
			out[i] = v
			continue
		}
		out[i] = make(embedding.Vector, e.Dim)
	}
	return out, nil
}

// Calls is the number of EncodeBatch invocations.
func (e *Encoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Texts lists every text passed to EncodeBatch, in call order.
func (e *Encoder) Texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.texts))
	copy(out, e.texts)
	return out
}
