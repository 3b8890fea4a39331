package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the Gemini embedding model used when none is configured.
	DefaultModel = "text-embedding-004"
	// MaxBatchSize is the per-request limit of BatchEmbedContents.
	MaxBatchSize = 100
	// DefaultConcurrency bounds the number of in-flight batch requests.
	DefaultConcurrency = 4
)

// Encoder turns texts into vectors. Implementations must return one vector per
// input text, in input order.
type Encoder interface {
	EncodeBatch(ctx context.Context, texts []string) ([]Vector, error)
	Model() string
}

// batchFunc embeds at most MaxBatchSize texts in one request.
type batchFunc func(ctx context.Context, texts []string) ([]Vector, error)

// GeminiEncoder implements Encoder with a Gemini embedding model.
type GeminiEncoder struct {
	client      *genai.Client
	model       string
	concurrency int
	embed       batchFunc
}

// GeminiOption customizes a GeminiEncoder.
type GeminiOption func(*GeminiEncoder)

// WithConcurrency sets how many batch requests may run at once.
func WithConcurrency(n int) GeminiOption {
	return func(e *GeminiEncoder) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewGeminiEncoder creates an encoder backed by the Gemini embedding API.
func NewGeminiEncoder(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiEncoder, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		return nil, &ModelUnavailableError{Model: model, Message: "API key is required"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &ModelUnavailableError{Model: model, Message: "failed to create Gemini client", Cause: err}
	}

	em := client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity

	e := &GeminiEncoder{
		client:      client,
		model:       model,
		concurrency: DefaultConcurrency,
		embed:       geminiBatch(em),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func geminiBatch(em *genai.EmbeddingModel) batchFunc {
	return func(ctx context.Context, texts []string) ([]Vector, error) {
		b := em.NewBatch()
		for _, t := range texts {
			b.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		out := make([]Vector, len(texts))
		for i, emb := range resp.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("empty embedding at position %d", i)
			}
			out[i] = Vector(emb.Values)
		}
		return out, nil
	}
}

// Model returns the embedding model name.
func (e *GeminiEncoder) Model() string {
	return e.model
}

// EncodeBatch embeds texts, splitting them into concurrent batches.
func (e *GeminiEncoder) EncodeBatch(ctx context.Context, texts []string) ([]Vector, error) {
	vecs, err := encodeChunked(ctx, texts, MaxBatchSize, e.concurrency, e.embed)
	if err != nil {
		return nil, &ModelUnavailableError{Model: e.model, Message: "embedding request failed", Cause: err}
	}
	return vecs, nil
}

// Close releases the underlying client.
func (e *GeminiEncoder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// encodeChunked splits texts into chunks of size and runs fn on up to limit
// chunks at a time. Results are written back at their input positions.
func encodeChunked(ctx context.Context, texts []string, size, limit int, fn batchFunc) ([]Vector, error) {
	out := make([]Vector, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for start := 0; start < len(texts); start += size {
		start := start
		end := min(start+size, len(texts))
		g.Go(func() error {
			chunk := make([]string, end-start)
			for i, t := range texts[start:end] {
				chunk[i] = strings.TrimSpace(t)
			}
			vecs, err := fn(gctx, chunk)
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != len(chunk) {
				return fmt.Errorf("batch %d-%d: expected %d vectors, got %d", start, end, len(chunk), len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
