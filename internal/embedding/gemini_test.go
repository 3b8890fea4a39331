package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeChunked_PreservesOrder(t *testing.T) {
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf(" text-%d ", i)
	}

	var requests atomic.Int32
	fn := func(_ context.Context, chunk []string) ([]Vector, error) {
		requests.Add(1)
		assert.LessOrEqual(t, len(chunk), MaxBatchSize)
		out := make([]Vector, len(chunk))
		for i, c := range chunk {
			var n int
			_, err := fmt.Sscanf(c, "text-%d", &n)
			assert.NoError(t, err)
			out[i] = Vector{float32(n)}
		}
		return out, nil
	}

	vecs, err := encodeChunked(context.Background(), texts, MaxBatchSize, 2, fn)
	require.NoError(t, err)
	require.Len(t, vecs, 250)
	assert.Equal(t, int32(3), requests.Load())
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestEncodeChunked_Empty(t *testing.T) {
	vecs, err := encodeChunked(context.Background(), nil, MaxBatchSize, 2, func(context.Context, []string) ([]Vector, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEncodeChunked_BatchError(t *testing.T) {
	texts := []string{"a", "b", "c"}
	fn := func(_ context.Context, chunk []string) ([]Vector, error) {
		if strings.Contains(strings.Join(chunk, ""), "c") {
			return nil, errors.New("503")
		}
		return make([]Vector, len(chunk)), nil
	}

	_, err := encodeChunked(context.Background(), texts, 2, 1, fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestEncodeChunked_ShortResponse(t *testing.T) {
	fn := func(_ context.Context, chunk []string) ([]Vector, error) {
		return make([]Vector, len(chunk)-1), nil
	}
	_, err := encodeChunked(context.Background(), []string{"a", "b"}, 10, 1, fn)
	assert.ErrorContains(t, err, "expected 2 vectors")
}

func TestGeminiEncoder_WrapsFailures(t *testing.T) {
	enc := &GeminiEncoder{
		model:       "test-model",
		concurrency: 1,
		embed: func(context.Context, []string) ([]Vector, error) {
			return nil, errors.New("boom")
		},
	}

	_, err := enc.EncodeBatch(context.Background(), []string{"x"})
	var mu *ModelUnavailableError
	require.True(t, errors.As(err, &mu))
	assert.Equal(t, "test-model", mu.Model)
	assert.NoError(t, enc.Close())
}

func TestNewGeminiEncoder_RequiresKey(t *testing.T) {
	_, err := NewGeminiEncoder(context.Background(), "", "")
	var mu *ModelUnavailableError
	require.True(t, errors.As(err, &mu))
	assert.Equal(t, DefaultModel, mu.Model)
}
