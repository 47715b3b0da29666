package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbeddingServer serves an OpenAI-compatible /embeddings endpoint that
// returns a fixed vector, or HTTP 500 for the input "boom".
func newEmbeddingServer(t *testing.T, requests *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)

		var req struct {
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Input == "boom" {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
}

func newTestEmbedder(t *testing.T, baseURL string, opts BatchEmbedderOptions) *BatchEmbedder {
	t.Helper()
	embedder, err := NewBatchEmbedder(NewOpenAICompatibleClient(), EmbeddingConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-embedding",
	}, opts)
	require.NoError(t, err)
	t.Cleanup(embedder.Close)
	return embedder
}

func TestEmbedBatch(t *testing.T) {
	t.Run("empty input yields empty output without requests", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		embedder := newTestEmbedder(t, server.URL, BatchEmbedderOptions{})
		results, err := embedder.EmbedBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Zero(t, atomic.LoadInt64(&requests))
	})

	t.Run("one vector per input in input order", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		embedder := newTestEmbedder(t, server.URL, BatchEmbedderOptions{
			Dimensions:    3,
			BatchSize:     2,
			BatchInterval: time.Millisecond,
			Workers:       4,
		})

		texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
		results, err := embedder.EmbedBatch(context.Background(), texts)
		require.NoError(t, err)
		require.Len(t, results, len(texts))
		for _, vec := range results {
			assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
		}
		assert.Equal(t, int64(len(texts)), atomic.LoadInt64(&requests))
	})

	t.Run("failed item degrades to a zero vector", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		embedder := newTestEmbedder(t, server.URL, BatchEmbedderOptions{
			Dimensions:    3,
			BatchInterval: time.Millisecond,
		})

		results, err := embedder.EmbedBatch(context.Background(), []string{"alpha", "boom", "gamma"})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, results[0])
		assert.Equal(t, []float32{0, 0, 0}, results[1])
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, results[2])
	})

	t.Run("blank text degrades without a request", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		embedder := newTestEmbedder(t, server.URL, BatchEmbedderOptions{
			Dimensions:    3,
			BatchInterval: time.Millisecond,
		})

		results, err := embedder.EmbedBatch(context.Background(), []string{"   "})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, []float32{0, 0, 0}, results[0])
		assert.Zero(t, atomic.LoadInt64(&requests))
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		embedder := newTestEmbedder(t, server.URL, BatchEmbedderOptions{BatchInterval: time.Millisecond})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := embedder.EmbedBatch(ctx, []string{"alpha"})
		assert.Error(t, err)
	})
}

func TestDimensions(t *testing.T) {
	server := newEmbeddingServer(t, new(int64))
	defer server.Close()

	assert.Equal(t, 768, newTestEmbedder(t, server.URL, BatchEmbedderOptions{}).Dimensions())
	assert.Equal(t, 1536, newTestEmbedder(t, server.URL, BatchEmbedderOptions{Dimensions: 1536}).Dimensions())
}
