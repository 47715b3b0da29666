package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"productchat/internal/pkg/logx"
)

// BatchEmbedder turns texts into fixed-length vectors. Inputs are split into
// fixed-size batches to respect provider rate limits; requests within a batch
// run concurrently on a bounded worker pool, batches themselves are throttled
// by a token bucket. A failed item yields a zero vector of the configured
// dimension instead of failing the whole call, so ingestion never aborts
// because of one bad text.
type BatchEmbedder struct {
	client     *OpenAICompatibleClient
	cfg        EmbeddingConfig
	dimensions int
	batchSize  int
	pool       *ants.Pool
	limiter    *rate.Limiter
}

type BatchEmbedderOptions struct {
	Dimensions    int
	BatchSize     int
	BatchInterval time.Duration
	Workers       int
}

func NewBatchEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig, opts BatchEmbedderOptions) (*BatchEmbedder, error) {
	if opts.Dimensions <= 0 {
		opts.Dimensions = 768
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchInterval <= 0 {
		opts.BatchInterval = 100 * time.Millisecond
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding worker pool failed: %w", err)
	}

	return &BatchEmbedder{
		client:     client,
		cfg:        cfg,
		dimensions: opts.Dimensions,
		batchSize:  opts.BatchSize,
		pool:       pool,
		limiter:    rate.NewLimiter(rate.Every(opts.BatchInterval), 1),
	}, nil
}

// Dimensions reports the configured embedding vector length.
func (e *BatchEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedBatch returns one vector per input text, in input order. The output
// length always equals the input length; items that could not be embedded
// hold a zero vector.
func (e *BatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding batch throttle interrupted: %w", err)
		}

		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := e.embedChunk(ctx, texts, results, start, end); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// embedChunk fans texts[start:end] out over the worker pool. One failed item
// must not cancel its siblings, so each task records its own fallback.
func (e *BatchEmbedder) embedChunk(ctx context.Context, texts []string, results [][]float32, start, end int) error {
	var wg sync.WaitGroup
	for i := start; i < end; i++ {
		idx := i
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			vec, err := e.client.Embed(ctx, e.cfg, texts[idx])
			if err != nil {
				logx.Warnf("[embedder] item %d degraded to zero vector: %v", idx, err)
				results[idx] = make([]float32, e.dimensions)
				return
			}
			results[idx] = vec
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("submit embedding task failed: %w", submitErr)
		}
	}
	wg.Wait()
	return ctx.Err()
}

// Close releases the worker pool.
func (e *BatchEmbedder) Close() {
	e.pool.Release()
}
