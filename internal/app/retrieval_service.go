package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"productchat/internal/model"
	"productchat/internal/pkg/logx"
)

const rewriteTimeout = 10 * time.Second

// TextGenerator is the narrow contract for the generative-text backend.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// RetrievedChunk is a chunk plus its per-query scores. It lives only for the
// duration of one retrieval call and is never persisted.
type RetrievedChunk struct {
	Chunk         model.ProductChunk `json:"chunk"`
	SemanticScore float64            `json:"semantic_score"`
	KeywordScore  float64            `json:"keyword_score"`
	FinalScore    float64            `json:"final_score"`

	// Filled by context enhancement.
	EnhancedText string         `json:"enhanced_text,omitempty"`
	FullProduct  *model.Product `json:"full_product,omitempty"`
}

// RetrievalService widens recall with query rewriting and ranks a customer's
// chunks by a weighted blend of semantic similarity and keyword overlap.
type RetrievalService struct {
	chunkStore     ChunkStore
	embedder       Embedder
	generator      TextGenerator
	semanticWeight float64
	keywordWeight  float64
}

func NewRetrievalService(chunkStore ChunkStore, embedder Embedder, generator TextGenerator, semanticWeight, keywordWeight float64) *RetrievalService {
	if semanticWeight <= 0 && keywordWeight <= 0 {
		semanticWeight, keywordWeight = 0.7, 0.3
	}
	return &RetrievalService{
		chunkStore:     chunkStore,
		embedder:       embedder,
		generator:      generator,
		semanticWeight: semanticWeight,
		keywordWeight:  keywordWeight,
	}
}

// RewriteQuery expands a question into alternative search queries via one
// generative call. The original question is always the first element; on any
// failure the original question is returned alone so retrieval still runs
// with degraded recall.
func (s *RetrievalService) RewriteQuery(ctx context.Context, question string) []string {
	rewriteCtx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`You are an expert at analyzing customer questions about products.

ORIGINAL QUESTION: %q

Rewrite this question into 2-3 better search queries for finding matching products.
Return only the queries, one per line, with NO explanations.`, question)

	reply, err := s.generator.GenerateText(rewriteCtx, prompt)
	if err != nil {
		logx.Warnf("[retrieval] query rewriting degraded to original question: %v", err)
		return []string{question}
	}

	queries := []string{question}
	for _, line := range strings.Split(reply, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			queries = append(queries, q)
		}
	}
	logx.Infow("[retrieval] rewrote query", "original", question, "queries", len(queries))
	return queries
}

// HybridSearch scores every chunk of the customer against every query, folds
// duplicate hits together by averaging their scores, fuses the semantic and
// keyword components, and returns the topK chunks by final score descending.
// It performs no writes.
func (s *RetrievalService) HybridSearch(ctx context.Context, customerID uint, queries []string, topK int) ([]RetrievedChunk, error) {
	if customerID == 0 {
		return nil, ErrInvalidCustomer
	}
	if len(queries) == 0 || topK <= 0 {
		return nil, nil
	}

	chunks, err := s.chunkStore.ListByCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("load customer chunks failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVectors, err := s.embedder.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embed queries failed: %w", err)
	}

	type accumulator struct {
		chunk       *model.ProductChunk
		semanticSum float64
		keywordSum  float64
		hits        int
	}
	byChunk := make(map[uint]*accumulator)
	var order []uint // first-seen order, the tie-break for equal scores

	for qi, query := range queries {
		queryVector := queryVectors[qi]
		for ci := range chunks {
			chunk := &chunks[ci]
			semantic := cosineSimilarity(queryVector, chunk.EmbeddingVector())
			keyword := keywordScore(query, chunk)

			acc, seen := byChunk[chunk.ID]
			if !seen {
				acc = &accumulator{chunk: chunk}
				byChunk[chunk.ID] = acc
				order = append(order, chunk.ID)
			}
			acc.semanticSum += semantic
			acc.keywordSum += keyword
			acc.hits++
		}
	}

	results := make([]RetrievedChunk, 0, len(order))
	for _, id := range order {
		acc := byChunk[id]
		semantic := acc.semanticSum / float64(acc.hits)
		keyword := acc.keywordSum / float64(acc.hits)
		results = append(results, RetrievedChunk{
			Chunk:         *acc.chunk,
			SemanticScore: semantic,
			KeywordScore:  keyword,
			FinalScore:    s.semanticWeight*semantic + s.keywordWeight*keyword,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if len(results) > topK {
		results = results[:topK]
	}

	logx.Infow("[retrieval] hybrid search finished",
		"customer_id", customerID,
		"queries", len(queries),
		"candidates", len(chunks),
		"returned", len(results),
	)
	return results, nil
}

// keywordScore is the fraction of query tokens longer than two runes that
// appear, case-insensitively, in the chunk text or its denormalized metadata.
func keywordScore(query string, chunk *model.ProductChunk) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	haystack := strings.ToLower(
		chunk.ChunkText + " " + chunk.ProductName + " " + chunk.Category + " " + chunk.TargetAudience,
	)

	matches := 0
	for _, token := range tokens {
		if len([]rune(token)) > 2 && strings.Contains(haystack, token) {
			matches++
		}
	}
	return float64(matches) / float64(len(tokens))
}

// cosineSimilarity of mismatched-length or empty vectors is 0, never an
// error; a zero vector therefore always scores 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
