package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"productchat/internal/model"
	"productchat/internal/pkg/logx"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCustomer = errors.New("invalid customer id")
)

// ProductStore is the narrow contract the RAG pipeline needs from the
// product table. All reads and writes are scoped by customer.
type ProductStore interface {
	CreateBatch(products []model.Product) error
	ListByIDs(customerID uint, ids []uint) ([]model.Product, error)
	DeleteByCustomerID(customerID uint) (int64, error)
}

// ChunkStore is the narrow contract for the chunk table.
type ChunkStore interface {
	CreateBatch(chunks []model.ProductChunk) error
	ListByCustomerID(customerID uint) ([]model.ProductChunk, error)
	DeleteByCustomerID(customerID uint) (int64, error)
}

// Embedder turns texts into vectors; output length always equals input
// length, failed items hold a zero vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RAGService owns catalog ingestion: it persists products, chunks them,
// embeds the chunk texts and persists the chunks.
type RAGService struct {
	productStore ProductStore
	chunkStore   ChunkStore
	embedder     Embedder
}

func NewRAGService(productStore ProductStore, chunkStore ChunkStore, embedder Embedder) *RAGService {
	return &RAGService{
		productStore: productStore,
		chunkStore:   chunkStore,
		embedder:     embedder,
	}
}

type IngestResult struct {
	ProductsCount int `json:"products_count"`
	ChunksCount   int `json:"chunks_count"`
}

type DeleteResult struct {
	ProductsDeleted int64 `json:"products_deleted"`
	ChunksDeleted   int64 `json:"chunks_deleted"`
}

// IngestCustomerData persists the products for the customer, chunks each one,
// embeds all chunk texts in a single batched call and persists the chunks.
// Chunk persistence is deliberately the last step: a failure before it leaves
// only orphan products, which a re-ingestion repairs, never orphan chunks.
func (s *RAGService) IngestCustomerData(ctx context.Context, customerID uint, products []model.Product) (*IngestResult, error) {
	if customerID == 0 {
		return nil, ErrInvalidCustomer
	}
	if len(products) == 0 {
		return &IngestResult{}, nil
	}

	logx.Infof("[rag] ingesting %d products for customer %d", len(products), customerID)

	for i := range products {
		products[i].CustomerID = customerID
	}
	if err := s.productStore.CreateBatch(products); err != nil {
		return nil, fmt.Errorf("ingest products failed: %w", err)
	}

	var chunks []model.ProductChunk
	for i := range products {
		p := &products[i]
		for idx, text := range chunkProduct(p) {
			chunks = append(chunks, model.ProductChunk{
				CustomerID:     customerID,
				ProductID:      p.ID,
				ChunkIndex:     idx,
				ChunkText:      text,
				ProductName:    p.Name,
				Category:       p.Category,
				TargetAudience: p.TargetAudience,
				ToneOfVoice:    p.ToneOfVoice,
				Status:         p.Status,
				DirectURL:      p.DirectURL,
			})
		}
	}
	logx.Infof("[rag] generated %d chunks for customer %d", len(chunks), customerID)

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].ChunkText
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog chunks failed: %w", err)
	}
	for i := range chunks {
		chunks[i].SetEmbedding(embeddings[i])
	}

	if err := s.chunkStore.CreateBatch(chunks); err != nil {
		return nil, fmt.Errorf("ingest chunks failed: %w", err)
	}

	logx.Infof("[rag] saved %d chunks with embeddings for customer %d", len(chunks), customerID)
	return &IngestResult{
		ProductsCount: len(products),
		ChunksCount:   len(chunks),
	}, nil
}

// DeleteCustomerData bulk-deletes the customer's chunks and products.
// Deleting an already empty catalog is not an error.
func (s *RAGService) DeleteCustomerData(ctx context.Context, customerID uint) (*DeleteResult, error) {
	if customerID == 0 {
		return nil, ErrInvalidCustomer
	}

	chunksDeleted, err := s.chunkStore.DeleteByCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("delete customer chunks failed: %w", err)
	}
	productsDeleted, err := s.productStore.DeleteByCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("delete customer products failed: %w", err)
	}

	logx.Infof("[rag] deleted %d products and %d chunks for customer %d", productsDeleted, chunksDeleted, customerID)
	return &DeleteResult{
		ProductsDeleted: productsDeleted,
		ChunksDeleted:   chunksDeleted,
	}, nil
}

// chunkProduct renders a product into ordered, self-contained passages. Each
// chunk repeats the product name so it stays useful when retrieved without
// its siblings.
func chunkProduct(p *model.Product) []string {
	var chunks []string

	basic := "Product: " + p.Name
	if p.Description != "" {
		basic += "\nDescription: " + p.Description
	}
	if p.Price > 0 {
		basic += "\nPrice: " + formatPrice(p.Price) + " VND"
	}
	if p.Category != "" {
		basic += "\nCategory: " + p.Category
	}
	chunks = append(chunks, basic)

	if p.TargetAudience != "" || p.ToneOfVoice != "" {
		marketing := "Marketing profile for " + p.Name + ":"
		if p.TargetAudience != "" {
			marketing += "\nTarget audience: " + p.TargetAudience
		}
		if p.ToneOfVoice != "" {
			marketing += "\nTone of voice: " + p.ToneOfVoice
		}
		chunks = append(chunks, marketing)
	}

	if attrs := p.AttributeMap(); len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, k+": "+attrs[k])
		}
		chunks = append(chunks, "Specifications for "+p.Name+":\n"+strings.Join(lines, "\n"))
	}

	if p.DirectURL != "" {
		chunks = append(chunks, "Product link for "+p.Name+": "+p.DirectURL)
	}

	return chunks
}

// formatPrice groups digits in thousands, e.g. 150000 -> "150,000".
func formatPrice(price int64) string {
	digits := strconv.FormatInt(price, 10)
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
