package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productchat/internal/model"
)

type fakeProductStore struct {
	created      []model.Product
	byID         map[uint]model.Product
	nextID       uint
	createErr    error
	listErr      error
	deleteErr    error
	deleteCount  int64
	listRequests [][]uint
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{byID: make(map[uint]model.Product), nextID: 1}
}

func (f *fakeProductStore) CreateBatch(products []model.Product) error {
	if f.createErr != nil {
		return f.createErr
	}
	for i := range products {
		products[i].ID = f.nextID
		f.nextID++
		f.byID[products[i].ID] = products[i]
	}
	f.created = append(f.created, products...)
	return nil
}

func (f *fakeProductStore) ListByIDs(customerID uint, ids []uint) ([]model.Product, error) {
	f.listRequests = append(f.listRequests, ids)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok && p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) DeleteByCustomerID(customerID uint) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleteCount, nil
}

type fakeChunkStore struct {
	created     []model.ProductChunk
	stored      []model.ProductChunk
	createErr   error
	listErr     error
	deleteErr   error
	deleteCount int64
}

func (f *fakeChunkStore) CreateBatch(chunks []model.ProductChunk) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, chunks...)
	return nil
}

func (f *fakeChunkStore) ListByCustomerID(customerID uint) ([]model.ProductChunk, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.ProductChunk
	for _, c := range f.stored {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) DeleteByCustomerID(customerID uint) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleteCount, nil
}

type fakeEmbedder struct {
	embedFn func(texts []string) ([][]float32, error)
	calls   [][]string
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.embedFn != nil {
		return f.embedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeGenerator struct {
	generateFn func(prompt string) (string, error)
	prompts    []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.generateFn != nil {
		return f.generateFn(prompt)
	}
	return "ok", nil
}

func TestChunkProduct(t *testing.T) {
	t.Run("full product yields one chunk per facet", func(t *testing.T) {
		p := &model.Product{
			Name:           "Silver Necklace",
			Description:    "Elegant 925 silver necklace",
			Price:          150000,
			Category:       "jewelry",
			TargetAudience: "women 25-40",
			ToneOfVoice:    "elegant",
			DirectURL:      "https://shop.example/necklace",
		}
		p.SetAttributes(map[string]string{"material": "925 silver", "length": "45cm"})

		chunks := chunkProduct(p)
		require.Len(t, chunks, 4)

		assert.Contains(t, chunks[0], "Product: Silver Necklace")
		assert.Contains(t, chunks[0], "Description: Elegant 925 silver necklace")
		assert.Contains(t, chunks[0], "Price: 150,000 VND")
		assert.Contains(t, chunks[0], "Category: jewelry")

		assert.Contains(t, chunks[1], "Marketing profile for Silver Necklace")
		assert.Contains(t, chunks[1], "Target audience: women 25-40")
		assert.Contains(t, chunks[1], "Tone of voice: elegant")

		assert.Contains(t, chunks[2], "Specifications for Silver Necklace")
		// attribute keys render in sorted order
		assert.Less(t,
			strings.Index(chunks[2], "length: 45cm"),
			strings.Index(chunks[2], "material: 925 silver"),
		)

		assert.Contains(t, chunks[3], "Product link for Silver Necklace: https://shop.example/necklace")
	})

	t.Run("every chunk carries the product name", func(t *testing.T) {
		p := &model.Product{
			Name:           "Leather Wallet",
			Description:    "Hand-stitched",
			TargetAudience: "men",
			DirectURL:      "https://shop.example/wallet",
		}
		for _, chunk := range chunkProduct(p) {
			assert.Contains(t, chunk, "Leather Wallet")
		}
	})

	t.Run("minimal product yields only the basic chunk", func(t *testing.T) {
		chunks := chunkProduct(&model.Product{Name: "Mystery Box"})
		require.Len(t, chunks, 1)
		assert.Equal(t, "Product: Mystery Box", chunks[0])
	})
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "999", formatPrice(999))
	assert.Equal(t, "1,000", formatPrice(1000))
	assert.Equal(t, "150,000", formatPrice(150000))
	assert.Equal(t, "1,500,000", formatPrice(1500000))
	assert.Equal(t, "-42,000", formatPrice(-42000))
	assert.Equal(t, "0", formatPrice(0))
}

func TestIngestCustomerData(t *testing.T) {
	ctx := context.Background()

	t.Run("persists products then embedded chunks", func(t *testing.T) {
		productStore := newFakeProductStore()
		chunkStore := &fakeChunkStore{}
		embedder := &fakeEmbedder{}
		svc := NewRAGService(productStore, chunkStore, embedder)

		necklace := model.Product{
			Name:           "Silver Necklace",
			Description:    "Elegant 925 silver necklace",
			Price:          150000,
			Category:       "jewelry",
			TargetAudience: "women",
		}

		result, err := svc.IngestCustomerData(ctx, 7, []model.Product{necklace})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ProductsCount)
		assert.Equal(t, 2, result.ChunksCount)

		require.Len(t, productStore.created, 1)
		assert.Equal(t, uint(7), productStore.created[0].CustomerID)

		require.Len(t, chunkStore.created, 2)
		for i, chunk := range chunkStore.created {
			assert.Equal(t, uint(7), chunk.CustomerID)
			assert.Equal(t, productStore.created[0].ID, chunk.ProductID)
			assert.Equal(t, i, chunk.ChunkIndex)
			assert.Equal(t, "Silver Necklace", chunk.ProductName)
			assert.NotEmpty(t, chunk.EmbeddingVector())
		}

		// all chunk texts embedded in a single batched call
		require.Len(t, embedder.calls, 1)
		assert.Len(t, embedder.calls[0], 2)
	})

	t.Run("empty catalog is a no-op", func(t *testing.T) {
		productStore := newFakeProductStore()
		chunkStore := &fakeChunkStore{}
		svc := NewRAGService(productStore, chunkStore, &fakeEmbedder{})

		result, err := svc.IngestCustomerData(ctx, 7, nil)
		require.NoError(t, err)
		assert.Zero(t, result.ProductsCount)
		assert.Zero(t, result.ChunksCount)
		assert.Empty(t, productStore.created)
		assert.Empty(t, chunkStore.created)
	})

	t.Run("rejects zero customer id", func(t *testing.T) {
		svc := NewRAGService(newFakeProductStore(), &fakeChunkStore{}, &fakeEmbedder{})
		_, err := svc.IngestCustomerData(ctx, 0, []model.Product{{Name: "x"}})
		assert.ErrorIs(t, err, ErrInvalidCustomer)
	})

	t.Run("embedding failure aborts before chunk persistence", func(t *testing.T) {
		chunkStore := &fakeChunkStore{}
		embedder := &fakeEmbedder{embedFn: func([]string) ([][]float32, error) {
			return nil, errors.New("provider down")
		}}
		svc := NewRAGService(newFakeProductStore(), chunkStore, embedder)

		_, err := svc.IngestCustomerData(ctx, 7, []model.Product{{Name: "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embed catalog chunks failed")
		assert.Empty(t, chunkStore.created)
	})

	t.Run("chunk persistence failure propagates", func(t *testing.T) {
		chunkStore := &fakeChunkStore{createErr: errors.New("table gone")}
		svc := NewRAGService(newFakeProductStore(), chunkStore, &fakeEmbedder{})

		_, err := svc.IngestCustomerData(ctx, 7, []model.Product{{Name: "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ingest chunks failed")
	})
}

func TestDeleteCustomerData(t *testing.T) {
	ctx := context.Background()

	t.Run("reports both deletion counts", func(t *testing.T) {
		productStore := newFakeProductStore()
		productStore.deleteCount = 3
		chunkStore := &fakeChunkStore{deleteCount: 12}
		svc := NewRAGService(productStore, chunkStore, &fakeEmbedder{})

		result, err := svc.DeleteCustomerData(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.ProductsDeleted)
		assert.Equal(t, int64(12), result.ChunksDeleted)
	})

	t.Run("empty catalog deletes zero rows without error", func(t *testing.T) {
		svc := NewRAGService(newFakeProductStore(), &fakeChunkStore{}, &fakeEmbedder{})
		result, err := svc.DeleteCustomerData(ctx, 7)
		require.NoError(t, err)
		assert.Zero(t, result.ProductsDeleted)
		assert.Zero(t, result.ChunksDeleted)
	})

	t.Run("rejects zero customer id", func(t *testing.T) {
		svc := NewRAGService(newFakeProductStore(), &fakeChunkStore{}, &fakeEmbedder{})
		_, err := svc.DeleteCustomerData(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidCustomer)
	})
}
