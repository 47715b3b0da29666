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

// scriptedGenerator answers rewrite, intent and generation prompts
// differently so one fake can drive the whole pipeline.
type scriptedGenerator struct {
	rewriteReply    string
	intentReply     string
	answerReply     string
	answerErr       error
	generationCalls int
	lastAnswerPrompt string
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Rewrite this question"):
		if g.rewriteReply == "" {
			return "", errors.New("no rewrite scripted")
		}
		return g.rewriteReply, nil
	case strings.Contains(prompt, "Classify the customer's intent"):
		if g.intentReply == "" {
			return "", errors.New("no intent scripted")
		}
		return g.intentReply, nil
	default:
		g.generationCalls++
		g.lastAnswerPrompt = prompt
		if g.answerErr != nil {
			return "", g.answerErr
		}
		return g.answerReply, nil
	}
}

func newChatbotFixture(gen TextGenerator) (*ChatbotService, *fakeProductStore, *fakeChunkStore) {
	productStore := newFakeProductStore()
	chunkStore := &fakeChunkStore{}
	retrieval := NewRetrievalService(chunkStore, &fakeEmbedder{}, gen, 0.7, 0.3)
	svc := NewChatbotService(retrieval, productStore, gen, 8, 3, 0)
	return svc, productStore, chunkStore
}

func seedCatalog(t *testing.T, productStore *fakeProductStore, chunkStore *fakeChunkStore, customerID uint) {
	t.Helper()
	require.NoError(t, productStore.CreateBatch([]model.Product{{
		CustomerID:     customerID,
		Name:           "Silver Necklace",
		Price:          150000,
		Category:       "jewelry",
		TargetAudience: "women",
		DirectURL:      "https://shop.example/necklace",
	}}))
	productID := productStore.created[len(productStore.created)-1].ID

	chunk := model.ProductChunk{
		ID:          uint(len(chunkStore.stored) + 1),
		CustomerID:  customerID,
		ProductID:   productID,
		ChunkText:   "Product: Silver Necklace\nPrice: 150,000 VND",
		ProductName: "Silver Necklace",
		Category:    "jewelry",
	}
	chunk.SetEmbedding([]float32{1, 0, 0})
	chunkStore.stored = append(chunkStore.stored, chunk)
}

func TestGenerateIntelligentResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("empty catalog answers canned reply without generating", func(t *testing.T) {
		gen := &scriptedGenerator{rewriteReply: "silver necklace\ngift ideas"}
		svc, _, _ := newChatbotFixture(gen)

		answer, err := svc.GenerateIntelligentResponse(ctx, 7, "do you sell necklaces?", nil, ResponseOptions{})
		require.NoError(t, err)
		assert.Equal(t, noDataReply, answer)
		assert.Zero(t, gen.generationCalls)
	})

	t.Run("answers from retrieved catalog context", func(t *testing.T) {
		gen := &scriptedGenerator{
			rewriteReply: "silver necklace price",
			intentReply:  "PRICE_INQUIRY",
			answerReply:  "The Silver Necklace costs 150,000 VND.",
		}
		svc, productStore, chunkStore := newChatbotFixture(gen)
		seedCatalog(t, productStore, chunkStore, 7)

		answer, err := svc.GenerateIntelligentResponse(ctx, 7, "how much is the necklace?", nil, ResponseOptions{})
		require.NoError(t, err)
		assert.Equal(t, "The Silver Necklace costs 150,000 VND.", answer)
		assert.Equal(t, 1, gen.generationCalls)

		prompt := gen.lastAnswerPrompt
		assert.Contains(t, prompt, "[Product 1]")
		assert.Contains(t, prompt, "ADDITIONAL INFO")
		assert.Contains(t, prompt, string(IntentPriceInquiry))
		assert.Contains(t, prompt, "how much is the necklace?")
		assert.NotContains(t, prompt, "LENGTH LIMIT")
	})

	t.Run("enforces the word limit with an ellipsis", func(t *testing.T) {
		long := strings.Repeat("word ", 20)
		gen := &scriptedGenerator{
			rewriteReply: "silver necklace",
			intentReply:  "PRODUCT_INFO",
			answerReply:  strings.TrimSpace(long),
		}
		svc, productStore, chunkStore := newChatbotFixture(gen)
		seedCatalog(t, productStore, chunkStore, 7)

		answer, err := svc.GenerateIntelligentResponse(ctx, 7, "tell me about the necklace", nil, ResponseOptions{MaxWords: 5})
		require.NoError(t, err)
		assert.Len(t, strings.Fields(answer), 5)
		assert.True(t, strings.HasSuffix(answer, "…"))
		assert.Contains(t, gen.lastAnswerPrompt, "LENGTH LIMIT: answer in at most 5 words.")
	})

	t.Run("generation failure is fatal", func(t *testing.T) {
		gen := &scriptedGenerator{
			rewriteReply: "silver necklace",
			intentReply:  "PRODUCT_INFO",
			answerErr:    errors.New("provider down"),
		}
		svc, productStore, chunkStore := newChatbotFixture(gen)
		seedCatalog(t, productStore, chunkStore, 7)

		_, err := svc.GenerateIntelligentResponse(ctx, 7, "tell me about the necklace", nil, ResponseOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generate response failed")
	})

	t.Run("validates its input", func(t *testing.T) {
		svc, _, _ := newChatbotFixture(&scriptedGenerator{})

		_, err := svc.GenerateIntelligentResponse(ctx, 0, "hello", nil, ResponseOptions{})
		assert.ErrorIs(t, err, ErrInvalidCustomer)

		_, err = svc.GenerateIntelligentResponse(ctx, 7, "   ", nil, ResponseOptions{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestEnhanceContext(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches full product data to chunks", func(t *testing.T) {
		svc, productStore, chunkStore := newChatbotFixture(&scriptedGenerator{})
		seedCatalog(t, productStore, chunkStore, 7)

		chunks := []RetrievedChunk{{Chunk: chunkStore.stored[0]}}
		enhanced := svc.EnhanceContext(ctx, chunks, 7)

		require.Len(t, enhanced, 1)
		require.NotNil(t, enhanced[0].FullProduct)
		assert.Contains(t, enhanced[0].EnhancedText, "ADDITIONAL INFO")
		assert.Contains(t, enhanced[0].EnhancedText, "Price: 150,000 VND")
		assert.Contains(t, enhanced[0].EnhancedText, "See product: https://shop.example/necklace")
	})

	t.Run("lookup failure passes raw chunk text through", func(t *testing.T) {
		gen := &scriptedGenerator{}
		productStore := newFakeProductStore()
		productStore.listErr = errors.New("db down")
		retrieval := NewRetrievalService(&fakeChunkStore{}, &fakeEmbedder{}, gen, 0.7, 0.3)
		svc := NewChatbotService(retrieval, productStore, gen, 8, 3, 0)

		chunks := []RetrievedChunk{{Chunk: model.ProductChunk{ProductID: 1, ChunkText: "raw text"}}}
		enhanced := svc.EnhanceContext(ctx, chunks, 7)

		require.Len(t, enhanced, 1)
		assert.Nil(t, enhanced[0].FullProduct)
		assert.Equal(t, "raw text", enhanced[0].EnhancedText)
	})

	t.Run("missing product passes raw chunk text through", func(t *testing.T) {
		svc, _, _ := newChatbotFixture(&scriptedGenerator{})

		chunks := []RetrievedChunk{{Chunk: model.ProductChunk{ProductID: 99, ChunkText: "raw text"}}}
		enhanced := svc.EnhanceContext(ctx, chunks, 7)

		require.Len(t, enhanced, 1)
		assert.Nil(t, enhanced[0].FullProduct)
		assert.Equal(t, "raw text", enhanced[0].EnhancedText)
	})
}

func TestAnalyzeIntent(t *testing.T) {
	ctx := context.Background()

	newService := func(gen TextGenerator) *ChatbotService {
		retrieval := NewRetrievalService(&fakeChunkStore{}, &fakeEmbedder{}, gen, 0.7, 0.3)
		return NewChatbotService(retrieval, newFakeProductStore(), gen, 8, 3, 0)
	}

	t.Run("accepts every known label", func(t *testing.T) {
		for _, intent := range []Intent{
			IntentProductInfo, IntentProductCompare, IntentRecommendation,
			IntentPriceInquiry, IntentGeneralInquiry,
		} {
			gen := &fakeGenerator{generateFn: func(string) (string, error) {
				return string(intent), nil
			}}
			assert.Equal(t, intent, newService(gen).AnalyzeIntent(ctx, "q"))
		}
	})

	t.Run("normalizes casing and punctuation", func(t *testing.T) {
		gen := &fakeGenerator{generateFn: func(string) (string, error) {
			return "  price_inquiry. ", nil
		}}
		assert.Equal(t, IntentPriceInquiry, newService(gen).AnalyzeIntent(ctx, "q"))
	})

	t.Run("unrecognized label defaults to general inquiry", func(t *testing.T) {
		gen := &fakeGenerator{generateFn: func(string) (string, error) {
			return "the customer wants to buy something", nil
		}}
		assert.Equal(t, IntentGeneralInquiry, newService(gen).AnalyzeIntent(ctx, "q"))
	})

	t.Run("failures default to general inquiry", func(t *testing.T) {
		gen := &fakeGenerator{generateFn: func(string) (string, error) {
			return "", errors.New("provider down")
		}}
		assert.Equal(t, IntentGeneralInquiry, newService(gen).AnalyzeIntent(ctx, "q"))
	})
}

func TestBuildAdvancedPrompt(t *testing.T) {
	chunks := []RetrievedChunk{
		{EnhancedText: "Product: Silver Necklace"},
		{Chunk: model.ProductChunk{ChunkText: "Product: Leather Wallet"}},
	}

	t.Run("renders numbered context blocks", func(t *testing.T) {
		prompt := buildAdvancedPrompt("q", chunks, IntentGeneralInquiry, nil, 3, 0)
		assert.Contains(t, prompt, "[Product 1] Product: Silver Necklace")
		assert.Contains(t, prompt, "[Product 2] Product: Leather Wallet")
		assert.Contains(t, prompt, "This is the start of the conversation.")
	})

	t.Run("keeps only the most recent history turns", func(t *testing.T) {
		history := []model.Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "second"},
			{Role: "user", Content: "third"},
			{Role: "assistant", Content: "fourth"},
			{Role: "user", Content: "fifth"},
		}
		prompt := buildAdvancedPrompt("q", chunks, IntentGeneralInquiry, history, 3, 0)
		assert.NotContains(t, prompt, "first")
		assert.NotContains(t, prompt, "second")
		assert.Contains(t, prompt, "Customer: third")
		assert.Contains(t, prompt, "Bot: fourth")
		assert.Contains(t, prompt, "Customer: fifth")
	})

	t.Run("intent selects the task block", func(t *testing.T) {
		prompt := buildAdvancedPrompt("q", chunks, IntentProductCompare, nil, 3, 0)
		assert.Contains(t, prompt, "Compare the products in detail")

		prompt = buildAdvancedPrompt("q", chunks, IntentRecommendation, nil, 3, 0)
		assert.Contains(t, prompt, "Recommend the 2-3 best matching products")
	})

	t.Run("word limit appears only when set", func(t *testing.T) {
		assert.NotContains(t, buildAdvancedPrompt("q", chunks, IntentGeneralInquiry, nil, 3, 0), "LENGTH LIMIT")
		assert.Contains(t, buildAdvancedPrompt("q", chunks, IntentGeneralInquiry, nil, 3, 50), "LENGTH LIMIT: answer in at most 50 words.")
	})
}

func TestLimitWords(t *testing.T) {
	assert.Equal(t, "one two three…", limitWords("one two three four five", 3))
	assert.Equal(t, "short answer", limitWords("short answer", 10))
	assert.Equal(t, "exact fit", limitWords("exact fit", 2))
}
