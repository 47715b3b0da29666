package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"productchat/internal/model"
	"productchat/internal/pkg/logx"
)

const intentTimeout = 10 * time.Second

// Intent labels what the customer is really asking for. It only affects the
// phrasing of the generation prompt, never whether retrieval runs.
type Intent string

const (
	IntentProductInfo    Intent = "PRODUCT_INFO"
	IntentProductCompare Intent = "PRODUCT_COMPARE"
	IntentRecommendation Intent = "RECOMMENDATION"
	IntentPriceInquiry   Intent = "PRICE_INQUIRY"
	IntentGeneralInquiry Intent = "GENERAL_INQUIRY"
)

const noDataReply = "I'm sorry, I couldn't find anything matching that in our catalog. " +
	"Could you tell me a bit more about what you're looking for, or share your budget so I can suggest something suitable?"

// ResponseOptions tunes one answer. MaxWords <= 0 means no limit.
type ResponseOptions struct {
	MaxWords int
}

// ChatbotService orchestrates the full answer pipeline: query rewriting,
// hybrid retrieval, context enhancement, intent analysis, prompt assembly and
// a single generation call.
type ChatbotService struct {
	retrieval       *RetrievalService
	productStore    ProductStore
	generator       TextGenerator
	topK            int
	maxHistoryTurns int
	defaultMaxWords int
}

func NewChatbotService(retrieval *RetrievalService, productStore ProductStore, generator TextGenerator, topK, maxHistoryTurns, defaultMaxWords int) *ChatbotService {
	if topK <= 0 {
		topK = 8
	}
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = 3
	}
	return &ChatbotService{
		retrieval:       retrieval,
		productStore:    productStore,
		generator:       generator,
		topK:            topK,
		maxHistoryTurns: maxHistoryTurns,
		defaultMaxWords: defaultMaxWords,
	}
}

// GenerateIntelligentResponse answers the question from the customer's
// catalog. Rewriting and intent analysis degrade to fallbacks on failure;
// retrieval and the final generation call are fatal when they fail. Zero
// retrieved chunks short-circuits to a canned reply without touching the
// generative backend.
func (s *ChatbotService) GenerateIntelligentResponse(ctx context.Context, customerID uint, question string, history []model.Message, opts ResponseOptions) (string, error) {
	if customerID == 0 {
		return "", ErrInvalidCustomer
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrInvalidInput
	}

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = s.defaultMaxWords
	}

	queries := s.retrieval.RewriteQuery(ctx, question)

	chunks, err := s.retrieval.HybridSearch(ctx, customerID, queries, s.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context failed: %w", err)
	}
	if len(chunks) == 0 {
		logx.Infof("[chatbot] no chunks retrieved for customer %d, returning no-data reply", customerID)
		return noDataReply, nil
	}

	enhanced := s.EnhanceContext(ctx, chunks, customerID)
	intent := s.AnalyzeIntent(ctx, question)
	prompt := buildAdvancedPrompt(question, enhanced, intent, history, s.maxHistoryTurns, maxWords)

	answer, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate response failed: %w", err)
	}

	if maxWords > 0 {
		answer = limitWords(answer, maxWords)
	}
	return answer, nil
}

// EnhanceContext attaches full product records to the retrieved chunks in one
// batched lookup and renders an enriched text block per chunk. A missing
// product, or a failed lookup, passes the chunk through with its original
// text rather than failing the request.
func (s *ChatbotService) EnhanceContext(ctx context.Context, chunks []RetrievedChunk, customerID uint) []RetrievedChunk {
	seen := make(map[uint]bool)
	var ids []uint
	for i := range chunks {
		id := chunks[i].Chunk.ProductID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	products, err := s.productStore.ListByIDs(customerID, ids)
	if err != nil {
		logx.Warnf("[chatbot] context enhancement degraded, using raw chunks: %v", err)
		for i := range chunks {
			chunks[i].EnhancedText = chunks[i].Chunk.ChunkText
		}
		return chunks
	}

	byID := make(map[uint]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for i := range chunks {
		product := byID[chunks[i].Chunk.ProductID]
		chunks[i].FullProduct = product
		chunks[i].EnhancedText = buildEnhancedText(&chunks[i].Chunk, product)
	}
	return chunks
}

func buildEnhancedText(chunk *model.ProductChunk, product *model.Product) string {
	if product == nil {
		return chunk.ChunkText
	}

	var b strings.Builder
	b.WriteString(chunk.ChunkText)
	b.WriteString("\n\nADDITIONAL INFO:\n")
	if product.Price > 0 {
		b.WriteString("- Price: " + formatPrice(product.Price) + " VND\n")
	}
	if product.Category != "" {
		b.WriteString("- Category: " + product.Category + "\n")
	}
	if product.TargetAudience != "" {
		b.WriteString("- Audience: " + product.TargetAudience + "\n")
	}
	if product.ToneOfVoice != "" {
		b.WriteString("- Style: " + product.ToneOfVoice + "\n")
	}
	if product.DirectURL != "" {
		b.WriteString("- See product: " + product.DirectURL + "\n")
	}
	return b.String()
}

// AnalyzeIntent labels the question with one generative call. Unrecognized
// output or any failure defaults to GENERAL_INQUIRY.
func (s *ChatbotService) AnalyzeIntent(ctx context.Context, question string) Intent {
	intentCtx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`Classify the customer's intent. Return exactly one of these values:
- PRODUCT_INFO: asking about a specific product
- PRODUCT_COMPARE: comparing products
- RECOMMENDATION: asking which product suits them
- PRICE_INQUIRY: asking about price
- GENERAL_INQUIRY: anything else

Question: %q

Return one keyword only, NO explanations.`, question)

	reply, err := s.generator.GenerateText(intentCtx, prompt)
	if err != nil {
		logx.Warnf("[chatbot] intent analysis degraded to %s: %v", IntentGeneralInquiry, err)
		return IntentGeneralInquiry
	}

	label := Intent(strings.ToUpper(strings.Trim(strings.TrimSpace(reply), ".")))
	switch label {
	case IntentProductInfo, IntentProductCompare, IntentRecommendation, IntentPriceInquiry, IntentGeneralInquiry:
		return label
	}
	logx.Warnf("[chatbot] unrecognized intent %q, defaulting to %s", reply, IntentGeneralInquiry)
	return IntentGeneralInquiry
}

func buildAdvancedPrompt(question string, chunks []RetrievedChunk, intent Intent, history []model.Message, maxHistoryTurns, maxWords int) string {
	contextBlocks := make([]string, len(chunks))
	for i := range chunks {
		text := chunks[i].EnhancedText
		if text == "" {
			text = chunks[i].Chunk.ChunkText
		}
		contextBlocks[i] = fmt.Sprintf("[Product %d] %s", i+1, text)
	}

	historyText := "This is the start of the conversation."
	if len(history) > 0 {
		if len(history) > maxHistoryTurns {
			history = history[len(history)-maxHistoryTurns:]
		}
		lines := make([]string, len(history))
		for i, m := range history {
			speaker := "Bot"
			if m.Role == "user" {
				speaker = "Customer"
			}
			lines[i] = speaker + ": " + m.Content
		}
		historyText = strings.Join(lines, "\n")
	}

	var b strings.Builder
	b.WriteString("You are a professional and friendly product advisor for this shop.\n\n")
	b.WriteString(fmt.Sprintf("YOUR TASK (based on intent %s):", intent))

	switch intent {
	case IntentProductCompare:
		b.WriteString(`
- Compare the products in detail: price, material, style, best-fit audience
- Spell out clear pros and cons
- Say which product suits which need`)
	case IntentRecommendation:
		b.WriteString(`
- Ask about budget, preferred style or occasion if they are unclear
- Recommend the 2-3 best matching products
- Explain WHY each one fits this customer`)
	case IntentPriceInquiry:
		b.WriteString(`
- Quote the exact price of each product
- Compare against similar products
- Explain what justifies the price (material, design...)`)
	default:
		b.WriteString(`
- Answer precisely from the product information
- If you need more detail, ask the customer naturally
- Stay warm and professional`)
	}

	b.WriteString(`

RULES:
- Use friendly, easy-to-read language
- Suggest related products when it makes sense
- Share the product link when the customer is interested
- NEVER invent information that is not in the data
- Be specific about products, never vague
`)
	if maxWords > 0 {
		b.WriteString(fmt.Sprintf("\nLENGTH LIMIT: answer in at most %d words.\n", maxWords))
	}

	b.WriteString("\nPRODUCT INFORMATION:\n")
	b.WriteString(strings.Join(contextBlocks, "\n\n---\n\n"))
	b.WriteString("\n\nCHAT HISTORY:\n")
	b.WriteString(historyText)
	b.WriteString("\n\nCUSTOMER QUESTION: ")
	b.WriteString(question)
	b.WriteString("\n\nYOUR ANSWER:")

	return b.String()
}

// limitWords truncates text to maxWords whitespace-delimited tokens,
// appending an ellipsis when anything was cut.
func limitWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "…"
}
