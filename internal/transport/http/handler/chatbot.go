package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"productchat/internal/app"
	"productchat/internal/transport/http/response"
)

// ChatbotHandler exposes the question-answering pipeline and a retrieval-only
// diagnostic endpoint.
type ChatbotHandler struct {
	chatService      *app.ChatService
	retrievalService *app.RetrievalService
}

const defaultSearchTopK = 10

type AskRequest struct {
	SessionID uint   `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
	MaxWords  int    `json:"max_words"`
}

type SearchRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
	Rewrite  bool   `json:"rewrite"`
}

func NewChatbotHandler(chatService *app.ChatService, retrievalService *app.RetrievalService) *ChatbotHandler {
	return &ChatbotHandler{chatService: chatService, retrievalService: retrievalService}
}

func (h *ChatbotHandler) Ask(c *gin.Context) {
	customerID, ok := getCustomerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Converse(c.Request.Context(), app.ConverseInput{
		CustomerID: customerID,
		SessionID:  req.SessionID,
		Question:   req.Question,
		MaxWords:   req.MaxWords,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			// Never leak backend detail to the chat surface.
			response.Error(c, http.StatusInternalServerError, response.CodeGenerationFailed, "answer generation failed")
		}
		return
	}

	response.OK(c, result)
}

// Search runs rewrite + hybrid retrieval without generation, for diagnostics.
func (h *ChatbotHandler) Search(c *gin.Context) {
	customerID, ok := getCustomerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if req.TopK <= 0 {
		req.TopK = defaultSearchTopK
	}

	queries := []string{req.Question}
	if req.Rewrite {
		queries = h.retrievalService.RewriteQuery(c.Request.Context(), req.Question)
	}

	chunks, err := h.retrievalService.HybridSearch(c.Request.Context(), customerID, queries, req.TopK)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "hybrid search failed")
		return
	}

	response.OK(c, gin.H{
		"queries": queries,
		"chunks":  chunks,
	})
}
