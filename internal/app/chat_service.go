package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"productchat/internal/model"
	"productchat/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

// AsyncMessagePublisher hands chat turns to the persistence queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is the read-through cache for session history.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// Responder produces a catalog-grounded answer for one question.
type Responder interface {
	GenerateIntelligentResponse(ctx context.Context, customerID uint, question string, history []model.Message, opts ResponseOptions) (string, error)
}

// ChatService owns chatbot sessions and their transcripts. Answering runs
// through the Responder; the resulting turns are persisted asynchronously via
// the message queue.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	responder    Responder
	maxHistory   int
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	responder Responder,
	maxHistory int,
) *ChatService {
	if maxHistory <= 0 {
		maxHistory = 3
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		responder:    responder,
		maxHistory:   maxHistory,
	}
}

type CreateSessionInput struct {
	CustomerID uint
	Title      string
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.CustomerID == 0 {
		return nil, ErrInvalidCustomer
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Conversation"
	}

	session := &model.Session{
		CustomerID: input.CustomerID,
		Title:      title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(customerID uint) ([]model.Session, error) {
	if customerID == 0 {
		return nil, ErrInvalidCustomer
	}
	return s.sessionRepo.ListByCustomerID(customerID)
}

func (s *ChatService) DeleteSession(customerID, sessionID uint) error {
	if customerID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndCustomerID(sessionID, customerID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndCustomerID(sessionID, customerID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

type ConverseInput struct {
	CustomerID uint
	SessionID  uint
	Question   string
	MaxWords   int
}

type ConverseResult struct {
	Messages []model.Message `json:"messages"`
}

// Converse records the customer question, answers it from the catalog and
// records the answer. Both turns go through the async persistence queue; the
// session history cache is invalidated up front so readers fall back to the
// database until the worker catches up.
func (s *ChatService) Converse(ctx context.Context, input ConverseInput) (*ConverseResult, error) {
	if input.CustomerID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndCustomerID(input.SessionID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	history, err := s.GetHistory(input.CustomerID, input.SessionID, s.maxHistory)
	if err != nil {
		return nil, err
	}

	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}

	userMessage := model.Message{
		SessionID:  input.SessionID,
		CustomerID: input.CustomerID,
		Role:       "user",
		Content:    question,
		CreatedAt:  time.Now(),
	}
	if err := s.publisher.Publish(ctx, userMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	answer, err := s.responder.GenerateIntelligentResponse(ctx, input.CustomerID, question, history, ResponseOptions{MaxWords: input.MaxWords})
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	assistantMessage := model.Message{
		SessionID:  input.SessionID,
		CustomerID: input.CustomerID,
		Role:       "assistant",
		Content:    answer,
		CreatedAt:  time.Now(),
	}
	if err := s.publisher.Publish(ctx, assistantMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	return &ConverseResult{
		Messages: []model.Message{userMessage, assistantMessage},
	}, nil
}

func (s *ChatService) GetHistory(customerID, sessionID uint, limit int) ([]model.Message, error) {
	if customerID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndCustomerID(sessionID, customerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return trimMessages(messages, limit), nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
