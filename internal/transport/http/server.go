package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "productchat/internal/app"
	"productchat/internal/bootstrap"
	"productchat/internal/cache"
	rabbitmqClient "productchat/internal/platform/rabbitmq"
	"productchat/internal/repository"
	"productchat/internal/transport/http/handler"
	"productchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	customerRepo := repository.NewCustomerRepository(app.MySQL)
	productRepo := repository.NewProductRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		customerRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	ragService := appsvc.NewRAGService(productRepo, chunkRepo, app.Embedder)
	retrievalService := appsvc.NewRetrievalService(
		chunkRepo,
		app.Embedder,
		app.Generator,
		app.Config.RAG.SemanticWeight,
		app.Config.RAG.KeywordWeight,
	)
	chatbotService := appsvc.NewChatbotService(
		retrievalService,
		productRepo,
		app.Generator,
		app.Config.RAG.TopK,
		app.Config.RAG.MaxHistoryTurns,
		app.Config.RAG.DefaultMaxWords,
	)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmqClient.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		publisher,
		historyCache,
		chatbotService,
		app.Config.RAG.MaxHistoryTurns,
	)

	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(ragService, productRepo)
	chatbotHandler := handler.NewChatbotHandler(chatService, retrievalService)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	catalogGroup := v1.Group("/catalog")
	catalogGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	catalogGroup.POST("/ingest", catalogHandler.Ingest)
	catalogGroup.GET("/products", catalogHandler.ListProducts)
	catalogGroup.DELETE("/products", catalogHandler.DeleteAll)

	chatbotGroup := v1.Group("/chatbot")
	chatbotGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatbotGroup.POST("/ask", chatbotHandler.Ask)
	chatbotGroup.POST("/search", chatbotHandler.Search)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.GET("/history", chatHandler.GetHistory)

	return router
}
