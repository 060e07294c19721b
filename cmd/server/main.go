package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"conversa-backend/internal/config"
	"conversa-backend/internal/database"
	"conversa-backend/internal/handlers"
	"conversa-backend/internal/logger"
	"conversa-backend/internal/middleware"
	"conversa-backend/internal/repository"
	"conversa-backend/internal/router"
	"conversa-backend/internal/services"
	"conversa-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.Must(cfg.LogLevel, cfg.IsProduction())
	defer log.Sync()
	zap.ReplaceGlobals(log)

	log.Info("starting Conversa backend", zap.String("env", cfg.Env), zap.String("chat_store", cfg.ChatStore))

	// ──── Step 2: Chat & User Stores ────
	var (
		chatRepo services.ChatStore
		userRepo services.UserStore
	)

	switch cfg.ChatStore {
	case config.StoreMemory:
		chatRepo = repository.NewMemoryChatRepo()
		userRepo = repository.NewMemoryUserRepo()
		log.Warn("using in-memory store, data is lost on restart")

	case config.StorePostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("PostgreSQL connection failed", zap.Error(err))
		}
		defer pool.Close()
		log.Info("PostgreSQL connected")

		if err := database.RunMigrations(pool, cfg.MigrationsDir, log); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}

		chatRepo = repository.NewChatRepo(pool)
		userRepo = repository.NewUserRepo(pool)

	default:
		log.Fatal("unknown CHAT_STORE", zap.String("value", cfg.ChatStore))
	}

	// ──── Step 3: Redis (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClients.Close()
		log.Info("Redis connected")
	} else {
		log.Info("REDIS_URL not set, refresh tokens and live updates disabled")
	}

	// ──── Step 4: Gemini Client ────
	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, log)
	if err != nil {
		log.Fatal("Gemini client initialization failed", zap.Error(err))
	}
	defer gemini.Close()
	log.Info("Gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Step 5: Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTAccessTTL)

	var (
		authService *services.AuthService
		chatService *services.ChatService
		wsHub       *websocket.Hub
	)
	if redisClients != nil {
		authService = services.NewAuthService(userRepo, redisClients.KV, jwtAuth, log)
		chatService = services.NewChatService(chatRepo, gemini, services.NewRedisNotifier(redisClients.KV, log), log)
		wsHub = websocket.NewHub(redisClients.PubSub, jwtAuth, log)
		defer wsHub.Close()
	} else {
		authService = services.NewAuthService(userRepo, nil, jwtAuth, log)
		chatService = services.NewChatService(chatRepo, gemini, nil, log)
	}

	// ──── Step 6: HTTP Server ────
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer authLimiter.Stop()

	deps := router.Deps{
		JWTAuth:     jwtAuth,
		AuthHandler: handlers.NewAuthHandler(authService),
		ChatHandler: handlers.NewChatHandler(chatService),
		AuthLimiter: authLimiter,
		FrontendURL: cfg.FrontendURL,
		Logger:      log.Named("http"),
	}
	if wsHub != nil {
		deps.WebSocket = wsHub.HandleWebSocket
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // lifted by the send handler
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("Conversa backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api", cfg.Port)),
		zap.Bool("websocket", wsHub != nil))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
