package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/ai-chat-server/pkg/ai"
	"github.com/dskvich/ai-chat-server/pkg/api/handler"
	"github.com/dskvich/ai-chat-server/pkg/api/middleware"
	"github.com/dskvich/ai-chat-server/pkg/database"
	"github.com/dskvich/ai-chat-server/pkg/localmodel"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/openai"
	"github.com/dskvich/ai-chat-server/pkg/repository"
	"github.com/dskvich/ai-chat-server/pkg/service"
	"github.com/dskvich/ai-chat-server/pkg/services"
	"github.com/dskvich/ai-chat-server/pkg/websocket"
)

type Config struct {
	Port             int           `env:"PORT" envDefault:"8080"`
	OpenAIToken      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	LocalModelURL    string        `env:"LOCAL_MODEL_URL"`
	LocalModelName   string        `env:"LOCAL_MODEL_NAME" envDefault:"dialogpt-medium"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	ConversationsDir string        `env:"CONVERSATIONS_DIR" envDefault:"data/conversations"`
	UsersDir         string        `env:"USERS_DIR" envDefault:"data/users"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	serviceGroup, err := setupServices()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return serviceGroup.Run(ctx)
}

func setupServices() (service.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	engine, err := setupEngine(cfg)
	if err != nil {
		return nil, err
	}

	conversationRepository, err := setupConversationRepository(cfg)
	if err != nil {
		return nil, err
	}

	userRepository, err := repository.NewFileUserRepository(cfg.UsersDir)
	if err != nil {
		return nil, fmt.Errorf("creating user repository: %w", err)
	}

	chatService := services.NewChatService(conversationRepository, engine)
	authService := services.NewAuthService(userRepository, cfg.SessionTTL)

	chatHandler := handler.NewChat(chatService)
	conversationsHandler := handler.NewConversations(chatService)
	modelsHandler := handler.NewModels()
	healthHandler := handler.NewHealth(engine)
	authHandler := handler.NewAuth(authService)
	wsHandler := websocket.NewHandler(chatService)

	requireAuth := middleware.Auth(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", chatHandler.SendMessage)
	mux.HandleFunc("GET /api/conversations", conversationsHandler.List)
	mux.HandleFunc("GET /api/conversations/{id}", conversationsHandler.Get)
	mux.HandleFunc("GET /api/conversations/{id}/export", conversationsHandler.Export)
	mux.HandleFunc("DELETE /api/conversations/{id}", conversationsHandler.Delete)
	mux.HandleFunc("POST /api/conversations/clear", conversationsHandler.Clear)
	mux.HandleFunc("GET /api/models", modelsHandler.List)
	mux.HandleFunc("GET /api/health", healthHandler.Check)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/profile", requireAuth(http.HandlerFunc(authHandler.UpdateProfile)))
	mux.Handle("POST /api/auth/password", requireAuth(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /ws", wsHandler)

	return service.Group{
		service.NewHTTPServer(fmt.Sprintf(":%d", cfg.Port), mux),
	}, nil
}

// setupEngine decides tier availability once at startup: a missing credential
// disables the hosted tier silently, an unreachable local backend disables
// the local tier with a warning.
func setupEngine(cfg Config) (*ai.Engine, error) {
	var hosted ai.HostedClient
	if cfg.OpenAIToken != "" {
		client, err := openai.NewClient(cfg.OpenAIToken, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		hosted = client
	} else {
		slog.Info("hosted tier disabled: no API credential configured")
	}

	var local ai.LocalClient
	if cfg.LocalModelURL != "" {
		client, err := localmodel.NewClient(cfg.LocalModelURL, cfg.LocalModelName)
		if err != nil {
			return nil, fmt.Errorf("creating local model client: %w", err)
		}

		pingCtx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFn()
		if err := client.Health(pingCtx); err != nil {
			slog.Warn("local tier disabled: backend unreachable", logger.Err(err))
		} else {
			local = client
		}
	}

	engine := ai.NewEngine(hosted, local)
	slog.Info("response engine ready", "mode", engine.Mode())
	return engine, nil
}

func setupConversationRepository(cfg Config) (services.ConversationRepository, error) {
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating db: %w", err)
		}
		return repository.NewPgConversationRepository(db), nil
	}

	repo, err := repository.NewFileConversationRepository(cfg.ConversationsDir)
	if err != nil {
		return nil, fmt.Errorf("creating conversation repository: %w", err)
	}
	return repo, nil
}
