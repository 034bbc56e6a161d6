package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/agent"
	httptransport "github.com/spec-kit/cobranza-service/internal/api/http"
	"github.com/spec-kit/cobranza-service/internal/api/http/handlers"
	"github.com/spec-kit/cobranza-service/internal/auth"
	"github.com/spec-kit/cobranza-service/internal/config"
	"github.com/spec-kit/cobranza-service/internal/conversation"
	"github.com/spec-kit/cobranza-service/internal/erp"
	"github.com/spec-kit/cobranza-service/internal/events"
	"github.com/spec-kit/cobranza-service/internal/llm"
	"github.com/spec-kit/cobranza-service/internal/observability"
	"github.com/spec-kit/cobranza-service/internal/outbound"
	"github.com/spec-kit/cobranza-service/internal/persistence"
	"github.com/spec-kit/cobranza-service/internal/repository"
	"github.com/spec-kit/cobranza-service/internal/service"
	"github.com/spec-kit/cobranza-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	llmClient, err := llm.NewGeminiClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to init llm client", zap.Error(err))
	}
	defer llmClient.Close()

	erpClient := erp.NewHTTPClient(cfg.ERP, logger)
	sender := outbound.NewHTTPSender(cfg.Outbound, logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)
	historyStore := conversation.NewRedisHistoryStore(redis.Client, cfg.Conversation, logger)

	metrics := observability.NewMetrics()
	bus := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(ticketRepo, bus, logger)

	router := agent.NewRouter()
	assistant := agent.NewAssistant(llmClient, agent.NewERPCapabilities(erpClient, logger), logger)
	classifier := agent.NewLLMClassifier(llmClient, logger)
	coordinator := agent.NewCoordinator(classifier, ticketService, cfg.Conversation.EscalationWindow(), logger)

	conversationService := service.NewConversationService(service.ConversationDependencies{
		Router:       router,
		Assistant:    assistant,
		Coordinator:  coordinator,
		History:      historyStore,
		Interactions: interactionRepo,
		Metrics:      metrics,
		Logger:       logger,
	})

	resolutionDispatcher := service.NewResolutionDispatcher(
		agent.NewLLMReformulator(llmClient), sender, metrics, logger)
	worker.StartResolutionWorker(resolutionDispatcher, bus)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	adminMiddleware := auth.NewAdminMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:         handlers.NewWebhookHandler(conversationService, sender, cfg.Outbound.VerifyToken, logger),
		Auth:            handlers.NewAuthHandler(tokenManager, cfg.Auth),
		AdminTickets:    handlers.NewAdminTicketsHandler(ticketService),
		AdminMiddleware: adminMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	resolutionDispatcher.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
