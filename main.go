package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"inkflow/config"
	"inkflow/handlers"
	"inkflow/routes"
	"inkflow/services/arbiter"
	"inkflow/services/assistant"
	"inkflow/services/calendar"
	"inkflow/services/conversation"
	"inkflow/services/messaging"
	"inkflow/services/retrieval"
	"inkflow/tasks"
	"inkflow/utils"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	utils.InitCache()
	utils.InitHoldCache()
	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient(), utils.GetHoldClient()})

	loc, err := time.LoadLocation(cfg.StudioTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid studio timezone %q: %v", cfg.StudioTimezone, err)
	}

	ctx := context.Background()
	gcalSvc, err := calendar.NewGoogleClient(ctx, cfg)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize google calendar: %v", err)
	}
	events := calendar.NewGoogleEvents(gcalSvc, cfg.CalendarID)

	oai := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	api := &oai

	// Slot arbitration. The arbiter and the calendar service reference
	// each other: the calendar skips held slots, the arbiter confirms
	// holds into calendar events.
	arb := arbiter.New(arbiter.NewRedisHoldStore(utils.GetHoldClient()), nil, logger, cfg.HoldTTL())
	calSvc := calendar.NewService(events, arb, logger, loc, cfg.HoldTTL())
	arb.Calendar = calSvc
	bookings := calendar.NewBookings(calSvc, arb)

	convIndex, err := retrieval.NewPineconeIndex(cfg.PineconeConversationsHost, cfg.PineconeAPIKey)
	if err != nil {
		logger.Sugar().Fatalf("main: conversations index: %v", err)
	}
	priceIndex, err := retrieval.NewPineconeIndex(cfg.PineconePricingHost, cfg.PineconeAPIKey)
	if err != nil {
		logger.Sugar().Fatalf("main: pricing index: %v", err)
	}
	retrievalSvc := retrieval.NewService(
		retrieval.NewOpenAIEmbedder(api, cfg.OpenAIModelEmbed),
		convIndex, priceIndex, logger)

	aiClient := assistant.NewClient(api, logger,
		cfg.OpenAIModelDefault, cfg.OpenAIModelVision, cfg.OpenAIModelClassify)
	prompts := assistant.NewPrompts(cfg.PromptsDir)
	executor := assistant.NewExecutor(bookings, logger)
	assistantSvc := assistant.NewService(aiClient, retrievalSvc, prompts, executor, logger)

	messenger, err := messaging.NewClient(cfg.InstagramAccessToken, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: instagram client: %v", err)
	}

	convStore := conversation.NewStore(utils.GetCacheClient(), logger, cfg.MaxHistoryLength)

	queueClient := tasks.NewQueueClient(cfg)
	defer queueClient.Close()
	scheduler := tasks.NewScheduler(queueClient, convStore, logger, cfg.GraceWindow())
	processor := tasks.NewProcessor(convStore, assistantSvc, messenger, scheduler, logger)
	worker := tasks.StartWorker(cfg, processor, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	routes.RegisterRoutes(router, routes.Deps{
		Webhook: handlers.NewWebhookHandler(convStore, scheduler, messenger, aiClient, logger,
			cfg.WebhookVerifyToken, cfg.AdminSenders(), cfg.ReactionBotSenderID),
		Health:            handlers.NewHealthHandler(utils.GetCacheClient(), utils.GetHoldClient()),
		Legal:             handlers.NewLegalHandler("./static"),
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
	})

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	worker.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
