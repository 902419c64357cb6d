package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"jdbuilder/application/completion"
	"jdbuilder/application/generation"
	"jdbuilder/application/ports"
	"jdbuilder/application/refinement"
	"jdbuilder/infrastructure/config"
	"jdbuilder/infrastructure/export"
	"jdbuilder/infrastructure/llm"
	dynamostore "jdbuilder/infrastructure/persistence/dynamodb"
	"jdbuilder/infrastructure/persistence/memory"
	"jdbuilder/interfaces/http/rest"
	"jdbuilder/interfaces/http/rest/handlers"
	"jdbuilder/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	metrics := observability.NewCollector("jdbuilder")

	// Completion pipeline: Gemini client wrapped in a circuit breaker,
	// behind the gateway that owns prompt and response handling.
	gemini := llm.NewGeminiClient(llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.CompletionTimeout,
	}, logger)
	completer := llm.NewBreakerCompleter(gemini, llm.DefaultBreakerConfig("gemini"), logger)
	gateway := completion.NewGateway(completer, cfg.MaxOutputTokens, cfg.Temperature, logger)

	refiner := refinement.NewService(
		gateway,
		refinement.ParsePolicy(cfg.RefinementPolicy),
		cfg.CompletionTimeout,
		metrics,
		logger,
	)
	generator := generation.NewService(gateway, cfg.CompletionTimeout, logger)

	store, err := newAnalysisStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analysis store", zap.Error(err))
	}

	jdHandler := handlers.NewJDHandler(generator, refiner, logger)
	analysisHandler := handlers.NewAnalysisHandler(store, export.NewTextRenderer(), metrics, logger)

	handler := rest.NewRouter(rest.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		JD:       jdHandler,
		Analyses: analysisHandler,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("policy", cfg.RefinementPolicy),
			zap.String("storage", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newAnalysisStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.AnalysisStore, error) {
	switch cfg.StorageBackend {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return dynamostore.NewAnalysisStore(awsdynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, logger), nil
	default:
		logger.Info("Using in-memory analysis store")
		return memory.NewAnalysisStore(), nil
	}
}
