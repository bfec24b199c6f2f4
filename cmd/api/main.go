package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpapi "sdproxy/internal/http"
	"sdproxy/internal/http/handlers"
	"sdproxy/internal/infra"
	"sdproxy/internal/proxy"
	"sdproxy/internal/upload"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Shared connection pool to the backend; safe for concurrent use.
	backendClient := &http.Client{}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Block until the backend answers; the model load can take a while.
	if err := proxy.WaitForBackend(ctx, backendClient, cfg.BackendBaseURL+"/sdapi/v1/sd-models", logger); err != nil {
		logger.Fatal().Err(err).Msg("backend never became ready")
	}
	logger.Info().Str("backend", cfg.BackendBaseURL).Msg("backend is ready")

	dispatcher := proxy.NewDispatcher(proxy.DispatcherOptions{
		BaseURL:    cfg.BackendBaseURL,
		HTTPClient: backendClient,
		Timeout:    cfg.RequestTimeout,
		Logger:     logger,
	})
	pipeline := proxy.NewPipeline(
		proxy.NewImageResolver(nil),
		dispatcher,
		upload.NewUploader(logger),
		proxy.StorageDefaults{
			EndpointURL:     cfg.BucketEndpointURL,
			AccessKeyID:     cfg.BucketAccessKeyID,
			SecretAccessKey: cfg.BucketSecretAccessKey,
		},
		logger,
	)

	app := handlers.NewApp(logger, pipeline, cfg.InstanceID)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
