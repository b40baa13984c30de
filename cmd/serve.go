package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tirecheck/config"
	"tirecheck/database"
	"tirecheck/engine"
	"tirecheck/handlers"
	"tirecheck/modelgen"
	"tirecheck/notify"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the tire health API together with the model job pollers and the
resumer that re-attaches pollers to unfinished jobs.

  POST   /api/analyze                 assess a recognition result (JSON or multipart with image)
  GET    /api/history                 list analyses (?limit=&offset=)
  GET    /api/history/:id             one analysis
  DELETE /api/history/:id             delete an analysis and stop its polling
  POST   /api/history/:id/model       start 3D model generation
  DELETE /api/history/:id/model       stop model polling
  GET    /api/model-jobs/:id          model job status
  POST   /api/model-jobs/:id/poll     poll the provider once
  GET    /api/statistics              aggregate statistics
  GET    /health                      liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port to listen on (overrides SERVER_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servePort != "" {
		cfg.Port = servePort
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	redisCh := notify.NewRedis(notify.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Channel:  cfg.RedisChannel,
	})
	defer redisCh.Close()
	dispatcher := notify.NewDispatcher(
		notify.NewWebhook(notify.WebhookConfig{URL: cfg.NotifyWebhookURL, Secret: cfg.NotifyWebhookSecret}),
		redisCh,
	)

	orch := modelgen.New(newProvider(cfg), modelgen.NewRegistry(),
		modelgen.Config{PollInterval: cfg.ModelPollInterval, MaxRetries: cfg.ModelMaxRetries},
		modelgen.WithStore(store),
		modelgen.WithNotifier(dispatcher),
	)
	defer orch.Shutdown()

	resumer := modelgen.NewResumer(orch, store, cfg.ModelResumeSchedule)
	if err := resumer.Start(ctx); err != nil {
		return err
	}
	defer resumer.Stop()

	logger := log.Logger
	h, err := handlers.New(handlers.Deps{
		Store:       store,
		Engine:      engine.New(),
		Jobs:        orch,
		Notifier:    dispatcher,
		Resume:      resumer,
		UploadDir:   cfg.UploadDir,
		BaseContext: ctx,
		Logger:      &logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Strs("notify_channels", dispatcher.Channels()).
			Bool("stub_provider", cfg.ModelProviderURL == "").
			Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProvider(cfg *config.Config) modelgen.Provider {
	if cfg.ModelProviderURL == "" {
		log.Warn().Msg("MODEL_PROVIDER_URL not set, using stub model provider")
		return modelgen.NewStubProvider(3)
	}
	return modelgen.NewHTTPProvider(cfg.ModelProviderURL, cfg.ModelProviderAPIKey,
		modelgen.WithImageRoot(cfg.UploadDir))
}
