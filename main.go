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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vibin_client/config"
	"vibin_client/controllers"
	"vibin_client/routes"
	"vibin_client/services"
	"vibin_client/socket"
	"vibin_client/utils"
)

// backend is what the engines talk to.
type backend interface {
	services.CandidateSource
	services.MessageTransport
}

var rootCmd = &cobra.Command{
	Use:          "vibin",
	Short:        "Vibin discovery and chat client service",
	SilenceUsage: true,
}

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and Socket.IO server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	rootCmd.RunE = serveCmd.RunE
	rootCmd.AddCommand(serveCmd, newSeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := setupLogger(cfg)
	return cfg, logger, nil
}

func runServe() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := context.Background()

	logger.Info().Str("backend", string(cfg.Backend)).Str("port", cfg.Port).Msg("🚀 vibin starting")

	hub := socket.NewHub(32, logger.With().Str("component", "hub").Logger())
	socketServer := socket.NewServer(hub, logger.With().Str("component", "socket").Logger())

	awsCfg, err := awsConfigFor(ctx, cfg)
	if err != nil {
		return err
	}

	be, closeBackend, err := newBackend(cfg, awsCfg, hub, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	var clips *services.VoiceClipService
	if cfg.S3BucketName != "" {
		clips = services.NewVoiceClipService(*awsCfg, cfg.S3BucketName, logger.With().Str("component", "voice").Logger())
	} else {
		logger.Warn().Msg("⚠️ S3_BUCKET_NAME not set, voice clips disabled")
	}

	discovery := controllers.NewDiscoveryController(be, socketServer, logger,
		services.WithHoldDurations(cfg.MatchHold, cfg.LikeHold),
		services.WithDiscoveryLogger(logger),
	)
	chat := controllers.NewChatController(be, hub, socketServer, logger,
		services.WithTypingTimeout(cfg.TypingTimeout),
		services.WithConversationLogger(logger),
	)
	defer discovery.Sessions.CloseAll()
	defer chat.Sessions.CloseAll()

	janitorCtx, stopJanitors := context.WithCancel(ctx)
	defer stopJanitors()
	if cfg.SessionIdleTimeout > 0 {
		sweep := cfg.SessionIdleTimeout / 4
		if sweep <= 0 {
			sweep = cfg.SessionIdleTimeout
		}
		go discovery.Sessions.RunJanitor(janitorCtx, sweep, cfg.SessionIdleTimeout, logger.With().Str("sessions", "discovery").Logger())
		go chat.Sessions.RunJanitor(janitorCtx, sweep, cfg.SessionIdleTimeout, logger.With().Str("sessions", "chat").Logger())
	}

	r := mux.NewRouter()
	routes.RegisterRoutes(r)
	routes.RegisterDiscoveryRoutes(r, discovery)
	routes.RegisterChatRoutes(r, chat)
	routes.RegisterVoiceRoutes(r, controllers.NewVoiceController(clips, logger))
	routes.RegisterSocketRoutes(r, socketServer.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	go func() {
		if err := socketServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("❌ socket server stopped")
		}
	}()
	defer socketServer.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("✅ HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	logger.Info().Msg("🛑 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// awsConfigFor loads AWS config only when something needs it.
func awsConfigFor(ctx context.Context, cfg *config.Config) (*aws.Config, error) {
	if cfg.Backend != config.BackendDynamo && cfg.S3BucketName == "" {
		return nil, nil
	}
	awsCfg, err := services.InitializeAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}

func newBackend(cfg *config.Config, awsCfg *aws.Config, hub *socket.Hub, logger zerolog.Logger) (backend, func(), error) {
	switch cfg.Backend {
	case config.BackendMock:
		mock := services.NewMockBackend(cfg.MockSeed, cfg.MockCandidates,
			services.WithMockLogger(logger.With().Str("component", "mock_backend").Logger()),
			services.WithMockMatchRate(cfg.MockMatchRate),
			services.WithMockPublisher(hub, cfg.MockReplyDelay),
		)
		return mock, func() { _ = mock.Close() }, nil
	case config.BackendDynamo:
		return newDynamoBackend(cfg, *awsCfg, logger), func() {}, nil
	case config.BackendHTTP:
		return services.NewHTTPBackend(cfg.APIBaseURL, cfg.HTTPTimeout, logger.With().Str("component", "http_backend").Logger()), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
}

func newDynamoBackend(cfg *config.Config, awsCfg aws.Config, logger zerolog.Logger) *services.DynamoBackend {
	ds := services.NewDynamoService(awsCfg, logger.With().Str("component", "dynamo").Logger())
	return services.NewDynamoBackend(ds, services.DynamoTables{
		Users:        cfg.UsersTable,
		Interactions: cfg.InteractionsTable,
		Matches:      cfg.MatchesTable,
		Messages:     cfg.MessagesTable,
	}, cfg.MessageLimit)
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	logger := utils.NewLogger("vibin-client", cfg.LogLevel)
	log.Logger = logger
	return logger
}
