package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"healthscreen/api"
	"healthscreen/catalog"
	"healthscreen/config"
	"healthscreen/database"
	"healthscreen/logging"
	"healthscreen/middleware"
	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/services"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCommand creates the 'healthscreen serve' command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "override server.port")
	return cmd
}

// loadRuntime reads the configuration named by --config and builds the logger from it.
func loadRuntime(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.Init(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router, err := buildServer(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to build server", zap.Error(err))
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildServer wires storage, services and routes. Background work stops when ctx ends.
func buildServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gin.Engine, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migration completed")

	cat, err := catalog.LoadWithOverrides(cfg.Assessment.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("load questionnaire catalog: %w", err)
	}
	log.Info("Questionnaire catalog loaded", zap.Strings("questionnaires", cat.IDs()))

	// Repositories
	sessionRepo := repository.NewSessionRepository(log)
	resultRepo := repository.NewResultRepository(db, log)
	guestRepo := repository.NewGuestResultRepository(cfg.Assessment.GuestResultTTL)
	chatRepo := repository.NewChatRepository()
	quotaRepo := repository.NewQuotaRepository(db, log)
	planRepo := repository.NewPlanRepository(db, log)
	go sweepGuestResults(ctx, guestRepo, cfg.Assessment.GuestResultTTL, log)

	// Services
	analysis, remote := newAnalysisClient(cfg, log)
	var chatClient *openai.Client
	if p, ok := cfg.Provider(cfg.Chat.Provider); ok {
		chatClient = services.NewOpenAIClient(p)
	} else {
		log.Warn("Chat provider has no API key, chat is disabled", zap.String("provider", cfg.Chat.Provider))
	}
	assessmentService := services.NewAssessmentService(cat, sessionRepo, resultRepo, guestRepo, analysis, log)
	chatService := services.NewChatService(chatClient, cfg.Chat, chatRepo, resultRepo, log)
	planService := services.NewPlanService(planRepo, resultRepo, log)
	dashboardService := services.NewDashboardService(cat, resultRepo, guestRepo, planRepo, log)

	handler := api.NewAPIHandler(cat, quotaRepo, assessmentService, chatService, planService, dashboardService, api.Options{
		DefaultLanguage: models.Language(cfg.Assessment.DefaultLanguage),
		GuestChatQuota:  cfg.GuestChatQuota,
		AnalysisEnabled: remote,
	}, log)
	cfg.Watch(log, func(next *config.Config) {
		handler.SetGuestChatQuota(next.GuestChatQuota)
		log.Info("Guest chat quota updated", zap.Int("guest_chat_quota", next.GuestChatQuota))
	})

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.Named("HTTP")))
	r.Use(middleware.Cors(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecureHeaders(cfg.Server.Mode != gin.ReleaseMode))
	handler.RegisterRoutes(r)
	return r, nil
}

// newAnalysisClient picks the remote analysis provider when it has a key. remote is false for
// the local fallback.
func newAnalysisClient(cfg *config.Config, log *zap.Logger) (client services.AnalysisClient, remote bool) {
	if cfg.Analysis.Provider != "local" {
		if p, ok := cfg.Provider(cfg.Analysis.Provider); ok {
			log.Info("Using remote analysis", zap.String("provider", cfg.Analysis.Provider), zap.String("model", cfg.Analysis.Model))
			return services.NewOpenAIAnalysisClient(p.APIKey, p.BaseURL, cfg.Analysis.Model, log), true
		}
		log.Warn("Analysis provider has no API key, using local analysis", zap.String("provider", cfg.Analysis.Provider))
	}
	return services.NewLocalAnalysisClient(), false
}

func sweepGuestResults(ctx context.Context, guests repository.GuestResultRepository, ttl time.Duration, log *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := guests.Sweep(); n > 0 {
				log.Debug("Expired guest results removed", zap.Int("count", n))
			}
		}
	}
}
