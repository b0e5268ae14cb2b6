package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/belphemur/habit-tracker/internal/config"
	"github.com/belphemur/habit-tracker/internal/database"
	"github.com/belphemur/habit-tracker/internal/handlers"
	"github.com/belphemur/habit-tracker/internal/identity"
	"github.com/belphemur/habit-tracker/internal/logging"
	appSignals "github.com/belphemur/habit-tracker/internal/signals"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/habit-tracker.toml"
	shutdownTimeout   = 5 * time.Second
)

func main() {
	// Determine if we're in development mode
	isDev := os.Getenv("ENV") != "production"

	logging.Initialize(isDev)
	logger := logging.GetLogger("main")

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", date).
		Msg("Starting Habit Tracker")

	// Create context that's canceled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Application run failed")
	}
}

// configPath returns CONFIG_FILE, or the default path when it exists. An empty
// result runs on defaults and environment only.
func configPath() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func run(ctx context.Context) error {
	logger := logging.GetLogger("main")

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Error().Err(err).Msg("Failed to load .env file")
		return err
	}

	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error().Err(err).Str("config_path", path).Msg("Failed to load configuration")
		return err
	}

	logging.SetLogLevel(cfg.Service.LogLevel)
	logger.Info().Str("log_level", cfg.Service.LogLevel).Msg("Log level set")

	if cfg.Service.LogFile != "" {
		closer, err := logging.EnableFileOutput(cfg.Service.LogFile)
		if err != nil {
			logger.Error().Err(err).Str("log_file", cfg.Service.LogFile).Msg("Failed to enable file logging")
			return err
		}
		defer closer.Close()
		// Re-acquire so the file writer is used
		logger = logging.GetLogger("main")
		logger.Info().Str("log_file", cfg.Service.LogFile).Msg("File logging enabled")
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(cfg.Service.StateFile), 0755); err != nil {
		logger.Error().Err(err).Str("path", filepath.Dir(cfg.Service.StateFile)).Msg("Failed to create data directory")
		return err
	}

	db, err := database.New(database.NewDefaultOptions(cfg.Service.StateFile))
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database: %w", err)
		logger.Error().Err(wrappedErr).Str("db_path", cfg.Service.StateFile).Msg("Database initialization failed")
		return wrappedErr
	}
	defer db.Close()

	if err := db.MigrateDatabase(); err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database schema: %w", err)
		logger.Error().Err(wrappedErr).Msg("Database schema initialization failed")
		return wrappedErr
	}

	loc, err := cfg.Heatmap.Location()
	if err != nil {
		return err
	}
	habitStore := database.NewHabitStore(db, loc)
	sessionStore := database.NewSessionStore(db)

	provider, err := identity.NewProvider(cfg.OAuth)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize identity provider: %w", err)
		logger.Error().Err(wrappedErr).Msg("Identity provider initialization failed")
		return wrappedErr
	}

	mux, err := newRouter(cfg, habitStore, sessionStore, provider)
	if err != nil {
		return err
	}

	appSignals.OnUserSignedIn(func(ctx context.Context, data appSignals.UserSignedInData) {
		signalLogger := logging.GetLogger("signal-user-signed-in")
		signalLogger.Info().
			Str("user_id", data.UserID).
			Str("email", data.Email).
			Bool("new_user", data.NewUser).
			Msg("User signed in")
	}, "main-user-signed-in-handler")
	defer appSignals.OffUserSignedIn("main-user-signed-in-handler")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           handlers.LogRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Int("port", cfg.App.Port).Str("app_url", cfg.App.AppURL).Msg("Starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
		logger.Info().Msg("HTTP server shut down gracefully")
		return nil
	})

	g.Go(func() error {
		purgeSessions(gCtx, sessionStore, cfg.Service.SessionCleanupInterval)
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("Shutdown complete")
	return err
}

func newRouter(cfg *config.Config, store *database.HabitStore, sessions *database.SessionStore, provider *identity.Provider) (*http.ServeMux, error) {
	logger := logging.GetLogger("main")
	mux := http.NewServeMux()

	staticHandler, err := handlers.NewStaticHandler()
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize static handler: %w", err)
		logger.Error().Err(wrappedErr).Msg("Static handler initialization failed")
		return nil, wrappedErr
	}

	// Initialize base handler first, as other handlers depend on it
	baseHandler, err := handlers.NewBaseHandler(cfg, store, sessions)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize base handler: %w", err)
		logger.Error().Err(wrappedErr).Msg("Base handler initialization failed")
		return nil, wrappedErr
	}

	staticHandler.RegisterRoutes(mux)
	handlers.NewAuthHandler(baseHandler, provider).RegisterRoutes(mux)
	handlers.NewAPIHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewDashboardHandler(baseHandler).RegisterRoutes(mux)

	return mux, nil
}

// purgeSessions removes expired sessions every interval until ctx is done
func purgeSessions(ctx context.Context, sessions *database.SessionStore, interval time.Duration) {
	logger := logging.GetLogger("session-purge")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Starting expired session purge loop")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := sessions.PurgeExpired(ctx, now); err != nil {
				logger.Error().Err(err).Msg("Failed to purge expired sessions")
			}
		}
	}
}
