package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/service/chat"
	"github.com/studygroup/groupchat-server/internal/store"
	"github.com/studygroup/groupchat-server/internal/store/sqlite"
	transporthttp "github.com/studygroup/groupchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	chat            *chat.Service
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	svc := chat.New(st, chat.Options{
		DefaultHistoryLimit: cfg.HistoryDefaultLimit,
		MaxHistoryLimit:     cfg.HistoryMaxLimit,
	})

	hub, err := core.NewHub(svc, HubOptions(cfg), logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.JWTEnabled() {
		logger.Info().Msg("handshake identity from signed tokens")
	} else {
		logger.Warn().Msg("jwt_secret not set, trusting identity query parameters")
	}

	return &App{
		server:          transporthttp.NewServer(hub, svc, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		chat:            svc,
		store:           st,
		log:             logger,
	}, nil
}

// HubOptions maps configuration onto hub options.
func HubOptions(cfg *config.Config) core.Options {
	return core.Options{
		ConnectionLimit:     cfg.ConnectionRateLimit,
		MessageLimit:        cfg.MessageRateLimit,
		RateWindow:          cfg.RateLimitWindow,
		TypingTimeout:       cfg.TypingTimeout,
		TypingSweepInterval: cfg.TypingSweepInterval,
		EchoToSender:        cfg.EchoToSender,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	// no connection survives a restart, so every stored online flag is stale
	if n, err := a.chat.ResetPresence(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to reset online status")
	} else if n > 0 {
		a.log.Info().Int64("rows", n).Msg("reset stale online status")
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup(stopHub)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		// stopping the hub first closes every WebSocket with going-away, which
		// lets Shutdown drain the hijacked handlers
		a.log.Info().Msg("shutting down")
		stopHub()
		<-a.hub.Done()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup(stopHub)
			return err
		}

		a.cleanup(stopHub)
		return <-serverErr
	}
}

// cleanup stops the hub and closes the store.
func (a *App) cleanup(stopHub context.CancelFunc) {
	stopHub()
	<-a.hub.Stopped()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
