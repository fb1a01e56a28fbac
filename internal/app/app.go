package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/console"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/rooms"
	"github.com/vovakirdan/chatrooms/internal/store"
	"github.com/vovakirdan/chatrooms/internal/store/memory"
	"github.com/vovakirdan/chatrooms/internal/store/redis"
	"github.com/vovakirdan/chatrooms/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/chatrooms/internal/transport/http"
)

// App wires together storage, the session hub and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *hub.Hub
	store           store.IdentityStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenIdentityStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	h, err := newHub(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.SessionTTL,
	}

	server := transporthttp.NewServer(h, jwtConfig, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             h,
		store:           st,
		log:             logger,
	}, nil
}

// OpenIdentityStore opens the configured identity backend.
func OpenIdentityStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.IdentityStore, error) {
	switch cfg.IdentityBackend {
	case config.BackendSQLite:
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("identity store initialized")
		return st, nil
	case config.BackendRedis:
		st, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("identity store initialized")
		return st, nil
	case config.BackendMemory:
		logger.Warn().Msg("identity store is in memory; identities are lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
	}
}

func newHub(cfg *config.Config, st store.IdentityStore, logger *zerolog.Logger) (*hub.Hub, error) {
	catalog := rooms.NewMemoryCatalog(rooms.WithHistorySize(cfg.HistorySeedSize))
	if cfg.SeedFixtures {
		if err := catalog.Seed(rooms.Fixtures(time.Now())...); err != nil {
			return nil, fmt.Errorf("seed rooms: %w", err)
		}
	}

	return hub.NewHub(st, catalog, logger, hub.Options{
		IdentityKey:   cfg.IdentityKey,
		IdleTTL:       cfg.SessionTTL,
		SweepInterval: cfg.SweepInterval,
	}), nil
}

// Run starts the HTTP server and the session sweeper, and blocks until
// context cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.cleanup()
	return err
}

// RunConsole drives one session from a terminal. The session uses the
// base identity key so the console restores the same user on every start.
func RunConsole(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, in io.Reader, out io.Writer) error {
	st, err := OpenIdentityStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}()

	h, err := newHub(cfg, st, logger)
	if err != nil {
		return err
	}
	client, err := h.OpenClient(ctx, "")
	if err != nil {
		return err
	}
	defer func() { _ = h.CloseClient(client.ID) }()

	return console.New(h, client, out, logger).Run(ctx, in)
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
