package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ywatanabe/priocfg/internal/api"
	"github.com/ywatanabe/priocfg/internal/config"
	"github.com/ywatanabe/priocfg/internal/resolver"
	"github.com/ywatanabe/priocfg/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store    storage.Store
	resolver *resolver.Resolver
	journal  *resolver.Journal
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStore()
	if len(cfg.InitialValues) > 0 {
		if err := store.Replace(cfg.InitialValues); err != nil {
			return nil, fmt.Errorf("failed to apply initial values: %w", err)
		}
	}

	journal := resolver.NewJournal()
	res := resolver.New(
		resolver.WithEnvPrefix(cfg.EnvPrefix),
		resolver.WithUppercaseKeys(cfg.UppercaseEnvKeys),
		resolver.WithSensitiveKeywords(cfg.SensitiveKeywords),
		resolver.WithLogger(logger.Named("resolver")),
		resolver.WithRecorder(journal),
	)

	handler := api.NewHandler(res, store, journal)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, router)

	return &App{
		store:    store,
		resolver: res,
		journal:  journal,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   server,
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
