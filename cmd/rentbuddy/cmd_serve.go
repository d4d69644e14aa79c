package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/booking"
	"github.com/gurman-sys/rentbuddy/internal/catalog"
	"github.com/gurman-sys/rentbuddy/internal/config"
	"github.com/gurman-sys/rentbuddy/internal/event"
	"github.com/gurman-sys/rentbuddy/internal/favorites"
	"github.com/gurman-sys/rentbuddy/internal/geo"
	"github.com/gurman-sys/rentbuddy/internal/messages"
	"github.com/gurman-sys/rentbuddy/internal/notifications"
	"github.com/gurman-sys/rentbuddy/internal/plugin"
	"github.com/gurman-sys/rentbuddy/internal/profile"
	"github.com/gurman-sys/rentbuddy/internal/rewards"
	"github.com/gurman-sys/rentbuddy/internal/server"
	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/store"
	"github.com/gurman-sys/rentbuddy/internal/version"
	"github.com/gurman-sys/rentbuddy/internal/wallet"
	pkgcatalog "github.com/gurman-sys/rentbuddy/pkg/catalog"
	pkgplugin "github.com/gurman-sys/rentbuddy/pkg/plugin"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(v)

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("RentBuddy server starting", zap.String("version", version.Short()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("RentBuddy server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.GetBool("log.development") {
		zc = zap.NewDevelopmentConfig()
	}
	if s := cfg.GetString("log.level"); s != "" {
		lvl, err := zap.ParseAtomicLevel(s)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// serve composes every module, runs the HTTP server and blocks until ctx is
// cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := store.New(cfg.GetString("database.path"))
	if err != nil {
		return err
	}
	defer db.Close()

	cat, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	bus := event.NewBus(logger.Named("event"))
	modules, err := buildModules(ctx, db, cat, bus, logger)
	if err != nil {
		return err
	}

	registry := plugin.NewRegistry(bus, logger)
	for _, m := range modules {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	if err := registry.InitAll(cfg.Viper()); err != nil {
		return err
	}
	if err := registry.StartAll(ctx); err != nil {
		return err
	}
	defer registry.StopAll()

	authn := auth.New(cfg.GetString("auth.secret"), cfg.GetString("auth.default_user"), logger.Named("auth"))
	if authn.DemoMode() {
		logger.Warn("no auth secret configured; serving every request as the demo user",
			zap.String("user_id", cfg.GetString("auth.default_user")))
	}
	limiter := server.NewRateLimiter(cfg.GetFloat64("server.rate_limit"), cfg.GetInt("server.rate_burst"))

	addr := cfg.GetString("server.addr")
	srv := server.New(addr, registry, limiter, logger.Named("http"), authn.Middleware)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("RentBuddy server ready", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GetDuration("server.shutdown_timeout"))
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}

// loadCatalog returns the embedded catalog, or the CSV file named by
// catalog.csv.
func loadCatalog(cfg *config.Config, logger *zap.Logger) (*pkgcatalog.Catalog, error) {
	path := cfg.GetString("catalog.csv")
	if path == "" {
		return pkgcatalog.NewCatalog(), nil
	}
	cat, err := catalog.LoadCSVFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded from csv", zap.String("path", path))
	return cat, nil
}

// buildModules wires the services and returns the modules in registration
// order.
func buildModules(ctx context.Context, db *store.SQLiteStore, cat *pkgcatalog.Catalog, bus pkgplugin.EventBus, logger *zap.Logger) ([]pkgplugin.Plugin, error) {
	kv, err := services.NewSQLiteKeyValueRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	profiles, err := services.NewSQLiteProfileRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	engine := catalog.NewEngine(cat)

	walletSvc, err := wallet.NewService(ctx, db, kv, bus, logger.Named("wallet"))
	if err != nil {
		return nil, err
	}
	bookingSvc, err := booking.NewService(ctx, db, engine, walletSvc, bus, logger.Named("booking"))
	if err != nil {
		return nil, err
	}
	messagesSvc, err := messages.NewService(ctx, db, engine, walletSvc, bus, logger.Named("messages"))
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(ctx, db, logger.Named("notifications"))
	if err != nil {
		return nil, err
	}
	spinner := rewards.NewSpinner(walletSvc, kv, bus, logger.Named("rewards"))

	return []pkgplugin.Plugin{
		catalog.New(engine),
		wallet.New(walletSvc),
		rewards.New(spinner),
		booking.New(bookingSvc),
		favorites.New(favorites.NewStore(kv), engine),
		profile.New(profiles),
		geo.New(geo.NewMockGeocoder()),
		notifications.New(notificationsSvc),
		messages.New(messagesSvc),
	}, nil
}

