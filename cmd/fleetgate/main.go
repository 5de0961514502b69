package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/config"
	"github.com/HerbHall/fleetgate/internal/endpoint"
	"github.com/HerbHall/fleetgate/internal/event"
	"github.com/HerbHall/fleetgate/internal/extension"
	"github.com/HerbHall/fleetgate/internal/extensions"
	"github.com/HerbHall/fleetgate/internal/info"
	"github.com/HerbHall/fleetgate/internal/probe"
	"github.com/HerbHall/fleetgate/internal/relations"
	"github.com/HerbHall/fleetgate/internal/server"
	"github.com/HerbHall/fleetgate/internal/store"
	"github.com/HerbHall/fleetgate/internal/token"
	"github.com/HerbHall/fleetgate/internal/version"
	"github.com/HerbHall/fleetgate/internal/ws"
	ext "github.com/HerbHall/fleetgate/pkg/extension"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("FleetGate server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database and run migrations for every core module.
	dbPath := viperCfg.GetString("database.path")
	if dbPath == "" {
		dbPath = "fleetgate.db"
	}
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("schema version check failed", zap.Error(err))
	}
	for _, mod := range []struct {
		name       string
		migrations []ext.Migration
	}{
		{"endpoint", endpoint.Migrations()},
		{"token", token.Migrations()},
		{"relations", relations.Migrations()},
	} {
		if err := db.Migrate(ctx, mod.name, mod.migrations); err != nil {
			logger.Fatal("migration failed", zap.String("module", mod.name), zap.Error(err))
		}
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	// Shared services.
	bus := event.NewBus(logger.Named("event"))

	endpointStore := endpoint.NewStore(db.DB())
	endpointRegistry := endpoint.NewRegistry(endpointStore, bus, logger.Named("endpoint"))

	tokenStore := token.NewStore(db.DB())
	passphrase := viperCfg.GetString("tokens.passphrase")
	if passphrase == "" {
		logger.Fatal("tokens.passphrase is required (set FG_TOKENS_PASSPHRASE)")
	}
	tokenService, err := token.NewService(ctx, tokenStore, passphrase, bus, logger.Named("token"))
	if err != nil {
		logger.Fatal("failed to initialize token service", zap.Error(err))
	}

	relationStore := relations.NewStore(db.DB())
	graph := relations.NewGraph(relationStore, endpointRegistry, bus, logger.Named("relations"))

	// Extension registry with compile-time composition. Registration order is
	// the post-processing order.
	reg := extension.New(logger.Named("extension"))
	if viperCfg.GetBool("extensions.cloudfoundry.enabled") {
		mustRegister(logger, reg, extensions.NewCloudFoundry())
	}
	if viperCfg.GetBool("extensions.kubernetes.enabled") {
		mustRegister(logger, reg, extensions.NewKubernetes())
	}
	if viperCfg.GetBool("extensions.diagnostics.enabled") {
		mustRegister(logger, reg, extensions.NewDiagnostics())
	}
	if viperCfg.GetBool("extensions.probe.enabled") {
		mustRegister(logger, reg, probe.New(endpointRegistry))
	}

	if err := reg.InitAll(ctx, func(name string) ext.Dependencies {
		return ext.Dependencies{
			Config: cfg.Sub("extensions." + name),
			Logger: logger.Named(name),
			Bus:    bus,
		}
	}); err != nil {
		logger.Fatal("failed to initialize extensions", zap.Error(err))
	}
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start extensions", zap.Error(err))
	}

	// Info aggregator composes the registry, token service, and relation graph.
	aggregator := info.NewAggregator(
		endpointRegistry,
		tokenService,
		graph,
		reg,
		info.RoleAuthorizer{},
		logger.Named("info"),
	)

	// Auth service (session token validation).
	jwtSecret := viperCfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Generate an ephemeral secret -- sessions won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (set auth.jwt_secret in config to persist sessions across restarts)",
			zap.String("component", "auth"),
		)
	}
	accessTTL := viperCfg.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	sessionTokens := auth.NewTokenService([]byte(jwtSecret), accessTTL)
	authService := auth.NewService(sessionTokens)

	// WebSocket change feed.
	hub := ws.NewHub(logger.Named("ws"))
	wsHandler := ws.NewHandler(hub, authService, bus, logger.Named("ws"))

	// HTTP server.
	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:5443"
	}
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, reg, logger.Named("server"), readyCheck, authService,
		endpoint.NewHandler(endpointRegistry),
		token.NewHandler(tokenService),
		relations.NewHandler(graph),
		info.NewHandler(aggregator),
		wsHandler,
	)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("FleetGate server ready", zap.String("addr", addr))

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("FleetGate server stopped")
}

func mustRegister(logger *zap.Logger, reg *extension.Registry, e ext.Extension) {
	if err := reg.Register(e); err != nil {
		logger.Fatal("failed to register extension", zap.Error(err))
	}
}
