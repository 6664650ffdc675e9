package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/tssd/internal/cli/command"
	"github.com/yndnr/tssd/internal/core/service"
	"github.com/yndnr/tssd/internal/infra/buildinfo"
	"github.com/yndnr/tssd/internal/infra/confloader"
	"github.com/yndnr/tssd/internal/infra/shutdown"
	"github.com/yndnr/tssd/internal/server/config"
	"github.com/yndnr/tssd/internal/server/rpcserver"
	"github.com/yndnr/tssd/internal/storage"
	"github.com/yndnr/tssd/internal/telemetry/logger"
	"github.com/yndnr/tssd/internal/telemetry/metric"
)

// run starts the daemon and blocks until SIGINT/SIGTERM or a server error.
func run(ctx context.Context, args command.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogger := logger.Slog(log)

	log.Info("starting tssd",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"behaviour", args.Behaviour.String(),
		"listen", cfg.Server.ListenAddr(),
		"data_dir", cfg.Storage.DataDir,
		"in_memory", cfg.Storage.InMemory,
		"mode", cfg.Seed.Mode)
	if !args.Behaviour.IsHonest() {
		log.Warn("protocol deviation enabled", "behaviour", args.Behaviour.String())
	}

	metrics := metric.Global()

	mgr, err := initStorage(ctx, cfg, slogger, metrics)
	if err != nil {
		return err
	}

	svc := service.NewMultisigService(mgr.KV(), mgr,
		service.WithBehaviour(args.Behaviour),
		service.WithMetrics(metrics))

	srv := rpcserver.New(rpcserver.Config{
		Addr:        cfg.Server.ListenAddr(),
		MetricsAddr: cfg.Server.MetricsAddr,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
	}, svc,
		rpcserver.WithLogger(slogger),
		rpcserver.WithMetrics(metrics),
		rpcserver.WithReadiness(mgr.Initialized),
		rpcserver.WithBehaviourName(args.Behaviour.String()))
	if err := srv.Listen(); err != nil {
		mgr.Close()
		return err
	}

	sd := shutdown.NewHandler(cfg.Server.ShutdownTimeout, slogger)

	// Registered first so it runs last.
	sd.OnShutdown("storage", func(context.Context) error {
		log.Info("closing key store")
		return mgr.Close()
	})

	if args.ConfigFile != "" {
		w, err := watchConfig(args, slogger)
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			sd.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
		}
	}

	sd.OnShutdown("rpc", func(ctx context.Context) error {
		log.Info("stopping rpc server")
		return srv.Shutdown(ctx)
	})

	sigCtx, stop := shutdown.WithSignals(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(srv.Serve)
	g.Go(func() error { return sd.Wait(gctx) })

	log.Info("tssd started", "addr", srv.Addr().String())
	if err := g.Wait(); err != nil {
		log.Error("tssd stopped with error", "error", err)
		return err
	}
	log.Info("tssd stopped gracefully")
	return nil
}

// newLoader builds the configuration loader for args.
// Priority: flags > env (TSSD_*, PORT) > file > defaults.
func newLoader(args command.Args) *confloader.Loader {
	opts := []confloader.Option{
		confloader.WithEnvAlias("PORT", "server.port"),
		confloader.WithOverrides(args.Overrides),
	}
	if args.ConfigFile != "" {
		opts = append(opts, confloader.WithConfigFile(args.ConfigFile))
	}
	return confloader.NewLoader(opts...)
}

// loadConfig loads and validates configuration.
func loadConfig(args command.Args) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := newLoader(args).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger and installs it as default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// initStorage opens the key store and establishes the seed.
func initStorage(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (*storage.Manager, error) {
	kvCfg := storage.DefaultKVConfig(cfg.Storage.DataDir)
	kvCfg.InMemory = cfg.Storage.InMemory
	kvCfg.Badger.SyncWrites = cfg.Storage.SyncWrites
	if cfg.Storage.GCInterval > 0 {
		kvCfg.Badger.GCInterval = cfg.Storage.GCInterval.String()
	}
	key, err := cfg.Security.EncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	kvCfg.EncryptionKey = key

	engine, err := storage.NewBadgerEngine(kvCfg, log)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	engine.RegisterMetrics(metrics.Registerer())

	mgr := storage.NewManager(engine, log)

	opts, err := seedOptions(cfg, log)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	if err := mgr.InitSeed(ctx, opts); err != nil {
		mgr.Close()
		return nil, fmt.Errorf("init seed: %w", err)
	}
	metrics.SetSeedInitialized(mgr.Initialized())
	if !mgr.Initialized() {
		log.Warn("serving without a seed, keygen will fail until restarted with --seed-mode")
	}

	orphans, err := mgr.KV().Reserved(ctx)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	if len(orphans) > 0 {
		log.Warn("reserved slots without a committed share", "count", len(orphans), "key_uids", orphans)
	}
	return mgr, nil
}

func seedOptions(cfg *config.ServerConfig, log *slog.Logger) (storage.SeedOptions, error) {
	mode, err := storage.ParseSeedMode(cfg.Seed.Mode)
	if err != nil {
		return storage.SeedOptions{}, err
	}
	opts := storage.SeedOptions{Mode: mode, ImportFile: cfg.Seed.ImportFile}
	if mode != storage.SeedModeVault {
		return opts, nil
	}

	v := cfg.Seed.Vault
	src, err := storage.NewVaultSeedSource(storage.VaultConfig{
		Address: v.Address,
		Token:   v.Token,
		Mount:   v.Mount,
		Path:    v.Path,
		Field:   v.Field,
		Timeout: v.Timeout,
	}, log)
	if err != nil {
		return storage.SeedOptions{}, err
	}
	opts.Source = src
	return opts, nil
}

// watchConfig reloads the log level when the config file changes.
// Other settings need a restart.
func watchConfig(args command.Args, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(args.ConfigFile); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) { reloadLogLevel(args, log) })
	w.StartAsync()
	return w, nil
}

func reloadLogLevel(args command.Args, log *slog.Logger) {
	cfg, err := loadConfig(args)
	if err != nil {
		log.Warn("config reload rejected", "error", err)
		return
	}
	if strings.EqualFold(cfg.Log.Level, logger.GetLevel()) {
		return
	}
	logger.SetLevel(cfg.Log.Level)
	log.Info("log level reloaded", "level", cfg.Log.Level)
}
