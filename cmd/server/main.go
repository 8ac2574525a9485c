package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scriptflow/scriptflow/internal/alerting"
	"github.com/scriptflow/scriptflow/internal/api"
	"github.com/scriptflow/scriptflow/internal/metrics"
	"github.com/scriptflow/scriptflow/internal/notifier"
	"github.com/scriptflow/scriptflow/internal/storage"
	"github.com/scriptflow/scriptflow/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "scriptflow-server",
	Short: "ScriptFlow log server - log search and alerting",
	Long: `ScriptFlow log server ingests application logs, answers free-form
search queries in Portuguese or English, and evaluates threshold
alerts over the log stream.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scriptflow-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Get JWT secret from environment
	jwtSecret := os.Getenv("SCRIPTFLOW_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("SCRIPTFLOW_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize alert metadata storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	// Initialize log storage
	logStore, err := openLogStorage(cfg)
	if err != nil {
		return err
	}
	defer logStore.Close()

	// Notification dispatcher
	dispatcher := buildDispatcher(cfg, store)
	defer dispatcher.Close()

	// Alert evaluation
	evaluator := alerting.NewEvaluator(store, logStore.Logs(), dispatcher)
	scheduler := alerting.NewScheduler(evaluator, cfg.Alerting.Schedule)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// Seed predefined alerts
	if cfg.Alerting.SeedFile != "" {
		seeded, err := alerting.LoadSeedFromFile(cfg.Alerting.SeedFile)
		if err != nil {
			return fmt.Errorf("load alert seed: %w", err)
		}
		if err := alerting.SyncSeed(ctx, store.Alerts(), seeded); err != nil {
			return fmt.Errorf("sync alert seed: %w", err)
		}
		if cfg.Alerting.WatchSeed {
			if err := alerting.WatchSeedFile(ctx, cfg.Alerting.SeedFile, store.Alerts()); err != nil {
				return fmt.Errorf("watch alert seed: %w", err)
			}
		}
	}

	// HTTP API server
	apiServer, err := api.New(&api.Config{
		Address:        cfg.Server.Address,
		JWTSecret:      []byte(jwtSecret),
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
		QueryTimeout:   cfg.QueryTimeout(),
		MaxQueryLength: cfg.Server.MaxQueryLength,
		Verbose:        cfg.Verbose,
	}, store, logStore, scheduler)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)

	log.Printf("starting scriptflow-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	g.Go(func() error {
		return metricsServer.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// openLogStorage connects to ClickHouse when enabled, falling back to
// in-memory storage for development.
func openLogStorage(cfg *Config) (storage.LogStorage, error) {
	if !cfg.ClickHouse.Enabled {
		log.Printf("clickhouse disabled, using in-memory log storage")
		return storage.NewMemoryLogStorage(), nil
	}

	logStore := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
		Addresses:     cfg.ClickHouse.Addresses,
		Database:      cfg.ClickHouse.Database,
		Username:      cfg.ClickHouse.Username,
		Password:      cfg.ClickHouse.Password,
		RetentionDays: cfg.ClickHouse.RetentionDays,
	})
	if err := logStore.Open(); err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := logStore.Migrate(); err != nil {
		logStore.Close()
		return nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	log.Printf("clickhouse initialized at %v", cfg.ClickHouse.Addresses)
	return logStore, nil
}

// buildDispatcher wires notification channels from config. The internal
// channel is always available; email requires SMTP settings.
func buildDispatcher(cfg *Config, store storage.Storage) *notifier.Dispatcher {
	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Alerting.RateLimitPerMinute,
		Window:       time.Minute,
		Enabled:      cfg.Alerting.RateLimitPerMinute > 0,
	})

	dispatcher.Register(notifier.NewInternalNotifier(store.Notifications()))

	if cfg.Email.Host != "" {
		emailNotifier, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			log.Printf("email notifier disabled: %v", err)
		} else {
			dispatcher.Register(emailNotifier)
			log.Printf("email notifications enabled via %s:%d", cfg.Email.Host, cfg.Email.Port)
		}
	}

	return dispatcher
}
