package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"pizzapos/pkg/catalog"
	"pizzapos/pkg/httpapi"
	"pizzapos/pkg/ledger"
	"pizzapos/pkg/metrics"
	"pizzapos/pkg/register"
	"pizzapos/pkg/version"
)

const (
	defaultPort         = 1984
	defaultQueueTimeout = 2 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// Config captures CLI flags and the optional YAML file so the register can run with a single Run call.
type Config struct {
	Port         int           `yaml:"port"`
	MenuPath     string        `yaml:"menu"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	AllowReset   bool          `yaml:"allow_reset"`
	QueueTimeout time.Duration `yaml:"queue_timeout"`

	showVersion bool
	configPath  string
}

func defaultConfig() Config {
	return Config{
		Port:         defaultPort,
		LogLevel:     "info",
		LogFormat:    "json",
		QueueTimeout: defaultQueueTimeout,
	}
}

// Run composes the catalog, ledger, register service and HTTP server, and
// serves until ctx is cancelled. A nil logger is built from the config.
func Run(ctx context.Context, args []string, logger *zap.Logger) error {
	cfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if logger == nil {
		logger, err = newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	if cfg.showVersion {
		logger.Info("pizzapos version", zap.String("version", version.Version()))
		return nil
	}

	menu, err := loadMenu(cfg.MenuPath)
	if err != nil {
		return err
	}
	logger.Info("menu loaded", zap.Int("items", menu.Len()), zap.String("source", menuSource(cfg.MenuPath)))

	reg := metrics.NewRegistry()
	book := ledger.New(ledger.WithLogger(logger.Named("ledger")))

	svc := register.NewService(menu, book,
		register.WithLogger(logger.Named("register")),
		register.WithRecorder(reg),
		register.WithQueueTimeout(cfg.QueueTimeout),
	)
	defer svc.Close()

	api := httpapi.New(svc, logger.Named("http"),
		httpapi.WithMetrics(reg),
		httpapi.WithReset(cfg.AllowReset),
	)

	addr := cfg.address()
	server := &http.Server{
		Addr:         addr,
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pizzapos is running", zap.String("addr", addr), zap.Bool("allow_reset", cfg.AllowReset))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("orders", book.Len()), zap.String("next_order_id", strconv.FormatInt(book.NextID(), 10)))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// address converts port configuration into a binding string; PORT wins over flags and file.
func (c Config) address() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + strconv.Itoa(c.Port)
}

// parseFlags uses a dedicated FlagSet so Run can be called from multiple entry points.
// Values from -config are applied first and explicitly set flags override them.
func parseFlags(args []string) (Config, error) {
	set := flag.NewFlagSet("pizzapos", flag.ContinueOnError)
	set.SetOutput(io.Discard)

	flags := defaultConfig()
	set.BoolVar(&flags.showVersion, "version", false, "Show the application version")
	set.StringVar(&flags.configPath, "config", "", "Optional YAML config file")
	set.IntVar(&flags.Port, "port", flags.Port, "Port for the HTTP server")
	set.StringVar(&flags.MenuPath, "menu", "", "Menu file (.json or .yaml); the built-in menu is used when empty")
	set.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	set.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: json or console")
	set.BoolVar(&flags.AllowReset, "allow-reset", false, "Mount POST /api/admin/reset")
	set.DurationVar(&flags.QueueTimeout, "queue-timeout", flags.QueueTimeout, "How long a request waits for the register before failing as busy")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if flags.configPath != "" {
		if err := cfg.loadFile(flags.configPath); err != nil {
			return Config{}, err
		}
	}
	set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = flags.Port
		case "menu":
			cfg.MenuPath = flags.MenuPath
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "allow-reset":
			cfg.AllowReset = flags.AllowReset
		case "queue-timeout":
			cfg.QueueTimeout = flags.QueueTimeout
		}
	})
	cfg.showVersion = flags.showVersion
	cfg.configPath = flags.configPath

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.QueueTimeout <= 0 {
		return fmt.Errorf("queue timeout must be positive, got %s", c.QueueTimeout)
	}
	return nil
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("pizzapos"), nil
}

func loadMenu(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	menu, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load menu: %w", err)
	}
	return menu, nil
}

func menuSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
