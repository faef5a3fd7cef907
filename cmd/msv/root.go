package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daviddao/mobsinet_viewer/internal/config"
	"github.com/daviddao/mobsinet_viewer/internal/datasource"
	"github.com/daviddao/mobsinet_viewer/internal/logging"
)

var (
	configPath  string
	baseURL     string
	project     string
	refreshRate float64
	logLevel    string
	logFile     string
	metricsAddr string
)

// rootCmd opens the live viewer when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "msv",
	Short: "Live viewer for mobile network simulations",
	Long: `msv polls a running network simulation and draws its nodes and links
in the terminal, round by round. It can also drive the simulation and run
graph queries against it.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

// Execute adds all child commands to the root command and runs it until
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: discover .msv/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "simulation backend base url")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "simulation project")
	rootCmd.PersistentFlags().Float64VarP(&refreshRate, "rate", "r", 0, "poll rate in Hz")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("project") {
		cfg.Project = project
	}
	if flags.Changed("rate") {
		cfg.RefreshRateHz = refreshRate
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
}

// loadConfig resolves the config file and applies flag overrides. The
// returned path is "" when running on defaults.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	var (
		cfg  config.Config
		path = configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.Open()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return cfg, path, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// newLogger builds the logger for cfg. console is nil for the TUI.
func newLogger(cfg config.Config, console io.Writer) (*slog.Logger, func() error, error) {
	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: console,
		Prefix:  "msv",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return log, closeLog, nil
}

func newClient(cfg config.Config, log *slog.Logger) (*datasource.Client, error) {
	opts := []datasource.Option{
		datasource.WithTimeout(cfg.Timeout()),
		datasource.WithLogs(cfg.FetchLogs),
		datasource.WithLogger(log),
	}
	if cfg.CSRFToken != "" {
		opts = append(opts, datasource.WithCSRFToken(cfg.CSRFToken))
	}
	return datasource.New(cfg.BaseURL, opts...)
}

// setup loads config, logger and client for one-shot commands.
func setup(cmd *cobra.Command) (config.Config, *datasource.Client, func() error, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, nil, err
	}
	log, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cfg, nil, nil, err
	}
	c, err := newClient(cfg, log)
	if err != nil {
		closeLog()
		return cfg, nil, nil, err
	}
	return cfg, c, closeLog, nil
}
