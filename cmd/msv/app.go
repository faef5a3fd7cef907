package main

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/daviddao/mobsinet_viewer/internal/config"
	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/poller"
	"github.com/daviddao/mobsinet_viewer/internal/roundlog"
)

// runTUI opens the live viewer. Logs go to the log file only, since the
// terminal belongs to the TUI.
func runTUI(cmd *cobra.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics server failed", "err", err)
			}
		}()
	}

	var p *tea.Program
	sched := poller.New(c.FetchSnapshot, func(res poller.Result) {
		p.Send(snapshotMsg{res: res})
	}, poller.WithLogger(log))
	defer sched.Close()

	m := newModel(c, sched, roundlog.New(), cfg, path, log)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if path != "" {
		w, err := config.NewWatcher(path)
		if err != nil {
			log.Warn("config watch disabled", "path", path, "err", err)
		} else {
			defer w.Close()
			go watchConfig(ctx, w, cmd, p, log)
		}
	}

	// The first poll shows the current round; a stopped simulation turns
	// polling off again right away.
	if err := sched.Start(cfg.RefreshRateHz); err != nil {
		return err
	}

	log.Info("viewer started", "base_url", c.BaseURL(), "config", path, "rate_hz", cfg.RefreshRateHz)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// watchConfig reloads the config file on every change and hands the result
// to the TUI.
func watchConfig(ctx context.Context, w *config.Watcher, cmd *cobra.Command, p *tea.Program, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Changes():
			log.Debug("config changed", "path", w.Path(), "target", w.Target())
			cfg, err := config.Load(w.Path())
			if err == nil {
				applyFlags(cmd, &cfg)
				err = cfg.Validate()
			}
			if err != nil {
				log.Warn("config reload failed", "path", w.Path(), "err", err)
			}
			p.Send(configChangedMsg{cfg: cfg, err: err})
		}
	}
}
