package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/daviddao/mobsinet_viewer/internal/config"
	"github.com/daviddao/mobsinet_viewer/internal/datasource"
	"github.com/daviddao/mobsinet_viewer/internal/demosim"
	"github.com/daviddao/mobsinet_viewer/internal/geometry"
	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/render"
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Short:   "Fetch the current round once and print it",
	GroupID: "sim",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		snap, err := c.FetchSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if !snap.Complete() {
			return fmt.Errorf("snapshot: round %d is missing its node or link table", snap.Round)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(buildJSONOutput(snap))
		}

		shapes := geometry.Build(geometry.Input{
			Nodes:   snap.Nodes,
			Links:   snap.Links,
			DimX:    cfg.DimX,
			DimY:    cfg.DimY,
			Arrows:  cfg.Arrows,
			ShowIDs: cfg.ShowIDs,
		})
		if path, _ := cmd.Flags().GetString("svg"); path != "" {
			size, _ := cmd.Flags().GetInt("svg-size")
			if err := writeSVG(path, shapes, size); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			fmt.Fprintf(out, "wrote %s (round %d)\n", path, snap.Round)
			return nil
		}

		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		fmt.Fprint(out, render.Canvas{Width: width, Height: height}.Draw(shapes))
		fmt.Fprintf(out, "round %d | %d nodes | %d links | msgs %d/%d | running %v\n",
			snap.Round, len(snap.Nodes), len(snap.Links),
			snap.MessagesThisRound, snap.MessagesOverall, snap.Running)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:     "init [project]",
	Short:   "Load a project into the simulator",
	GroupID: "sim",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		name, err := resolveProject(cmd.Context(), c, cfg, args)
		if err != nil {
			return err
		}
		if err := c.InitSimulation(cmd.Context(), name); err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", name)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Start the simulation",
	GroupID: "sim",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		rounds, rate := cfg.Rounds, cfg.SimulationRefreshRate
		if cmd.Flags().Changed("rounds") {
			rounds, _ = cmd.Flags().GetInt("rounds")
		}
		if cmd.Flags().Changed("sim-rate") {
			rate, _ = cmd.Flags().GetFloat64("sim-rate")
		}
		if err := c.RunSimulation(cmd.Context(), rounds, rate); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "running %d rounds\n", rounds)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Stop the simulation",
	GroupID: "sim",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		if err := c.StopSimulation(cmd.Context()); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "stopped")
		return nil
	},
}

var reevaluateCmd = &cobra.Command{
	Use:     "reevaluate",
	Short:   "Recompute connections for the current positions",
	GroupID: "sim",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		if err := c.ReevaluateConnections(cmd.Context()); err != nil {
			return fmt.Errorf("reevaluate: %w", err)
		}
		snap, err := c.FetchSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh after reevaluate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "round %d | %d links\n", snap.Round, len(snap.Links))
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List the projects the simulator can load",
	GroupID: "sim",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		names, err := c.ProjectNames(cmd.Context())
		if err != nil {
			return fmt.Errorf("projects: %w", err)
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config [project]",
	Short: "Show a project's simulation config",
	Long: `Show a project's simulation config as flat key/value pairs.

With --local, print the viewer's own effective configuration instead. With
--init, write a default viewer config file.`,
	GroupID: "sim",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if create, _ := cmd.Flags().GetBool("init"); create {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", path)
			return nil
		}

		if local, _ := cmd.Flags().GetBool("local"); local {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(out, "# %s\n%s", path, data)
			return nil
		}

		cfg, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		name, err := resolveProject(cmd.Context(), c, cfg, args)
		if err != nil {
			return err
		}
		entries, err := c.GetConfig(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		fmt.Fprint(out, formatConfig(entries))
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <degree|diameter|ecc|distance|path|node2vec> [arg...]",
	Short: "Run a graph query against the current round",
	Example: `  msv query degree 3
  msv query path 1 7
  msv query node2vec 2`,
	GroupID: "sim",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := parseQuery(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if q.kind == queryClear {
			return errors.New("clear only applies to the live viewer")
		}

		_, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		res, err := runQuery(cmd.Context(), c, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		if res.Embedding != nil {
			fmt.Fprint(cmd.OutOrStdout(), formatEmbedding(*res.Embedding))
		}
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit key=value...",
	Short: "Submit a settings or add-nodes form",
	Example: `  msv submit --form add-nodes number_of_nodes=5 color=green
  msv submit --form options 'connectivity_model_parameters[radius]=120'`,
	GroupID: "sim",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseFormValues(args)
		if err != nil {
			return err
		}
		cfg, c, closeLog, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		name, err := resolveProject(cmd.Context(), c, cfg, nil)
		if err != nil {
			return err
		}
		form, _ := cmd.Flags().GetString("form")
		if err := c.SubmitForm(cmd.Context(), form, name, values); err != nil {
			return fmt.Errorf("submit %s: %w", form, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted %s for %s\n", form, name)
		if form != datasource.FormAddNodes {
			return nil
		}
		snap, err := c.FetchSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh after %s: %w", form, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "round %d | %d nodes\n", snap.Round, len(snap.Nodes))
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve a small built-in simulation backend",
	Long: `Serve a small random-walk simulation over the same HTTP endpoints the
viewer polls. Point the viewer at http://<addr>/mobsinet/graph/.`,
	GroupID: "tools",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(cmd.Context(), cfg.MetricsAddr, log); err != nil {
					log.Error("metrics server failed", "err", err)
				}
			}()
		}

		addr, _ := cmd.Flags().GetString("addr")
		seed, _ := cmd.Flags().GetUint64("seed")
		return demosim.Serve(cmd.Context(), addr, demosim.New(seed, log), log)
	},
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the version",
	GroupID: "tools",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "msv %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd, initCmd, runCmd, stopCmd, reevaluateCmd,
		projectsCmd, configCmd, queryCmd, submitCmd, demoCmd, versionCmd)

	snapshotCmd.Flags().Bool("json", false, "print the round as JSON")
	snapshotCmd.Flags().Int("width", 80, "frame width in cells")
	snapshotCmd.Flags().Int("height", 24, "frame height in cells")
	snapshotCmd.Flags().String("svg", "", "write the round as an SVG file instead")
	snapshotCmd.Flags().Int("svg-size", render.DefaultSVGSize, "SVG edge length in pixels")

	runCmd.Flags().Int("rounds", 0, "rounds to run (default from config)")
	runCmd.Flags().Float64("sim-rate", 0, "simulator rounds per second, 0 for no pause (default from config)")

	configCmd.Flags().Bool("local", false, "print the viewer config instead")
	configCmd.Flags().Bool("init", false, "write a default viewer config file")

	submitCmd.Flags().String("form", datasource.FormOptions, "form to submit: options or add-nodes")

	demoCmd.Flags().String("addr", ":8000", "listen address")
	demoCmd.Flags().Uint64("seed", 1, "random seed")
}

// resolveProject picks the project from args, then config, then the first
// one the backend lists.
func resolveProject(ctx context.Context, c *datasource.Client, cfg config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Project != "" {
		return cfg.Project, nil
	}
	names, err := c.ProjectNames(ctx)
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	if len(names) == 0 {
		return "", errors.New("backend has no projects")
	}
	return names[0], nil
}

// parseFormValues turns key=value arguments into form values.
func parseFormValues(args []string) (url.Values, error) {
	values := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		values.Add(k, v)
	}
	return values, nil
}
