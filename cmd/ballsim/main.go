package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/ballsim/internal/config"
	"github.com/san-kum/ballsim/internal/experiment"
	"github.com/san-kum/ballsim/internal/logging"
	"github.com/san-kum/ballsim/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel  string
	logFormat string
	log       = zap.NewNop()

	configFile string
	dt         float64
	duration   time.Duration
	numBalls   int
	seed       int64
	sampleRate int
	tick       time.Duration
	integrator string
	plot       bool
	benchSizes []int
	presetName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ballsim",
		Short:         "interactive particle simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(config.LoggingConfig{Level: logLevel, Format: logFormat})
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			log = l
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console or json)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a headless simulation and report metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().DurationVar(&duration, "time", config.DefaultDuration, "wall-clock duration")
	runCmd.Flags().IntVar(&numBalls, "balls", 0, "number of randomly placed balls")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().IntVar(&sampleRate, "fps", config.DefaultSampleRate, "snapshots per second")
	runCmd.Flags().DurationVar(&tick, "tick", 0, "minimum interval between ticks (0 = free running)")
	runCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, damped)")
	runCmd.Flags().BoolVar(&plot, "plot", true, "plot kinetic energy")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure free-running tick rate for several ball counts",
		Args:  cobra.NoArgs,
		RunE:  benchEngine,
	}
	benchCmd.Flags().IntSliceVar(&benchSizes, "balls", []int{10, 50, 200}, "ball counts")
	benchCmd.Flags().DurationVar(&duration, "time", 2*time.Second, "duration per size")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "config file helpers",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&presetName, "preset", "", "start from a preset")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(runCmd, benchCmd, presetsCmd, configCmd)

	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig picks the base config (file, then preset, then defaults) and
// applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "default"

	if len(args) > 0 {
		name = args[0]
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, name = loaded, configFile
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Engine.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("balls") {
		cfg.Random.Count = numBalls
	}
	if flags.Changed("seed") || cfg.Random.Seed == 0 {
		cfg.Random.Seed = seed
	}
	if flags.Changed("fps") {
		cfg.Run.SampleRate = sampleRate
	}
	if flags.Changed("tick") {
		cfg.Engine.TickInterval = tick
	}
	if flags.Changed("integrator") {
		cfg.Engine.Integrator = integrator
	}
	return cfg, name, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, log)
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("running simulation",
		zap.String("config", name),
		zap.Int("balls", exp.Engine().Len()),
		zap.Duration("duration", cfg.Run.Duration))

	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("interrupted, reporting partial run")
	}

	if err := report.Summary(os.Stdout, name, result); err != nil {
		return err
	}
	if plot {
		if graph := report.EnergyPlot(result.Energy, 80, 10); graph != "" {
			fmt.Println()
			fmt.Println(graph)
		}
	}
	return nil
}

func benchEngine(cmd *cobra.Command, args []string) error {
	fmt.Printf("benchmarking free-running engine (%v per size)\n\n", duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BALLS\tTICKS\tTIME\tTICKS/SEC")

	for _, n := range benchSizes {
		cfg := config.DefaultConfig()
		cfg.Random = config.RandomConfig{Count: n, Seed: 42, Width: config.DefaultWidth, Height: config.DefaultHeight}
		cfg.Run.Duration = duration
		cfg.Run.SampleRate = 1

		exp := experiment.New(cfg, log)
		if err := exp.Setup(); err != nil {
			return err
		}
		result, err := exp.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\n", n, result.Ticks, result.Elapsed.Round(time.Millisecond), report.TickRate(result))
	}

	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "ballsim.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.DefaultConfig()
	if presetName != "" {
		cfg = config.GetPreset(presetName)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %s)", presetName, strings.Join(config.ListPresets(), ", "))
		}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
