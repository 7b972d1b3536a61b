package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/physfit/internal/app"
	"github.com/san-kum/physfit/internal/automation"
	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/experiment"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/logging"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/prompt"
	"github.com/san-kum/physfit/internal/report"
	"github.com/san-kum/physfit/internal/storage"
)

var (
	dataDir     string
	configFile  string
	preset      string
	verbose     bool
	useTUI      bool
	styled      bool
	diagnostics bool
	noPlot      bool
	svgPath     string
	save        bool

	h0   float64
	hmin float64
	g    float64
	eta  float64

	decayFiles []string
	tunnelFile string
	outlierK   float64
	tolerance  float64
	maxIter    int
	initial    float64
	step       float64
	scanMin    float64
	scanMax    float64
	scanPoints int

	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

// main registers commands and flags and executes the root command. It
// prints any hints attached to a failure and exits with status 1.
func main() {
	rootCmd := &cobra.Command{
		Use:           "physfit",
		Short:         "physics coursework calculations and curve fits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".physfit", "data directory for saved runs")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "ask questions with the terminal editor")
	rootCmd.PersistentFlags().BoolVar(&styled, "styled", false, "styled report panel")
	rootCmd.PersistentFlags().BoolVar(&diagnostics, "diagnostics", false, "add residual diagnostics to reports")
	rootCmd.PersistentFlags().BoolVar(&noPlot, "no-plot", false, "skip the terminal plot")
	rootCmd.PersistentFlags().StringVar(&svgPath, "svg", "", "also write the plot as svg")

	bounceCmd := &cobra.Command{
		Use:   "bounce",
		Short: "bouncing ball kinematics",
		Args:  cobra.NoArgs,
		RunE:  runBounce,
	}
	bounceCmd.Flags().Float64Var(&h0, "h0", 0, "initial height in metres (asked if unset)")
	bounceCmd.Flags().Float64Var(&hmin, "hmin", 0, "minimum bounce height in metres (asked if unset)")
	bounceCmd.Flags().Float64Var(&g, "g", 0, "gravitational acceleration (asked if unset)")
	bounceCmd.Flags().Float64Var(&eta, "eta", 0, "fraction of height kept per bounce (asked if unset)")

	decayCmd := &cobra.Command{
		Use:   "decay [file...]",
		Short: "fit the strontium 79 decay chain",
		RunE:  runDecay,
	}
	decayCmd.Flags().StringSliceVar(&decayFiles, "files", nil, "measurement files (asked if unset)")
	decayCmd.Flags().Float64Var(&outlierK, "outlier-k", config.DefaultOutlierK, "outlier threshold in mean uncertainties")
	decayCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultDecayTolerance, "simplex tolerance")
	decayCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultDecayMaxIter, "simplex iteration cap")
	decayCmd.Flags().BoolVar(&save, "save", false, "save the run")

	tunnelCmd := &cobra.Command{
		Use:   "tunnel [file]",
		Short: "estimate the boron nitride film thickness",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTunnel,
	}
	tunnelCmd.Flags().StringVar(&tunnelFile, "file", "", "transmission data file (asked if unset)")
	tunnelCmd.Flags().Float64Var(&outlierK, "outlier-k", config.DefaultOutlierK, "outlier band in standard deviations")
	tunnelCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTunnelTol, "hill-climb tolerance")
	tunnelCmd.Flags().IntVar(&maxIter, "max-iter", 0, "hill-climb iteration cap")
	tunnelCmd.Flags().Float64Var(&initial, "initial", 0, "starting thickness in Å")
	tunnelCmd.Flags().Float64Var(&step, "step", config.DefaultTunnelStep, "hill-climb step in Å")
	tunnelCmd.Flags().Float64Var(&scanMin, "scan-min", 0, "lowest thickness of the starting scan in Å")
	tunnelCmd.Flags().Float64Var(&scanMax, "scan-max", 0, "highest thickness of the starting scan in Å")
	tunnelCmd.Flags().IntVar(&scanPoints, "scan-points", 0, "points in the starting scan (0 disables it)")
	tunnelCmd.Flags().BoolVar(&save, "save", false, "save the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(env app.Env) error { return app.ListRuns(env) })
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the report of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(env app.Env) error { return app.ShowRun(env, args[0]) })
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(env app.Env) error { return app.PlotRun(env, args[0]) })
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(env app.Env) error { return app.ExportRun(env, args[0]) })
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [experiment]",
		Short: "list available presets for an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Fprintf(out, "no presets for experiment: %s\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}

	experimentsCmd := &cobra.Command{
		Use:   "experiments",
		Short: "list experiments with saved run support",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			for _, name := range reg.List() {
				e, _ := reg.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %s\n", name, e.Title)
			}
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario]",
		Short: "run a yaml scenario of experiments in order",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [experiment]",
		Short: "refit an experiment across outlier thresholds",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sweepMin, "k-min", 2, "lowest outlier threshold")
	sweepCmd.Flags().Float64Var(&sweepMax, "k-max", 5, "highest outlier threshold")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 7, "number of thresholds")

	rootCmd.AddCommand(bounceCmd, decayCmd, tunnelCmd, listCmd, showCmd, plotCmd, exportCmd, presetsCmd, experimentsCmd, batchCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

// loadConfig applies the preset, then the config file, then any flags set
// on the command line.
func loadConfig(cmd *cobra.Command, exp string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" && exp != "" {
		if !config.Apply(cfg, exp, preset) {
			return nil, errors.Mark(
				errors.Newf("unknown preset: %s (available: %v)", preset, config.ListPresets(exp)),
				fit.ErrInvalidInput)
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("svg") {
		cfg.Plot.SVG = svgPath
	}
	if noPlot {
		cfg.Plot.Terminal = false
	}
	return cfg, cfg.Validate()
}

func withEnv(cmd *cobra.Command, run func(env app.Env) error) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	return run(env)
}

func newEnv(cmd *cobra.Command, cfg *config.Config) (app.Env, *zap.Logger) {
	log := logging.Stderr(verbose)
	out := cmd.OutOrStdout()

	env := app.Env{
		In:          cmd.InOrStdin(),
		Out:         out,
		Log:         log,
		Store:       storage.New(cfg.DataDir),
		Diagnostics: diagnostics,
	}
	if styled {
		env.Style = report.Styled
	}
	if useTUI {
		env.Asker = prompt.TUI{}
	}

	var sinks plot.Multi
	if cfg.Plot.Terminal {
		sinks = append(sinks, plot.Terminal{W: out, Height: cfg.Plot.TermHeight, Width: cfg.Plot.TermWidth})
	}
	if cfg.Plot.SVG != "" {
		sinks = append(sinks, plot.SVG{
			Path:   cfg.Plot.SVG,
			Width:  cfg.Plot.Width,
			Height: cfg.Plot.Height,
			Scale:  cfg.Plot.Scale,
		})
	}
	env.Sink = sinks
	return env, log
}

func runBounce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "bounce")
	if err != nil {
		return err
	}
	in := cfg.Bounce
	flags := cmd.Flags()
	if flags.Changed("h0") {
		in.H0 = config.Float(h0)
	}
	if flags.Changed("hmin") {
		in.HMin = config.Float(hmin)
	}
	if flags.Changed("g") {
		in.G = config.Float(g)
	}
	if flags.Changed("eta") {
		in.Eta = config.Float(eta)
	}

	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	_, err = app.RunBounce(cmd.Context(), env, in)
	return err
}

func runDecay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "decay")
	if err != nil {
		return err
	}
	dc := cfg.Decay
	flags := cmd.Flags()
	if flags.Changed("files") {
		dc.Files = decayFiles
	}
	if len(args) > 0 {
		dc.Files = args
	}
	if flags.Changed("outlier-k") {
		dc.OutlierK = outlierK
	}
	if flags.Changed("tolerance") {
		dc.Tolerance = tolerance
	}
	if flags.Changed("max-iter") {
		dc.MaxIter = maxIter
	}

	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	if err := prepareStore(&env); err != nil {
		return err
	}
	_, err = app.RunDecay(cmd.Context(), env, dc)
	return err
}

func runTunnel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "tunnel")
	if err != nil {
		return err
	}
	tc := cfg.Tunnel
	flags := cmd.Flags()
	if flags.Changed("file") {
		tc.File = tunnelFile
	}
	if len(args) > 0 {
		tc.File = args[0]
	}
	if flags.Changed("outlier-k") {
		tc.OutlierK = outlierK
	}
	if flags.Changed("tolerance") {
		tc.Tolerance = tolerance
	}
	if flags.Changed("max-iter") {
		tc.MaxIter = maxIter
	}
	if flags.Changed("initial") {
		tc.Initial = initial
	}
	if flags.Changed("step") {
		tc.Step = step
	}
	if flags.Changed("scan-min") {
		tc.ScanMin = scanMin
	}
	if flags.Changed("scan-max") {
		tc.ScanMax = scanMax
	}
	if flags.Changed("scan-points") {
		tc.ScanPoints = scanPoints
	}

	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	if err := prepareStore(&env); err != nil {
		return err
	}
	_, err = app.RunTunnel(cmd.Context(), env, tc)
	return err
}

// prepareStore keeps the store only when the run should be saved.
func prepareStore(env *app.Env) error {
	if !save {
		env.Store = nil
		return nil
	}
	return env.Store.Init()
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}

	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	if err := env.Store.Init(); err != nil {
		return err
	}
	results, err := automation.RunScenario(cmd.Context(), env, cfg, scenario)
	log.Info("scenario finished", zap.String("name", scenario.Name), zap.Int("steps", len(results)))
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}

	env, log := newEnv(cmd, cfg)
	defer func() { _ = log.Sync() }()
	sweep := &automation.ParameterSweep{
		Experiment: args[0],
		KMin:       sweepMin,
		KMax:       sweepMax,
		NumSteps:   sweepSteps,
	}
	results, err := automation.RunSweep(cmd.Context(), env, cfg, sweep)
	if err != nil {
		return err
	}
	automation.WriteSweep(env.Out, results)
	return nil
}
