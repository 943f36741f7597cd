package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gofestat/adapters/excel"
	"gofestat/app"
	"gofestat/domain/core"
	"gofestat/domain/pta"
	"gofestat/domain/stats"
	"gofestat/internal"
	"gofestat/internal/config"
	"gofestat/internal/container"
	"gofestat/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "festat",
		Short: "Fe-statistic sky maps for pulsar timing arrays",
	}

	rootCmd.AddCommand(
		newScanCmd(),
		newExportCmd(),
		newRunsCmd(),
		newShowCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// arrayFlags are the synthetic array and noise model settings shared by commands
type arrayFlags struct {
	cfg testkit.ArrayConfig
}

func (f *arrayFlags) register(cmd *cobra.Command) {
	f.cfg = testkit.DefaultArrayConfig()
	cmd.Flags().IntVar(&f.cfg.NTOA, "ntoa", f.cfg.NTOA, "TOAs per synthetic pulsar")
	cmd.Flags().Float64Var(&f.cfg.Sigma, "sigma", f.cfg.Sigma, "White noise rms per TOA in seconds")
	cmd.Flags().IntVar(&f.cfg.NModes, "nmodes", f.cfg.NModes, "Red noise Fourier frequencies")
	cmd.Flags().Float64Var(&f.cfg.Log10A, "log10-a", f.cfg.Log10A, "Red noise log10 amplitude")
	cmd.Flags().Float64Var(&f.cfg.Gamma, "gamma", f.cfg.Gamma, "Red noise spectral index")
	cmd.Flags().Int64Var(&f.cfg.Seed, "seed", f.cfg.Seed, "Random seed for the synthetic white noise")
}

type scanOptions struct {
	array   testkit.ArrayConfig
	file    string
	freqs   []float64
	nTheta  int
	nPhi    int
	brave   bool
	outDir  string
	persist bool
}

func newScanCmd() *cobra.Command {
	var (
		flags arrayFlags
		opts  scanOptions
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compute Fe-statistic sky maps and write them as workbooks",
		Long: `Compute one sky map per frequency over a uniform grid.

Without --file the synthetic eight-pulsar array with an injected source at
2e-8 Hz is scanned. With --file the pulsars are read from an xlsx or csv
table (pulsar, theta, phi, toa, residual) and scanned with the synthetic
noise model. Each run is written to OUTPUT_DIR as <run-id>.xlsx and
<run-id>.md, and stored in DATABASE_URL when --save is set.

Example: festat scan --freq 2e-8 --freq 3e-8 --ntheta 24 --nphi 48`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("brave") {
				opts.brave = appConfig.Engine.Brave
			}
			if opts.outDir == "" {
				opts.outDir = appConfig.Output.Dir
			}
			opts.array = flags.cfg
			return runScan(cmd.Context(), appConfig, opts, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&opts.file, "file", "", "Pulsar table (xlsx or csv); overrides PULSAR_FILE")
	cmd.Flags().Float64SliceVar(&opts.freqs, "freq", []float64{testkit.DefaultSource.F0}, "GW frequencies in Hz")
	cmd.Flags().IntVar(&opts.nTheta, "ntheta", 16, "Grid rows, uniform in cos(theta)")
	cmd.Flags().IntVar(&opts.nPhi, "nphi", 32, "Grid columns, uniform in phi")
	cmd.Flags().BoolVar(&opts.brave, "brave", false, "Skip finiteness checks (defaults to FESTAT_BRAVE)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (defaults to OUTPUT_DIR)")
	cmd.Flags().BoolVar(&opts.persist, "save", false, "Store runs in DATABASE_URL")

	return cmd
}

func runScan(ctx context.Context, appConfig *config.Config, opts scanOptions, out io.Writer) error {
	if err := pta.CheckGridSize(opts.nTheta, opts.nPhi, appConfig.Engine.MaxGridPoints); err != nil {
		return err
	}
	if opts.file != "" {
		appConfig.Data.PulsarFile = opts.file
	}
	if !opts.persist {
		appConfig.Database.URL = ""
	}

	c, err := container.New(appConfig)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	if err := c.OpenDatabase(ctx); err != nil {
		return err
	}
	if err := c.LoadConfiguredArray(opts.array); err != nil {
		return err
	}

	grid := pta.UniformSkyGrid(opts.nTheta, opts.nPhi)
	runs, err := c.Search.ScanFrequencies(ctx, opts.freqs, grid, opts.brave)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, run := range runs {
		if err := writeRun(opts.outDir, run); err != nil {
			return err
		}
		s := run.Summary
		fmt.Fprintf(out, "%s  f0=%.4e Hz  max Fe=%.3f at theta=%.3f phi=%.3f  (%d points, %d non-finite)\n",
			run.ID, run.Frequency, s.Max, s.MaxPos.Theta, s.MaxPos.Phi, s.Points, s.NonFinite)
	}

	if best := app.Loudest(runs); best != nil {
		fmt.Fprintf(out, "Loudest run: %s at f0=%.4e Hz\n", best.ID, best.Frequency)
	}
	return nil
}

func writeRun(dir string, run *stats.FeRun) error {
	base := filepath.Join(dir, run.ID.String())
	if err := excel.WriteSkyMap(base+".xlsx", run); err != nil {
		return err
	}
	if err := os.WriteFile(base+".md", []byte(app.ReportMarkdown(run)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	var flags arrayFlags

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write the synthetic pulsar array as a pulsar table",
		Long: `Write the synthetic eight-pulsar array, with its injected source, as an
xlsx table that scan --file can read back.

Example: festat export pulsars.xlsx --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			psrs, _ := testkit.Synthetic(flags.cfg, testkit.DefaultSource)
			if err := excel.NewWriter(excel.DefaultExcelConfig()).WritePulsars(args[0], psrs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pulsars to %s\n", len(psrs), args[0])
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			runs, err := c.Runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  f0=%.4e Hz  %d pulsars  max Fe=%.3f\n",
					run.ID, run.CreatedAt.Time().Format("2006-01-02 15:04"), run.Frequency, len(run.PulsarNames), run.Summary.Max)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the Markdown report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}

			c, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			run, err := c.Runs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), app.ReportMarkdown(run))
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.LogLevel))
	return appConfig, nil
}

// openStore returns a container with an open database, failing when none is configured
func openStore(ctx context.Context) (*container.Container, error) {
	appConfig, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if appConfig.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	c, err := container.New(appConfig)
	if err != nil {
		return nil, err
	}
	if err := c.OpenDatabase(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
