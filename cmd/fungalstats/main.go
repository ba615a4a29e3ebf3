// Command fungalstats generates the fungal-community statistical analysis
// report from a set of input CSVs.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wyy-yiyang/fungal-community-data/config"
	"github.com/wyy-yiyang/fungal-community-data/convergence"
	"github.com/wyy-yiyang/fungal-community-data/report"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "fungalstats",
		Short:         "Ecological statistics for fungal OTU community data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newReportCommand(&debug))
	return root
}

func newReportCommand(debug *bool) *cobra.Command {
	var (
		configPath  string
		outDir      string
		seed        uint64
		resamples   int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full analysis pipeline and write summary tables and figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(*debug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // stderr sync failure is uninteresting

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if seed != 0 {
				cfg.Bootstrap.Seed = seed
			}
			if resamples != 0 {
				cfg.Bootstrap.Resamples = resamples
			}
			if metricsAddr != "" {
				cfg.Metrics.ListenAddr = metricsAddr
			}

			if cfg.Metrics.ListenAddr != "" {
				mux := http.NewServeMux()
				convergence.RegisterMetrics(mux)
				go func() {
					logger.Info("metrics listener starting", zap.String("addr", cfg.Metrics.ListenAddr))
					if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
						logger.Warn("metrics listener stopped", zap.Error(err))
					}
				}()
			}

			rep, err := report.New(logger, cfg).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range rep.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (seed %d, lowest_n %d)\n",
				cfg.Output.Dir, rep.Seed, rep.LowestN)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fungalstats.yaml", "pipeline configuration file")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "override the output directory")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override the random seed (0 keeps the configured seed)")
	cmd.Flags().IntVar(&resamples, "resamples", 0, "override the bootstrap resample count")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address during the run")
	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
