/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bulk/pkg/config"
	"bulk/pkg/logger"
	"bulk/pkg/pipeline"
)

var (
	cfgFile     string
	outputDir   string
	granularity string
	logLevel    string
	logFormat   string
	showStats   bool
)

var rootCmd = &cobra.Command{
	Use:   "bulk <size>",
	Short: "Batch stdin commands into bulk lines and log files",
	Long: `bulk reads commands from standard input, one per line, and emits them in
batches of <size>. A line containing only "{" opens a block: everything up to
the matching "}" is emitted as one batch regardless of size. Nested blocks
are merged into the outermost one, and a block left open at end of input is
discarded.

Every batch is printed as "bulk: a, b, c" and written to bulk<unix-time>.log.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(args)
		if err != nil {
			return err
		}

		return runBulk(cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file, JSON or TOML (default: $BULK_CONFIG, ./bulk.json, ./bulk.toml)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for bulk<ticks>.log files")
	rootCmd.Flags().StringVar(&granularity, "granularity", "", "log file name resolution: s or ms")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.Flags().BoolVar(&showStats, "stats", false, "print batch statistics to stderr on exit")
}

// Execute runs the root command and reports a failure on stderr.
func Execute(ver string) error {
	version = ver
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "bulk: %v\n", err)
		return err
	}
	return nil
}

// resolveConfig merges file, env and command line settings.
// The positional size wins over BULK_SIZE and the config file.
func resolveConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if len(args) > 0 {
		size, err := config.ParseBatchSize(args[0])
		if err != nil {
			return nil, err
		}
		cfg.SetSize(size)
	}

	if value := strings.TrimSpace(outputDir); value != "" {
		cfg.Bulk.OutputDir = value
	}
	if value := strings.TrimSpace(granularity); value != "" {
		cfg.Bulk.Granularity = value
	}
	if value := strings.TrimSpace(logLevel); value != "" {
		cfg.Logging.Level = value
	}
	if value := strings.TrimSpace(logFormat); value != "" {
		cfg.Logging.Format = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runBulk(cfg *config.Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	appLogger, err := logger.NewWithWriter(cfg.Logging, errOut)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	log := appLogger.With("run_id", uuid.NewString())

	g, err := pipeline.ParseGranularity(cfg.Bulk.Granularity)
	if err != nil {
		return err
	}

	stats := pipeline.NewStatsCollector()
	p, err := pipeline.New(pipeline.Options{
		BatchSize:   cfg.Bulk.Size,
		Stdout:      out,
		OutputDir:   cfg.Bulk.OutputDir,
		Granularity: g,
		OpenToken:   cfg.Bulk.OpenToken,
		CloseToken:  cfg.Bulk.CloseToken,
		Logger:      log,
		Stats:       stats,
	})
	if err != nil {
		return err
	}

	log.With("component", "cmd.root").Info("Pipeline started",
		"size", cfg.Bulk.Size,
		"output_dir", cfg.Bulk.OutputDir,
		"granularity", string(g),
	)

	runErr := p.Run(in)
	p.LogSummary()
	if showStats {
		printStats(errOut, p.Stats())
	}
	if runErr != nil {
		log.Error("Input read failed", "component", "cmd.root", "error", runErr)
		return runErr
	}

	return nil
}

func printStats(w io.Writer, s pipeline.Stats) {
	_, _ = fmt.Fprintf(w,
		"commands=%d batched=%d flushes=%d (size=%d block=%d shutdown=%d) dropped=%d stray_closes=%d file_errors=%d\n",
		s.CommandsRead,
		s.CommandsBatched,
		s.TotalFlushes(),
		s.Flushes[pipeline.FlushSize],
		s.Flushes[pipeline.FlushBlockStart]+s.Flushes[pipeline.FlushBlockEnd],
		s.Flushes[pipeline.FlushShutdown],
		s.Dropped,
		s.StrayCloses,
		s.FileErrors,
	)
}
