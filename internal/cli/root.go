package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AndreLecona/Dotate/config"
)

// Version is stamped by the release build.
var Version = "1.1.1"

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "dotate",
	Short: "Annotate protein domains from HMMER domain-table output",
	Long: `Dotate turns HMMER --domtblout search results into non-redundant domain
annotations: hits are filtered by i-Evalue and coverage thresholds, overlaps
are resolved per protein, and the unannotated regions in between are
reported alongside the calls.

Example usage:
  dotate annotate search.domtbl                   # TSV next to the input
  dotate annotate --sql anno.db 'runs/*.domtbl'   # one SQLite table per input
  dotate mapping import nm2id.json --db ecod.db   # compile an ECOD mapping`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = newLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

// Execute runs the CLI. Exit status: 0 success, 1 partial failure (some
// lines, chunks or sinks failed but output was written), 2 fatal.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dotate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

// newLogger builds a console logger at the configured level; --verbose
// forces debug.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
