package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/materialsim/autotutor/tutorial"
	"github.com/materialsim/autotutor/tutorial/fileutils"
)

// corpus-scan extracts canonical case records from a raw transcript tree and
// writes the corpus summary, without touching any LLM endpoint. It exists so
// the extraction half of the system can run standalone, e.g. to inspect what
// the generation stages would see.
func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := buildLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err.Error())
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	summary, err := tutorial.NewScanner(cfg.RawDir, logger).Scan(context.Background())
	if err != nil {
		logger.Error("scan failed", zap.Error(err))
		os.Exit(1)
	}

	outPath := filepath.Join(cfg.OutDir, tutorial.AnalysisSummaryFile)
	if err := fileutils.WriteJSONFileAtomic(outPath, summary, true); err != nil {
		logger.Error("failed to write corpus summary", zap.String("path", outPath), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("corpus summary written",
		zap.String("path", outPath),
		zap.Int("records", summary.TotalRecords))
}

type Config struct {
	RawDir  string
	OutDir  string
	Verbose bool
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.RawDir, "raw", cfg.RawDir, "Root of the raw transcript tree to scan")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Directory the corpus summary is written to")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
