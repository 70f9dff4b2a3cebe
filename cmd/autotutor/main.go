package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/materialsim/autotutor/tutorial"
	"github.com/materialsim/autotutor/tutorial/llm"
)

// pipelineStages in execution order.
var pipelineStages = []string{"scan", "enrich", "outline", "draft", "assemble"}

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

	if cfg.InitPrompts {
		written, err := tutorial.WriteDefaultPrompts(cfg.PromptsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed writing prompt templates:", err.Error())
			os.Exit(1)
		}
		for _, name := range written {
			fmt.Fprintln(os.Stdout, "wrote prompt template:", name)
		}
		if len(written) == 0 {
			fmt.Fprintln(os.Stdout, "all prompt templates already exist in", cfg.PromptsDir)
		}
		return
	}

	logger, err := buildLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err.Error())
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	llmCfg, err := llm.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load LLM configuration", zap.String("path", cfg.ConfigPath), zap.Error(err))
		os.Exit(1)
	}
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		logger.Error("failed to construct LLM client", zap.Error(err))
		os.Exit(1)
	}

	pipe, err := tutorial.NewPipeline(tutorial.PipelineOptions{
		RawRoot:      cfg.RawDir,
		ProcessedDir: cfg.ProcessedDir,
		OutputDir:    cfg.OutputDir,
		PromptsDir:   cfg.PromptsDir,
		BookName:     cfg.BookName,
		Concurrency:  cfg.Concurrency,
	}, client, logger)
	if err != nil {
		logger.Error("failed to construct pipeline", zap.Error(err))
		os.Exit(1)
	}

	ctx := context.Background()

	stages := pipelineStages
	if cfg.OnlyStage != "" {
		stages = []string{cfg.OnlyStage}
	} else if cfg.FromStage != "" {
		stages = stagesFrom(stages, cfg.FromStage)
	}
	if cfg.SkipScan {
		stages = dropStage(stages, "scan")
	}

	for _, stage := range stages {
		var err error
		switch stage {
		case "scan":
			err = pipe.RunScan(ctx)
		case "enrich":
			err = pipe.RunEnrich(ctx)
		case "outline":
			err = pipe.RunOutline(ctx)
		case "draft":
			var drafts []string
			drafts, err = pipe.RunDraft(ctx)
			if err == nil && len(drafts) == 0 {
				err = errors.New("no chapter drafts were generated")
			}
		case "assemble":
			err = pipe.RunAssemble(ctx)
		default:
			fmt.Fprintln(os.Stderr, "unknown stage:", stage)
			os.Exit(2)
		}
		if err != nil {
			logger.Error("stage failed", zap.String("stage", stage), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("stage complete", zap.String("stage", stage))
	}
}

type Config struct {
	RawDir       string
	ProcessedDir string
	OutputDir    string
	PromptsDir   string
	ConfigPath   string

	BookName    string
	Concurrency int

	FromStage string
	OnlyStage string

	SkipScan    bool
	InitPrompts bool
	Verbose     bool
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.RawDir, "raw", cfg.RawDir, "Root of the raw transcript tree to scan")
	fs.StringVar(&cfg.ProcessedDir, "processed", cfg.ProcessedDir, "Directory for the corpus summary and stage artifacts")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory for the final assembled book")
	fs.StringVar(&cfg.PromptsDir, "prompts", cfg.PromptsDir, "Directory with prompt template overrides (built-in defaults are used for missing files)")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to the LLM configuration YAML")

	fs.StringVar(&cfg.BookName, "book-name", cfg.BookName, "Base name of the final document (<name>_Final.md)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent chapter drafts (1 = sequential)")

	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: scan|enrich|outline|draft|assemble")
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: scan|enrich|outline|draft|assemble")

	fs.BoolVar(&cfg.SkipScan, "skip-scan", cfg.SkipScan, "Reuse an existing corpus summary instead of scanning the raw tree")
	fs.BoolVar(&cfg.InitPrompts, "init-prompts", cfg.InitPrompts, "Materialize the built-in prompt templates under -prompts and exit")
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

func stagesFrom(stages []string, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}

func dropStage(stages []string, name string) []string {
	out := make([]string, 0, len(stages))
	for _, s := range stages {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

func knownStage(name string) bool {
	for _, s := range pipelineStages {
		if s == name {
			return true
		}
	}
	return false
}
