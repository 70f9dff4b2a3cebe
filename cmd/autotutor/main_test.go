package main

import (
	"flag"
	"reflect"
	"testing"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("autotutor", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-raw", "corpus/raw",
		"-processed", "corpus/processed",
		"-out", "book",
		"-prompts", "my-prompts",
		"-config", "llm.yaml",
		"-book-name", "Silicon_Primer",
		"-concurrency", "4",
		"-from-stage", "draft",
		"-skip-scan",
		"-verbose",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.RawDir != "corpus/raw" || cfg.ProcessedDir != "corpus/processed" {
		t.Fatalf("dirs got=%q/%q", cfg.RawDir, cfg.ProcessedDir)
	}
	if cfg.BookName != "Silicon_Primer" {
		t.Fatalf("BookName=%q", cfg.BookName)
	}
	if cfg.Concurrency != 4 {
		t.Fatalf("Concurrency=%d", cfg.Concurrency)
	}
	if cfg.FromStage != "draft" || !cfg.SkipScan || !cfg.Verbose {
		t.Fatalf("FromStage=%q SkipScan=%v Verbose=%v", cfg.FromStage, cfg.SkipScan, cfg.Verbose)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("autotutor", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.BookName != "ABACUS_Tutorial" {
		t.Fatalf("BookName=%q", cfg.BookName)
	}
	if cfg.Concurrency != 1 {
		t.Fatalf("Concurrency=%d", cfg.Concurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	base := defaultConfig()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing_processed", mutate: func(c *Config) { c.ProcessedDir = "" }},
		{name: "missing_out", mutate: func(c *Config) { c.OutputDir = "" }},
		{name: "missing_config", mutate: func(c *Config) { c.ConfigPath = "" }},
		{name: "zero_concurrency", mutate: func(c *Config) { c.Concurrency = 0 }},
		{name: "both_stage_selectors", mutate: func(c *Config) { c.OnlyStage = "draft"; c.FromStage = "enrich" }},
		{name: "unknown_only_stage", mutate: func(c *Config) { c.OnlyStage = "polish" }},
		{name: "unknown_from_stage", mutate: func(c *Config) { c.FromStage = "polish" }},
		{name: "skip_scan_only_scan", mutate: func(c *Config) { c.SkipScan = true; c.OnlyStage = "scan" }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStagesFrom(t *testing.T) {
	t.Parallel()

	got := stagesFrom(pipelineStages, "outline")
	want := []string{"outline", "draft", "assemble"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}

	if got := stagesFrom(pipelineStages, "unknown"); !reflect.DeepEqual(got, pipelineStages) {
		t.Fatalf("unknown stage got=%v want all stages", got)
	}
}

func TestDropStage(t *testing.T) {
	t.Parallel()

	got := dropStage(pipelineStages, "scan")
	want := []string{"enrich", "outline", "draft", "assemble"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}
