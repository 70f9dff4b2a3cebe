package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/materialsim/autotutor/tutorial"
)

func (c Config) Validate() error {
	if c.ProcessedDir == "" {
		return errors.New("missing -processed")
	}
	if c.OutputDir == "" {
		return errors.New("missing -out")
	}
	if c.ConfigPath == "" && !c.InitPrompts {
		return errors.New("missing -config")
	}
	if c.BookName == "" {
		return errors.New("missing -book-name")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("use only one of -only-stage or -from-stage")
	}
	if c.OnlyStage != "" && !knownStage(c.OnlyStage) {
		return fmt.Errorf("unknown stage %q for -only-stage", c.OnlyStage)
	}
	if c.FromStage != "" && !knownStage(c.FromStage) {
		return fmt.Errorf("unknown stage %q for -from-stage", c.FromStage)
	}
	if c.SkipScan && c.OnlyStage == "scan" {
		return errors.New("-skip-scan contradicts -only-stage scan")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		RawDir:       filepath.FromSlash("data/raw"),
		ProcessedDir: filepath.FromSlash("data/processed"),
		OutputDir:    filepath.FromSlash("output"),
		PromptsDir:   filepath.FromSlash("prompts"),
		ConfigPath:   filepath.FromSlash("config.yaml"),
		BookName:     tutorial.DefaultBookName,
		Concurrency:  1,
	}
}
