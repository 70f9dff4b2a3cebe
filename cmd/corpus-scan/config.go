package main

import (
	"errors"
	"path/filepath"
)

func (c Config) Validate() error {
	if c.RawDir == "" {
		return errors.New("missing -raw")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		RawDir: filepath.FromSlash("data/raw"),
		OutDir: filepath.FromSlash("data/processed"),
	}
}
