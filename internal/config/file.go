package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Zero values mean
// "not set" and leave the current Config value untouched.
type FileConfig struct {
	DBPath          string         `json:"db_path" toml:"db_path"`
	SessionTimeout  timex.Duration `json:"session_timeout" toml:"session_timeout"`
	LogLevel        string         `json:"log_level" toml:"log_level"`
	BackupKeyLength int            `json:"backup_key_length" toml:"backup_key_length"`
}

// parseFile overlays cfg with values read from path.
func parseFile(cfg *Config, path string) error {
	var fc FileConfig

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return fmt.Errorf("read toml config %s: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.SessionTimeout.Duration != 0 {
		cfg.SessionTimeout = fc.SessionTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.BackupKeyLength != 0 {
		cfg.BackupKeyLength = fc.BackupKeyLength
	}
	return nil
}
