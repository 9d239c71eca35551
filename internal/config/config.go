package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/spf13/pflag"
)

// Config holds runtime settings for the vault CLI.
type Config struct {
	DBPath          string
	SessionTimeout  time.Duration
	LogLevel        string
	BackupKeyLength int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "password_manager.db"
	c.SessionTimeout = time.Minute
	c.LogLevel = "warn"
	c.BackupKeyLength = 32
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", c.SessionTimeout)
	}
	if c.BackupKeyLength < cryptox.MinBackupKeyLength {
		return fmt.Errorf("backup key length must be at least %d, got %d", cryptox.MinBackupKeyLength, c.BackupKeyLength)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if --config is set) and explicitly set flags. Later
// sources take precedence over earlier ones. fs must have been prepared
// with RegisterFlags and parsed.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := fs.GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := parseFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
