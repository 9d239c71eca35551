package config

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	flagConfig          = "config"
	flagDB              = "db"
	flagTimeout         = "timeout"
	flagLogLevel        = "log-level"
	flagBackupKeyLength = "backup-key-length"
)

// RegisterFlags declares the configuration flags on fs. Flag defaults are
// zero values; LoadConfig only applies flags the user actually set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(flagConfig, "c", "", "path to a JSON or TOML config file")
	fs.String(flagDB, "", "path to the vault database file")
	fs.Duration(flagTimeout, 0, "idle timeout of an interactive session")
	fs.String(flagLogLevel, "", "log level: debug, info, warn, error")
	fs.Int(flagBackupKeyLength, 0, "length of generated backup keys")
}

// parseFlags overlays cfg with every flag explicitly set on the command line.
func parseFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	if fs.Changed(flagDB) {
		if cfg.DBPath, err = fs.GetString(flagDB); err != nil {
			return err
		}
	}
	if fs.Changed(flagTimeout) {
		var d time.Duration
		if d, err = fs.GetDuration(flagTimeout); err != nil {
			return err
		}
		cfg.SessionTimeout = d
	}
	if fs.Changed(flagLogLevel) {
		if cfg.LogLevel, err = fs.GetString(flagLogLevel); err != nil {
			return err
		}
	}
	if fs.Changed(flagBackupKeyLength) {
		if cfg.BackupKeyLength, err = fs.GetInt(flagBackupKeyLength); err != nil {
			return err
		}
	}
	return nil
}
