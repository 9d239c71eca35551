// Package config loads runtime configuration for the vault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with --config / -c. Files ending in
//     ".toml" are decoded with BurntSushi/toml, anything else as JSON.
//  3. Command-line flags explicitly set by the user.
//
// Supported flags
//
//	-c, --config string          path to a JSON or TOML config file
//	    --db string              path to the SQLite vault file
//	    --timeout duration       idle timeout of an interactive session
//	    --log-level string       debug, info, warn or error
//	    --backup-key-length int  length of generated backup keys
//
// # File schema
//
// Durations accept strings like "90s" or integer nanoseconds (JSON only):
//
//	{
//	  "db_path": "password_manager.db",
//	  "session_timeout": "1m",
//	  "log_level": "info",
//	  "backup_key_length": 32
//	}
//
// The same keys are used in TOML.
package config
