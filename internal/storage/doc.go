// Package storage opens the vault's SQLite database and brings its schema
// up to date with the embedded goose migrations.
package storage
