// Package models defines the vault's persisted rows and read-side views.
package models
