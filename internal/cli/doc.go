// Package cli implements the vault command line: one-shot cobra commands
// (init, add, list, show, update, delete, recover, rotate-key,
// change-password, generate) and an interactive shell that keeps the vault
// unlocked for an idle-timeout bounded session.
package cli
