// Package users stores the vault owner row.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Repository persists the singleton vault owner.
type Repository interface {
	// Get returns the owner row, or common.ErrorNotFound before setup.
	Get(ctx context.Context) (*models.User, error)

	// Count returns the number of owner rows (0 or 1 on a healthy vault).
	Count(ctx context.Context) (int, error)

	// Create inserts the owner row and fills user.ID.
	Create(ctx context.Context, user *models.User) error

	UpdateMasterPasswordHash(ctx context.Context, id int64, hash string) error
	UpdateBackupKeyHash(ctx context.Context, id int64, hash string) error

	// UpdateKDFSalt sets the per-vault key derivation salt.
	UpdateKDFSalt(ctx context.Context, id int64, salt []byte) error
}
