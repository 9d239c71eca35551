// Package records stores encrypted credential records.
package records

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Repository describes storage operations for credential records. Password
// fields always carry ciphertext tokens; the repository never sees
// plaintext.
type Repository interface {
	// Insert stores a new record and returns its id.
	Insert(ctx context.Context, rec *models.Record) (int64, error)

	// GetAll returns every record ordered by id.
	GetAll(ctx context.Context) ([]models.Record, error)

	// GetByID returns common.ErrorNotFound when no record has the id.
	GetByID(ctx context.Context, id int64) (*models.Record, error)

	// UpdatePassword replaces the ciphertext and the last_updated timestamp.
	UpdatePassword(ctx context.Context, id int64, token, lastUpdated string) error

	// UpdateCiphertext replaces the ciphertext only, keeping last_updated.
	UpdateCiphertext(ctx context.Context, id int64, token string) error

	DeleteByID(ctx context.Context, id int64) error
}
