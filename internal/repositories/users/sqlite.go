package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// SQLiteRepository implements Repository on top of a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.User, error) {
	query := `SELECT id, master_password_hash, backup_key_hash, kdf_salt FROM users ORDER BY id LIMIT 1`

	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query).Scan(&u.ID, &u.MasterPasswordHash, &u.BackupKeyHash, &u.KDFSalt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (master_password_hash, backup_key_hash, kdf_salt) VALUES (?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, user.MasterPasswordHash, user.BackupKeyHash, user.KDFSalt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *SQLiteRepository) UpdateMasterPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.updateColumn(ctx, `UPDATE users SET master_password_hash = ? WHERE id = ?`, id, hash)
}

func (r *SQLiteRepository) UpdateBackupKeyHash(ctx context.Context, id int64, hash string) error {
	return r.updateColumn(ctx, `UPDATE users SET backup_key_hash = ? WHERE id = ?`, id, hash)
}

func (r *SQLiteRepository) UpdateKDFSalt(ctx context.Context, id int64, salt []byte) error {
	return r.updateColumn(ctx, `UPDATE users SET kdf_salt = ? WHERE id = ?`, id, salt)
}

func (r *SQLiteRepository) updateColumn(ctx context.Context, query string, id int64, value any) error {
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
