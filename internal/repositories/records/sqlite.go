package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// last_updated is declared TIMESTAMP; casting keeps the driver from turning
// it into time.Time so the stored text is returned verbatim.
const selectColumns = `id, site, password, COALESCE(CAST(last_updated AS TEXT), '')`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.Record) (int64, error) {
	query := `INSERT INTO passwords (site, password, last_updated) VALUES (?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, rec.Site, rec.Password, rec.LastUpdated)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get record id: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM passwords ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var item models.Record
		if err := rows.Scan(&item.ID, &item.Site, &item.Password, &item.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM passwords WHERE id = ?`

	rec := &models.Record{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Site, &rec.Password, &rec.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id int64, token, lastUpdated string) error {
	query := `UPDATE passwords SET password = ?, last_updated = ? WHERE id = ?`
	return r.execOne(ctx, "update record", query, token, lastUpdated, id)
}

func (r *SQLiteRepository) UpdateCiphertext(ctx context.Context, id int64, token string) error {
	query := `UPDATE passwords SET password = ? WHERE id = ?`
	return r.execOne(ctx, "update record", query, token, id)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM passwords WHERE id = ?`
	return r.execOne(ctx, "delete record", query, id)
}

// execOne runs a statement that must touch exactly one row.
func (r *SQLiteRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch ra {
	case 0:
		return common.ErrorNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
}
