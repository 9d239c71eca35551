package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryDSN(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestGet_EmptyVault(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background())
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreateGetCount(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	u := &models.User{MasterPasswordHash: "m", BackupKeyHash: "b", KDFSalt: []byte{1, 2, 3}}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGet_NullSalt(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO users(master_password_hash, backup_key_hash) VALUES ('m', 'b')`)
	require.NoError(t, err)

	got, err := NewSQLiteRepository(db).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got.KDFSalt)
}

func TestUpdateKDFSalt(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO users(master_password_hash, backup_key_hash) VALUES ('m', 'b')`)
	require.NoError(t, err)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, r.UpdateKDFSalt(ctx, u.ID, []byte("0123456789abcdef")))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), got.KDFSalt)
	assert.Equal(t, "m", got.MasterPasswordHash)

	require.ErrorIs(t, r.UpdateKDFSalt(ctx, 99, []byte("x")), common.ErrorNotFound)
}

func TestUpdateHashes(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	u := &models.User{MasterPasswordHash: "m", BackupKeyHash: "b"}
	require.NoError(t, r.Create(ctx, u))

	require.NoError(t, r.UpdateMasterPasswordHash(ctx, u.ID, "m2"))
	require.NoError(t, r.UpdateBackupKeyHash(ctx, u.ID, "b2"))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m2", got.MasterPasswordHash)
	assert.Equal(t, "b2", got.BackupKeyHash)

	require.ErrorIs(t, r.UpdateMasterPasswordHash(ctx, 99, "x"), common.ErrorNotFound)
	require.ErrorIs(t, r.UpdateBackupKeyHash(ctx, 99, "x"), common.ErrorNotFound)
}

func TestGet_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT id, master_password_hash`).WillReturnError(errors.New("db down"))

	_, err := r.Get(context.Background())
	require.ErrorContains(t, err, "failed to select user: db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnError(errors.New("db down"))

	_, err := r.Count(context.Background())
	require.ErrorContains(t, err, "failed to count users")
}

func TestCreate_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("locked"))

	err := r.Create(context.Background(), &models.User{MasterPasswordHash: "m", BackupKeyHash: "b"})
	require.ErrorContains(t, err, "failed to insert user: locked")
}

func TestUpdate_RowsAffectedError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE users SET backup_key_hash`).
		WithArgs("b", int64(1)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no result")))

	err := r.UpdateBackupKeyHash(context.Background(), 1, "b")
	require.ErrorContains(t, err, "failed to get rows affected")
}

func TestUpdate_ExecError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE users SET master_password_hash`).
		WithArgs("m", int64(1)).
		WillReturnError(errors.New("readonly"))

	err := r.UpdateMasterPasswordHash(context.Background(), 1, "m")
	require.ErrorContains(t, err, "failed to update user: readonly")
}
