package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/storage"
	"github.com/stretchr/testify/require"
)

const (
	testMaster    = "correct horse battery"
	testBackupKey = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	db       *sql.DB
	clock    *fakeClock
	auth     *AuthService
	creds    *CredentialService
	recovery *RecoveryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryDSN(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	rm := repomanager.NewSQLiteRepositoryManager()
	log := logging.NewNop()

	auth := NewAuthService(db, rm, cfg, log)
	return &testEnv{
		db:       db,
		clock:    clock,
		auth:     auth,
		creds:    NewCredentialService(db, rm, log, WithClock(clock.Now)),
		recovery: NewRecoveryService(auth, log),
	}
}

// newInitializedEnv returns an env whose vault is set up with testMaster
// and testBackupKey.
func newInitializedEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	require.NoError(t, env.auth.Setup(context.Background(), []byte(testMaster), []byte(testBackupKey)))
	return env
}
