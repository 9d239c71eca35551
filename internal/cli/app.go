package cli

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/services"
	"github.com/dmitrijs2005/gophvault/internal/session"
)

// AuthService is the owner-authentication surface the CLI needs.
type AuthService interface {
	State(ctx context.Context) (services.VaultState, error)
	Setup(ctx context.Context, masterPassword, backupKey []byte) error
	VerifyMasterPassword(ctx context.Context, candidate []byte) (bool, error)
	RotateBackupKey(ctx context.Context) (string, error)
	ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) (int, error)
}

// CredentialService is the record storage surface the CLI needs.
type CredentialService interface {
	Add(ctx context.Context, site, plaintext string, masterPassword []byte) (int64, error)
	AddAt(ctx context.Context, site, plaintext string, masterPassword []byte, lastUpdated time.Time) (int64, error)
	List(ctx context.Context, masterPassword []byte) ([]models.RecordView, error)
	Get(ctx context.Context, id int64, masterPassword []byte) (*models.RecordView, error)
	Update(ctx context.Context, id int64, plaintext string, masterPassword []byte) error
	Delete(ctx context.Context, id int64) error
}

type RecoveryService interface {
	Recover(ctx context.Context, backupKey, newPassword, confirmPassword []byte) (string, error)
}

// App runs vault commands against the services, reading input from in and
// writing user-facing output to out.
type App struct {
	cfg      *config.Config
	log      logging.Logger
	auth     AuthService
	creds    CredentialService
	recovery RecoveryService
	in       *bufio.Reader
	out      io.Writer

	// readSecret prompts for a secret without echo when possible.
	readSecret  func(prompt string) ([]byte, error)
	sessionOpts []session.Option
}

func NewApp(cfg *config.Config, log logging.Logger, auth AuthService, creds CredentialService, recovery RecoveryService, in io.Reader, out io.Writer) *App {
	a := &App{
		cfg:      cfg,
		log:      log,
		auth:     auth,
		creds:    creds,
		recovery: recovery,
		in:       bufio.NewReader(in),
		out:      out,
	}
	a.readSecret = a.promptSecret
	return a
}
