package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
)

// CredentialService stores site passwords encrypted under a key derived
// from the master password. It does not check the master password itself;
// callers verify it with AuthService first. A wrong password encrypts or
// decrypts under the wrong key.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	opts        options
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, opts ...Option) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		log:         log.With("service", "credentials"),
		opts:        newOptions(opts),
	}
}

// Add stores a new record stamped with the current time.
func (s *CredentialService) Add(ctx context.Context, site, plaintext string, masterPassword []byte) (int64, error) {
	return s.AddAt(ctx, site, plaintext, masterPassword, s.opts.now())
}

// AddAt stores a new record with an explicit last-updated time.
func (s *CredentialService) AddAt(ctx context.Context, site, plaintext string, masterPassword []byte, lastUpdated time.Time) (int64, error) {
	var rules []string
	site = strings.TrimSpace(site)
	if site == "" {
		rules = append(rules, "site must not be empty")
	}
	if plaintext == "" {
		rules = append(rules, "password must not be empty")
	}
	if err := common.NewValidationError(rules...); err != nil {
		return 0, err
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.encrypt(ctx, tx, plaintext, masterPassword)
		if err != nil {
			return err
		}
		id, err = s.repomanager.Records(tx).Insert(ctx, &models.Record{
			Site:        site,
			Password:    token,
			LastUpdated: models.FormatTimestamp(lastUpdated),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add record: %w", err)
	}

	s.log.Info(ctx, "record added", "id", id, "site", site)
	return id, nil
}

// List returns every record. A record that fails to decrypt does not fail
// the listing: it comes back with Decrypted=false, its raw ciphertext and
// the decryption error.
func (s *CredentialService) List(ctx context.Context, masterPassword []byte) ([]models.RecordView, error) {
	key, err := s.deriveKey(ctx, s.db, masterPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer key.Wipe()

	all, err := s.repomanager.Records(s.db).GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	now := s.opts.now()
	views := make([]models.RecordView, 0, len(all))
	failed := 0
	for _, rec := range all {
		v := s.view(rec, key, now)
		if !v.Decrypted {
			failed++
		}
		views = append(views, v)
	}

	if failed > 0 {
		s.log.Warn(ctx, "some records could not be decrypted", "failed", failed, "total", len(all))
	}
	return views, nil
}

// Get returns a single record, tagged the same way as List entries.
func (s *CredentialService) Get(ctx context.Context, id int64, masterPassword []byte) (*models.RecordView, error) {
	key, err := s.deriveKey(ctx, s.db, masterPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	defer key.Wipe()

	rec, err := s.repomanager.Records(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}

	v := s.view(*rec, key, s.opts.now())
	return &v, nil
}

// Update replaces a record's password and refreshes its last-updated time.
func (s *CredentialService) Update(ctx context.Context, id int64, plaintext string, masterPassword []byte) error {
	if plaintext == "" {
		return common.NewValidationError("password must not be empty")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.encrypt(ctx, tx, plaintext, masterPassword)
		if err != nil {
			return err
		}
		return s.repomanager.Records(tx).UpdatePassword(ctx, id, token, models.FormatTimestamp(s.opts.now()))
	})
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}

	s.log.Info(ctx, "record updated", "id", id)
	return nil
}

// Delete removes a record.
func (s *CredentialService) Delete(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Records(tx).DeleteByID(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}

	s.log.Info(ctx, "record deleted", "id", id)
	return nil
}

func (s *CredentialService) view(rec models.Record, key cryptox.Key, now time.Time) models.RecordView {
	v := models.RecordView{
		ID:          rec.ID,
		Site:        rec.Site,
		Password:    rec.Password,
		LastUpdated: rec.LastUpdated,
		Status:      models.StatusAt(rec.LastUpdated, now),
	}
	plaintext, err := cryptox.Decrypt(rec.Password, key)
	if err != nil {
		v.Err = err
		return v
	}
	v.Password = plaintext
	v.Decrypted = true
	return v
}

func (s *CredentialService) encrypt(ctx context.Context, db dbx.DBTX, plaintext string, masterPassword []byte) (string, error) {
	key, err := s.deriveKey(ctx, db, masterPassword)
	if err != nil {
		return "", err
	}
	defer key.Wipe()
	return cryptox.Encrypt(plaintext, key)
}

// deriveKey derives the record key using the vault's KDF salt.
func (s *CredentialService) deriveKey(ctx context.Context, db dbx.DBTX, masterPassword []byte) (cryptox.Key, error) {
	user, err := s.repomanager.Users(db).Get(ctx)
	if err != nil {
		return cryptox.Key{}, notInitialized(err)
	}
	return cryptox.DeriveKeyWithSalt(masterPassword, user.KDFSalt)
}
