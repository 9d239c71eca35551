package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
)

// VaultState reports whether the owner row exists.
type VaultState int

const (
	StateUninitialized VaultState = iota
	StateInitialized
)

func (s VaultState) String() string {
	if s == StateInitialized {
		return "initialized"
	}
	return "uninitialized"
}

// AuthService manages the owner's master password and backup key.
// Only argon2id digests of either secret are stored.
type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	log             logging.Logger
	backupKeyLength int
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		db:              db,
		repomanager:     m,
		log:             log.With("service", "auth"),
		backupKeyLength: cfg.BackupKeyLength,
	}
}

// State reports whether Setup has run.
func (s *AuthService) State(ctx context.Context) (VaultState, error) {
	n, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return StateUninitialized, fmt.Errorf("failed to read vault state: %w", err)
	}
	if n > 0 {
		return StateInitialized, nil
	}
	return StateUninitialized, nil
}

// Setup creates the owner row. It fails with ErrorAlreadyInitialized if one
// exists, leaving the stored hashes untouched.
func (s *AuthService) Setup(ctx context.Context, masterPassword, backupKey []byte) error {
	rules := masterPasswordRules(masterPassword)
	if len(backupKey) == 0 {
		rules = append(rules, "backup key must not be empty")
	}
	if err := common.NewValidationError(rules...); err != nil {
		return err
	}

	masterHash, err := cryptox.HashSecret(masterPassword)
	if err != nil {
		return err
	}
	backupHash, err := cryptox.HashSecret(backupKey)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return common.ErrorAlreadyInitialized
		}
		return repo.Create(ctx, &models.User{
			MasterPasswordHash: masterHash,
			BackupKeyHash:      backupHash,
			KDFSalt:            cryptox.NewKDFSalt(),
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyInitialized) {
			s.log.Warn(ctx, "setup refused, vault already initialized")
			return err
		}
		return fmt.Errorf("failed to set up vault: %w", err)
	}

	s.log.Info(ctx, "vault initialized")
	return nil
}

// VerifyMasterPassword reports whether candidate matches the stored master
// password. An uninitialized vault verifies nothing.
func (s *AuthService) VerifyMasterPassword(ctx context.Context, candidate []byte) (bool, error) {
	return s.verify(ctx, "master password", candidate,
		func(u *models.User) string { return u.MasterPasswordHash },
		func(ctx context.Context, tx dbx.DBTX, id int64, hash string) error {
			return s.repomanager.Users(tx).UpdateMasterPasswordHash(ctx, id, hash)
		})
}

// VerifyBackupKey reports whether candidate matches the stored backup key.
func (s *AuthService) VerifyBackupKey(ctx context.Context, candidate []byte) (bool, error) {
	return s.verify(ctx, "backup key", candidate,
		func(u *models.User) string { return u.BackupKeyHash },
		func(ctx context.Context, tx dbx.DBTX, id int64, hash string) error {
			return s.repomanager.Users(tx).UpdateBackupKeyHash(ctx, id, hash)
		})
}

func (s *AuthService) verify(
	ctx context.Context,
	what string,
	candidate []byte,
	stored func(*models.User) string,
	store func(ctx context.Context, tx dbx.DBTX, id int64, hash string) error,
) (bool, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s hash: %w", what, err)
	}

	ok, needsRehash, err := cryptox.VerifySecret(stored(user), candidate)
	if err != nil {
		return false, fmt.Errorf("failed to verify %s: %w", what, err)
	}
	if !ok {
		s.log.Info(ctx, "verification failed", "secret", what)
		return false, nil
	}

	if needsRehash {
		// A failed upgrade leaves the old, still valid, hash in place.
		if err := s.rehash(ctx, user.ID, candidate, store); err != nil {
			s.log.Warn(ctx, "failed to upgrade stored hash", "secret", what, "error", err)
		} else {
			s.log.Info(ctx, "upgraded stored hash", "secret", what)
		}
	}
	return true, nil
}

func (s *AuthService) rehash(
	ctx context.Context,
	id int64,
	secret []byte,
	store func(ctx context.Context, tx dbx.DBTX, id int64, hash string) error,
) error {
	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return store(ctx, tx, id, hash)
	})
}

// RotateBackupKey replaces the backup key with a fresh random one and
// returns it. The plaintext is not stored anywhere.
func (s *AuthService) RotateBackupKey(ctx context.Context) (string, error) {
	key, err := cryptox.GenerateBackupKey(s.backupKeyLength)
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashSecret([]byte(key))
	if err != nil {
		return "", err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		user, err := repo.Get(ctx)
		if err != nil {
			return err
		}
		return repo.UpdateBackupKeyHash(ctx, user.ID, hash)
	})
	if err != nil {
		return "", fmt.Errorf("failed to rotate backup key: %w", notInitialized(err))
	}

	s.log.Info(ctx, "backup key rotated")
	return key, nil
}

// ResetMasterPassword overwrites the master password hash without touching
// stored records. Records encrypted under the previous password stay
// encrypted with it and can no longer be decrypted.
func (s *AuthService) ResetMasterPassword(ctx context.Context, newPassword []byte) error {
	if err := common.NewValidationError(masterPasswordRules(newPassword)...); err != nil {
		return err
	}
	hash, err := cryptox.HashSecret(newPassword)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		user, err := repo.Get(ctx)
		if err != nil {
			return err
		}
		return repo.UpdateMasterPasswordHash(ctx, user.ID, hash)
	})
	if err != nil {
		return fmt.Errorf("failed to reset master password: %w", notInitialized(err))
	}

	s.log.Warn(ctx, "master password reset without re-encryption")
	return nil
}

// ChangeMasterPassword replaces the master password and re-encrypts every
// record that decrypts under the old one, all in one transaction. Legacy
// tokens are rewritten in the current format. A vault still on the fixed
// application salt gets its own random salt, unless some record could not
// be decrypted and would be stranded by it. Records that were already
// undecryptable are left as they are. It returns the number of re-encrypted
// records.
func (s *AuthService) ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) (int, error) {
	if err := common.NewValidationError(masterPasswordRules(newPassword)...); err != nil {
		return 0, err
	}

	ok, err := s.VerifyMasterPassword(ctx, oldPassword)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, common.ErrorUnauthorized
	}

	hash, err := cryptox.HashSecret(newPassword)
	if err != nil {
		return 0, err
	}

	var changed, skipped, legacy int
	var saltMigrated bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		records := s.repomanager.Records(tx)

		user, err := users.Get(ctx)
		if err != nil {
			return err
		}

		oldKey, err := cryptox.DeriveKeyWithSalt(oldPassword, user.KDFSalt)
		if err != nil {
			return err
		}
		defer oldKey.Wipe()

		all, err := records.GetAll(ctx)
		if err != nil {
			return err
		}
		type readable struct {
			id        int64
			plaintext string
		}
		var plain []readable
		for _, rec := range all {
			plaintext, err := cryptox.Decrypt(rec.Password, oldKey)
			if err != nil {
				skipped++
				continue
			}
			if cryptox.IsLegacyToken(rec.Password) {
				legacy++
			}
			plain = append(plain, readable{id: rec.ID, plaintext: plaintext})
		}

		salt := user.KDFSalt
		if len(salt) == 0 && skipped == 0 {
			salt = cryptox.NewKDFSalt()
			saltMigrated = true
		}
		newKey, err := cryptox.DeriveKeyWithSalt(newPassword, salt)
		if err != nil {
			return err
		}
		defer newKey.Wipe()

		for _, p := range plain {
			token, err := cryptox.Encrypt(p.plaintext, newKey)
			if err != nil {
				return err
			}
			if err := records.UpdateCiphertext(ctx, p.id, token); err != nil {
				return err
			}
			changed++
		}

		if saltMigrated {
			if err := users.UpdateKDFSalt(ctx, user.ID, salt); err != nil {
				return err
			}
		}
		return users.UpdateMasterPasswordHash(ctx, user.ID, hash)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to change master password: %w", notInitialized(err))
	}

	s.log.Info(ctx, "master password changed",
		"reencrypted", changed, "skipped", skipped, "legacy", legacy, "salt_migrated", saltMigrated)
	return changed, nil
}

func masterPasswordRules(password []byte) []string {
	if utf8.RuneCount(password) < MinMasterPasswordLength {
		return []string{fmt.Sprintf("master password must be at least %d characters", MinMasterPasswordLength)}
	}
	return nil
}

// notInitialized maps a missing owner row to ErrorNotInitialized.
func notInitialized(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotInitialized
	}
	return err
}
