package services

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

// BackupKeyManager is the part of AuthService recovery relies on.
type BackupKeyManager interface {
	VerifyBackupKey(ctx context.Context, candidate []byte) (bool, error)
	ResetMasterPassword(ctx context.Context, newPassword []byte) error
	RotateBackupKey(ctx context.Context) (string, error)
}

// RecoveryService resets a forgotten master password using the backup key.
type RecoveryService struct {
	auth BackupKeyManager
	log  logging.Logger
}

func NewRecoveryService(auth BackupKeyManager, log logging.Logger) *RecoveryService {
	return &RecoveryService{auth: auth, log: log.With("service", "recovery")}
}

// Recover checks the backup key, sets newPassword as the master password
// and rotates the backup key, returning the new one. The used key is
// invalid afterwards.
//
// Input is validated before anything is read. A wrong backup key yields
// ErrorInvalidBackupKey and changes nothing. Records are not re-encrypted.
func (s *RecoveryService) Recover(ctx context.Context, backupKey, newPassword, confirmPassword []byte) (string, error) {
	if err := recoveryRules(backupKey, newPassword, confirmPassword); err != nil {
		return "", err
	}

	ok, err := s.auth.VerifyBackupKey(ctx, backupKey)
	if err != nil {
		return "", fmt.Errorf("failed to verify backup key: %w", err)
	}
	if !ok {
		s.log.Warn(ctx, "recovery rejected, invalid backup key")
		return "", common.ErrorInvalidBackupKey
	}

	if err := s.auth.ResetMasterPassword(ctx, newPassword); err != nil {
		return "", err
	}

	key, err := s.auth.RotateBackupKey(ctx)
	if err != nil {
		// The old backup key still verifies, so recovery can be retried.
		s.log.Error(ctx, "master password reset but backup key rotation failed", "error", err)
		return "", fmt.Errorf("master password was reset but the backup key was not rotated: %w", err)
	}

	s.log.Info(ctx, "vault recovered")
	return key, nil
}

func recoveryRules(backupKey, newPassword, confirmPassword []byte) error {
	var rules []string
	if len(backupKey) == 0 {
		rules = append(rules, "backup key is required")
	}
	if len(newPassword) == 0 {
		rules = append(rules, "new password is required")
	}
	if len(confirmPassword) == 0 {
		rules = append(rules, "password confirmation is required")
	}
	if len(newPassword) > 0 && len(confirmPassword) > 0 && !bytes.Equal(newPassword, confirmPassword) {
		rules = append(rules, "passwords do not match")
	}
	if len(newPassword) > 0 && utf8.RuneCount(newPassword) < MinMasterPasswordLength {
		rules = append(rules, fmt.Sprintf("password must be at least %d characters", MinMasterPasswordLength))
	}
	return common.NewValidationError(rules...)
}
