// Package services holds the vault's business logic: owner authentication
// and backup-key recovery (AuthService, RecoveryService) and encrypted
// credential storage (CredentialService). Services are stateless; every
// operation that needs the encryption key takes the master password.
package services
