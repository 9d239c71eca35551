// Package cryptox holds the vault's cryptographic primitives:
//
//   - DeriveKey / DeriveKeyWithSalt: PBKDF2-HMAC-SHA256 master key derivation.
//   - Encrypt / Decrypt: AES-256-GCM versioned, base64url tokens for records.
//   - HashSecret / VerifySecret: argon2id digests for the master password and
//     the backup key, with acceptance of legacy bare SHA-256 hex digests.
//   - GeneratePassword / GenerateBackupKey: crypto/rand based generators.
//
// All functions are pure and safe for concurrent use. Nothing here caches
// keys; callers derive a key per operation and wipe it afterwards.
package cryptox
