package models

// User is the singleton vault owner row. It holds only one-way digests of
// the master password and the backup key.
type User struct {
	ID int64

	// MasterPasswordHash is an argon2id encoded hash (or a legacy SHA-256
	// hex digest written by older versions).
	MasterPasswordHash string

	// BackupKeyHash has the same format as MasterPasswordHash.
	BackupKeyHash string

	// KDFSalt is the per-vault key-derivation salt. Nil on vaults created
	// before per-vault salts; those use the fixed application salt.
	KDFSalt []byte
}
