package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runResult struct {
	code int
	out  string
	err  string
}

func run(t *testing.T, input string, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, Options{
		In:  strings.NewReader(input),
		Out: &out,
		Err: &errOut,
	})
	return runResult{code: code, out: out.String(), err: errOut.String()}
}

var backupKeyRe = regexp.MustCompile(`(?m)^\s+([A-Za-z0-9]{16,})\s*$`)

func extractBackupKey(t *testing.T, out string) string {
	t.Helper()
	m := backupKeyRe.FindStringSubmatch(out)
	require.NotNil(t, m, "no backup key in output:\n%s", out)
	return m[1]
}

func TestExecute_EndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vault.db")

	r := run(t, lines("first password", "first password"), "--db", db, "init")
	require.Equal(t, 0, r.code, r.err)
	backupKey := extractBackupKey(t, r.out)
	assert.Len(t, backupKey, 32)

	r = run(t, lines("first password"), "--db", db, "init")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "already initialized")

	r = run(t, lines("first password", "hunter2"), "--db", db, "add", "example.com")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "Saved record 1 for example.com.")

	r = run(t, lines("first password"), "--db", db, "add", "old.example", "-g=12", "--last-updated", "2020-01-01")
	require.Equal(t, 0, r.code, r.err)

	r = run(t, lines("first password"), "--db", db, "list", "--reveal")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "hunter2")
	assert.Contains(t, r.out, "Very Important to Update")

	r = run(t, lines("wrong password"), "--db", db, "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "Wrong master password.")

	r = run(t, lines("first password", "changed"), "--db", db, "update", "1")
	require.Equal(t, 0, r.code, r.err)

	r = run(t, lines("first password"), "--db", db, "show", "1")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "Password:     changed")

	r = run(t, lines(backupKey, "second password", "second password"), "--db", db, "recover")
	require.Equal(t, 0, r.code, r.err)
	newKey := extractBackupKey(t, r.out)
	assert.NotEqual(t, backupKey, newKey)

	r = run(t, lines(backupKey, "third password", "third password"), "--db", db, "recover")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "Invalid backup key.")

	r = run(t, lines("second password"), "--db", db, "list", "-r")
	require.Equal(t, 0, r.code, r.err)
	assert.NotContains(t, r.out, "changed")
	assert.Contains(t, r.out, "2 record(s) could not be decrypted")

	r = run(t, lines("second password"), "--db", db, "delete", "1", "--yes")
	require.Equal(t, 0, r.code, r.err)

	r = run(t, lines("second password"), "--db", db, "delete", "1", "--yes")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "No such record.")
}

func TestExecute_ChangePasswordKeepsRecordsReadable(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vault.db")

	require.Equal(t, 0, run(t, lines("first password", "first password"), "--db", db, "init").code)
	require.Equal(t, 0, run(t, lines("first password", "hunter2"), "--db", db, "add", "example.com").code)

	r := run(t, lines("first password", "second password", "second password"), "--db", db, "change-password")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "1 record(s) re-encrypted")

	r = run(t, lines("second password"), "--db", db, "list", "-r")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "hunter2")
}

func TestExecute_RotateKey(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vault.db")

	r := run(t, lines("first password", "first password"), "--db", db, "--backup-key-length", "20", "init")
	require.Equal(t, 0, r.code, r.err)
	assert.Len(t, extractBackupKey(t, r.out), 20)

	r = run(t, lines("first password"), "--db", db, "rotate-key")
	require.Equal(t, 0, r.code, r.err)
	assert.Len(t, extractBackupKey(t, r.out), 32)
}

func TestExecute_Shell(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vault.db")
	require.Equal(t, 0, run(t, lines("first password", "first password"), "--db", db, "init").code)

	r := run(t, lines("first password", "add example.com -g=10", "list", "exit"), "--db", db, "shell")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "Saved record 1 for example.com.")
	assert.Contains(t, r.out, "Bye!")
}

func TestExecute_NotInitialized(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vault.db")

	r := run(t, lines("whatever"), "--db", db, "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "vault init")
}

func TestExecute_CreatesVaultDirectory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "dir", "vault.db")

	r := run(t, lines("first password", "first password"), "--db", db, "init")
	require.Equal(t, 0, r.code, r.err)

	_, err := os.Stat(db)
	assert.NoError(t, err)
}

func TestExecute_Generate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "never-created.db")

	r := run(t, "", "--db", db, "generate", "-l", "12", "--no-punctuation")
	require.Equal(t, 0, r.code, r.err)
	assert.Regexp(t, `^[A-Za-z0-9]{12}\n$`, r.out)

	_, err := os.Stat(db)
	assert.True(t, os.IsNotExist(err), "generate must not open the vault")
}

func TestExecute_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "vault.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path = \""+filepath.ToSlash(db)+"\"\n"), 0o600))

	r := run(t, lines("first password", "first password"), "--config", cfgPath, "init")
	require.Equal(t, 0, r.code, r.err)

	_, err := os.Stat(db)
	assert.NoError(t, err)
}

func TestExecute_BadFlags(t *testing.T) {
	r := run(t, "", "--timeout=-1s", "generate")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "session timeout must be positive")

	r = run(t, "", "--log-level", "loud", "generate")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "unknown log level")

	r = run(t, "", "show")
	assert.Equal(t, 1, r.code)
}
