package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newShellApp(input string) (*testApp, *fakeClock) {
	a := newTestApp(input)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a.sessionOpts = []session.Option{session.WithClock(clock.Now)}
	return a, clock
}

func TestShell_BasicFlow(t *testing.T) {
	a, _ := newShellApp(lines(
		"master-pw",
		"help",
		"add example.com",
		"hunter2",
		"list -r",
		"show 1",
		"bogus",
		"exit",
		"list",
	))

	require.NoError(t, a.Shell(context.Background()))

	out := a.out.String()
	assert.Contains(t, out, "Vault unlocked")
	assert.Contains(t, out, "Available commands:")
	assert.Contains(t, out, "Saved record 1 for example.com.")
	assert.Contains(t, out, "hunter2")
	assert.Contains(t, out, "Unknown command: bogus")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, 1, a.auth.verifyCalls, "an active session must not prompt again")
	assert.Equal(t, 1, strings.Count(out, "ID:           1"), "commands after exit must not run")
}

func TestShell_WrongPasswordAtStart(t *testing.T) {
	a, _ := newShellApp(lines("wrong", "list"))

	err := a.Shell(context.Background())
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, a.creds.lastMaster)
}

func TestShell_EndOfInput(t *testing.T) {
	a, _ := newShellApp("master-pw\nadd x.example -g")

	require.NoError(t, a.Shell(context.Background()))
	require.Len(t, a.creds.records, 1)
	assert.Len(t, a.creds.records[0].Password, defaultGenerateLength)
}

func TestShell_ReprompsAfterIdleTimeout(t *testing.T) {
	a, clock := newShellApp(lines(
		"master-pw",
		"list",
		"list",
		"master-pw",
		"exit",
	))
	a.creds.onCall = func() { clock.Advance(2 * time.Minute) }

	require.NoError(t, a.Shell(context.Background()))

	assert.Contains(t, a.out.String(), "Session expired")
	assert.Equal(t, 2, a.auth.verifyCalls)
	assert.Equal(t, "master-pw", a.creds.lastMaster)
}

func TestShell_FailedReunlockKeepsShellRunning(t *testing.T) {
	a, clock := newShellApp(lines(
		"master-pw",
		"list",
		"list",
		"wrong",
		"list",
		"master-pw",
		"exit",
	))
	a.creds.onCall = func() { clock.Advance(2 * time.Minute) }

	require.NoError(t, a.Shell(context.Background()))

	out := a.out.String()
	assert.Contains(t, out, "Wrong master password.")
	assert.Equal(t, 3, a.auth.verifyCalls)
}

func TestShell_Lock(t *testing.T) {
	a, _ := newShellApp(lines(
		"master-pw",
		"lock",
		"list",
		"master-pw",
		"exit",
	))

	require.NoError(t, a.Shell(context.Background()))
	assert.Contains(t, a.out.String(), "Vault locked.")
	assert.Equal(t, 2, a.auth.verifyCalls)
}

func TestShell_Status(t *testing.T) {
	a, clock := newShellApp(lines(
		"master-pw",
		"status",
		"list",
		"status",
		"lock",
		"status",
		"exit",
	))
	a.creds.onCall = func() { clock.Advance(20 * time.Second) }

	require.NoError(t, a.Shell(context.Background()))

	out := a.out.String()
	assert.Contains(t, out, "locks after 1m0s of inactivity")
	assert.Contains(t, out, "locks after 40s of inactivity")
	assert.Contains(t, out, "Vault is locked.")
	assert.Equal(t, 1, a.auth.verifyCalls, "status must not prompt")
}

func TestShell_ChangePasswordReplacesSession(t *testing.T) {
	a, _ := newShellApp(lines(
		"master-pw",
		"change-password",
		"next password",
		"next password",
		"list",
		"exit",
	))

	require.NoError(t, a.Shell(context.Background()))
	assert.Equal(t, "master-pw", string(a.auth.changeOld))
	assert.Equal(t, "next password", a.creds.lastMaster)
}

func TestShell_GenerateAndErrors(t *testing.T) {
	a, _ := newShellApp(lines(
		"master-pw",
		"generate -l 6 --no-punctuation",
		"generate -l 2",
		"show",
		"show abc",
		"delete 7 -y",
		"update 1 --bogus",
		"exit",
	))

	require.NoError(t, a.Shell(context.Background()))

	out := a.out.String()
	assert.Contains(t, out, "length must be at least 4")
	assert.Contains(t, out, "show expects exactly one record id")
	assert.Contains(t, out, `"abc" is not a valid record id`)
	assert.Contains(t, out, "No such record.")
	assert.Contains(t, out, "unknown flag: --bogus")
}

func TestShell_RotateKey(t *testing.T) {
	a, _ := newShellApp(lines("master-pw", "rotate-key", "exit"))
	a.auth.rotateKey = "ROTATEDKEY123456"

	require.NoError(t, a.Shell(context.Background()))
	assert.Contains(t, a.out.String(), "ROTATEDKEY123456")
}
