package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/session"
	"github.com/spf13/pflag"
)

const shellHelp = `Available commands:
  add [site] [-g[=length]] [--last-updated YYYY-MM-DD]
  list [-r]
  show <id>
  update <id> [-g[=length]]
  delete <id> [-y]
  generate [-l length] [--no-upper] [--no-lower] [--no-digits] [--no-punctuation]
  rotate-key
  change-password
  status
  lock
  help
  exit | quit`

// shell is an interactive loop bound to one unlocked session. When the
// session idles past its timeout the next command asks for the master
// password again.
type shell struct {
	app  *App
	sess *session.Session
}

// Shell unlocks the vault and runs the interactive loop until exit, quit
// or end of input.
func (a *App) Shell(ctx context.Context) error {
	sh := &shell{app: a}
	if err := sh.unlock(ctx); err != nil {
		return err
	}
	defer func() { sh.sess.Close() }()

	fmt.Fprintln(a.out, "Vault unlocked (type 'help' for commands)")
	for {
		fmt.Fprint(a.out, "vault> ")
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if sh.exec(ctx, line) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(a.out)
			return nil
		}
	}
}

func (sh *shell) unlock(ctx context.Context) error {
	master, err := sh.app.Unlock(ctx)
	if err != nil {
		return err
	}
	sh.replaceSession(master)
	return nil
}

// replaceSession starts a new session for master and wipes master.
func (sh *shell) replaceSession(master []byte) {
	if sh.sess != nil {
		sh.sess.Close()
	}
	sh.sess = session.New(master, sh.app.cfg.SessionTimeout, sh.app.sessionOpts...)
	common.WipeByteArray(master)
	sh.app.log.Debug(context.Background(), "session started", "session", sh.sess.ID())
}

// masterPassword returns the session's password, re-prompting once the
// session has expired.
func (sh *shell) masterPassword(ctx context.Context) ([]byte, error) {
	master, err := sh.sess.MasterPassword()
	if !errors.Is(err, session.ErrExpired) {
		return master, err
	}
	sh.app.log.Debug(ctx, "session expired", "session", sh.sess.ID())
	fmt.Fprintln(sh.app.out, warnMark+" Session expired, unlock the vault again.")
	if err := sh.unlock(ctx); err != nil {
		return nil, err
	}
	return sh.sess.MasterPassword()
}

// status prints the idle time left before the session locks. It does not
// count as activity.
func (sh *shell) status() {
	left := sh.sess.Remaining()
	if left <= 0 {
		fmt.Fprintln(sh.app.out, "Vault is locked.")
		return
	}
	fmt.Fprintf(sh.app.out, "Vault is unlocked, locks after %s of inactivity.\n", left.Round(time.Second))
}

// exec runs one input line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		fmt.Fprintln(sh.app.out, "Bye!")
		return true
	case "help":
		fmt.Fprintln(sh.app.out, shellHelp)
		return false
	case "status":
		sh.status()
		return false
	case "lock":
		sh.sess.Close()
		fmt.Fprintln(sh.app.out, "Vault locked.")
		return false
	case "generate":
		sh.report(sh.generate(args))
		return false
	case "add", "list", "l", "show", "update", "delete", "rotate-key", "change-password":
	default:
		fmt.Fprintln(sh.app.out, "Unknown command:", cmd)
		return false
	}

	master, err := sh.masterPassword(ctx)
	if err != nil {
		sh.report(err)
		return false
	}
	defer common.WipeByteArray(master)

	sh.report(sh.dispatch(ctx, master, cmd, args))
	return false
}

func (sh *shell) dispatch(ctx context.Context, master []byte, cmd string, args []string) error {
	a := sh.app
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(a.out)

	switch cmd {
	case "add":
		var o AddOptions
		bindAddFlags(fs, &o)
		if err := fs.Parse(args); err != nil {
			return err
		}
		o.Site = strings.Join(fs.Args(), " ")
		return a.Add(ctx, master, o)

	case "list", "l":
		var reveal bool
		bindRevealFlag(fs, &reveal)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.List(ctx, master, reveal)

	case "show":
		id, err := parseIDArg(fs, args)
		if err != nil {
			return err
		}
		return a.Show(ctx, master, id)

	case "update":
		var generate int
		bindGenerateLength(fs, &generate)
		id, err := parseIDArg(fs, args)
		if err != nil {
			return err
		}
		return a.Update(ctx, master, id, generate)

	case "delete":
		var yes bool
		bindYesFlag(fs, &yes)
		id, err := parseIDArg(fs, args)
		if err != nil {
			return err
		}
		return a.Delete(ctx, id, yes)

	case "rotate-key":
		return a.RotateKey(ctx)

	case "change-password":
		newMaster, err := a.ChangePassword(ctx, master)
		if err != nil {
			return err
		}
		sh.replaceSession(newMaster)
		return nil
	}
	return nil
}

func (sh *shell) generate(args []string) error {
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	fs.SetOutput(sh.app.out)
	var o GenerateOptions
	bindGenerateFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return Generate(sh.app.out, o)
}

func (sh *shell) report(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	printError(sh.app.out, err)
}

// parseIDArg parses flags from args and expects exactly one record id.
func parseIDArg(fs *pflag.FlagSet, args []string) (int64, error) {
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() != 1 {
		return 0, common.NewValidationError(fmt.Sprintf("%s expects exactly one record id", fs.Name()))
	}
	return parseID(fs.Arg(0))
}
