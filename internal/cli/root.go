package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/services"
	"github.com/dmitrijs2005/gophvault/internal/storage"
	"github.com/spf13/cobra"
)

// OpenFunc builds an App over an opened vault and returns a function that
// releases it.
type OpenFunc func(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, func() error, error)

// Options wires the command tree to its environment.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Open defaults to OpenVault.
	Open OpenFunc
}

// OpenVault opens the SQLite vault at cfg.DBPath and wires the services.
func OpenVault(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, func() error, error) {
	path, err := filex.EnsureParentDir(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, storage.FileDSN(path))
	if err != nil {
		return nil, nil, err
	}
	log.Debug(ctx, "vault opened", "path", path)

	rm := repomanager.NewSQLiteRepositoryManager()
	auth := services.NewAuthService(db, rm, cfg, log)
	creds := services.NewCredentialService(db, rm, log)
	recovery := services.NewRecoveryService(auth, log)

	return NewApp(cfg, log, auth, creds, recovery, in, out), db.Close, nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCmd(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(opts.Err, err)
		return 1
	}
	return 0
}

type rootState struct {
	opts Options
	cfg  *config.Config
	log  logging.Logger
}

// withApp opens the vault for the duration of one command.
func (s *rootState) withApp(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, closeFn, err := s.opts.Open(ctx, s.cfg, s.log, s.opts.In, s.opts.Out)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeFn(); err != nil {
				s.log.Warn(ctx, "failed to close vault", "error", err)
			}
		}()
		return fn(ctx, app, args)
	}
}

// withMaster is withApp for commands that need the unlocked master password.
func (s *rootState) withMaster(fn func(ctx context.Context, a *App, master []byte, args []string) error) func(*cobra.Command, []string) error {
	return s.withApp(func(ctx context.Context, a *App, args []string) error {
		master, err := a.Unlock(ctx)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(master)
		return fn(ctx, a, master, args)
	})
}

// NewRootCmd builds the vault command tree.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Open == nil {
		opts.Open = OpenVault
	}
	s := &rootState{opts: opts}

	root := &cobra.Command{
		Use:   "vault",
		Short: "A local, encrypted password manager",
		Long: `vault keeps site passwords in a local SQLite file, encrypted with a key
derived from your master password. A backup key issued at setup lets you
reset a forgotten master password.

Start with 'vault init', then use 'vault shell' for an interactive session
or the individual commands for one-off operations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			s.cfg = cfg
			s.log = logging.New(opts.Err, level)
			return nil
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newInitCmd(s),
		newAddCmd(s),
		newListCmd(s),
		newShowCmd(s),
		newUpdateCmd(s),
		newDeleteCmd(s),
		newRecoverCmd(s),
		newRotateKeyCmd(s),
		newChangePasswordCmd(s),
		newGenerateCmd(),
		newShellCmd(s),
	)
	return root
}

func newInitCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault and its master password",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Init(ctx)
		}),
	}
}

func newAddCmd(s *rootState) *cobra.Command {
	var o AddOptions
	cmd := &cobra.Command{
		Use:   "add [site]",
		Short: "Store a password for a site",
		Example: `  vault add example.com
  vault add example.com -g=24
  vault add legacy.example --last-updated 2023-05-01`,
		Args: cobra.MaximumNArgs(1),
		RunE: s.withMaster(func(ctx context.Context, a *App, master []byte, args []string) error {
			if len(args) == 1 {
				o.Site = args[0]
			}
			return a.Add(ctx, master, o)
		}),
	}
	bindAddFlags(cmd.Flags(), &o)
	return cmd
}

func newListCmd(s *rootState) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored passwords with their update status",
		Args:    cobra.NoArgs,
		RunE: s.withMaster(func(ctx context.Context, a *App, master []byte, _ []string) error {
			return a.List(ctx, master, reveal)
		}),
	}
	bindRevealFlag(cmd.Flags(), &reveal)
	return cmd
}

func newShowCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored password",
		Args:  cobra.ExactArgs(1),
		RunE: s.withMaster(func(ctx context.Context, a *App, master []byte, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.Show(ctx, master, id)
		}),
	}
}

func newUpdateCmd(s *rootState) *cobra.Command {
	var generate int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a stored password",
		Args:  cobra.ExactArgs(1),
		RunE: s.withMaster(func(ctx context.Context, a *App, master []byte, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.Update(ctx, master, id, generate)
		}),
	}
	bindGenerateLength(cmd.Flags(), &generate)
	return cmd
}

func newDeleteCmd(s *rootState) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored password",
		Args:    cobra.ExactArgs(1),
		RunE: s.withMaster(func(ctx context.Context, a *App, _ []byte, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.Delete(ctx, id, yes)
		}),
	}
	bindYesFlag(cmd.Flags(), &yes)
	return cmd
}

func newRecoverCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Reset a forgotten master password with the backup key",
		Long: `Reset a forgotten master password with the backup key.

The backup key is replaced by a new one. Passwords stored under the old
master password stay encrypted with it and cannot be read afterwards.`,
		Args: cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Recover(ctx)
		}),
	}
}

func newRotateKeyCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-key",
		Short: "Issue a new backup key",
		Args:  cobra.NoArgs,
		RunE: s.withMaster(func(ctx context.Context, a *App, _ []byte, _ []string) error {
			return a.RotateKey(ctx)
		}),
	}
}

func newChangePasswordCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the master password and re-encrypt stored passwords",
		Args:  cobra.NoArgs,
		RunE: s.withMaster(func(ctx context.Context, a *App, master []byte, _ []string) error {
			pw, err := a.ChangePassword(ctx, master)
			if err != nil {
				return err
			}
			common.WipeByteArray(pw)
			return nil
		}),
	}
}

func newGenerateCmd() *cobra.Command {
	var o GenerateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Generate(cmd.OutOrStdout(), o)
		},
	}
	bindGenerateFlags(cmd.Flags(), &o)
	return cmd
}

func newShellCmd(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: fmt.Sprintf(`Start an interactive session.

The master password is kept in memory until the session has been idle for
the configured timeout (--timeout), after which it is asked for again.

%s`, shellHelp),
		Args: cobra.NoArgs,
		RunE: s.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Shell(ctx)
		}),
	}
}
