package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

const defaultGenerateLength = 16

// AddOptions are the inputs of the add command.
type AddOptions struct {
	Site string
	// Generate, when positive, stores a random password of that length
	// instead of prompting for one.
	Generate int
	// LastUpdated backdates the record (YYYY-MM-DD or YYYY-MM-DD HH:MM:SS).
	LastUpdated string
}

// GenerateOptions are the inputs of the generate command.
type GenerateOptions struct {
	Length        int
	NoUpper       bool
	NoLower       bool
	NoDigits      bool
	NoPunctuation bool
}

func (o GenerateOptions) Classes() cryptox.CharClasses {
	return cryptox.CharClasses{
		Upper:       !o.NoUpper,
		Lower:       !o.NoLower,
		Digits:      !o.NoDigits,
		Punctuation: !o.NoPunctuation,
	}
}

func bindGenerateLength(fs *pflag.FlagSet, dst *int) {
	fs.IntVarP(dst, "generate", "g", 0, "store a generated password of this length instead of prompting")
	fs.Lookup("generate").NoOptDefVal = strconv.Itoa(defaultGenerateLength)
}

func bindAddFlags(fs *pflag.FlagSet, o *AddOptions) {
	bindGenerateLength(fs, &o.Generate)
	fs.StringVar(&o.LastUpdated, "last-updated", "", "backdate the record (YYYY-MM-DD)")
}

func bindRevealFlag(fs *pflag.FlagSet, dst *bool) {
	fs.BoolVarP(dst, "reveal", "r", false, "show passwords in clear text")
}

func bindYesFlag(fs *pflag.FlagSet, dst *bool) {
	fs.BoolVarP(dst, "yes", "y", false, "do not ask for confirmation")
}

func bindGenerateFlags(fs *pflag.FlagSet, o *GenerateOptions) {
	fs.IntVarP(&o.Length, "length", "l", defaultGenerateLength, "password length")
	fs.BoolVar(&o.NoUpper, "no-upper", false, "exclude uppercase letters")
	fs.BoolVar(&o.NoLower, "no-lower", false, "exclude lowercase letters")
	fs.BoolVar(&o.NoDigits, "no-digits", false, "exclude digits")
	fs.BoolVar(&o.NoPunctuation, "no-punctuation", false, "exclude punctuation")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError(fmt.Sprintf("%q is not a valid record id", s))
	}
	return id, nil
}

func parseLastUpdated(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", models.TimestampLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.NewValidationError(fmt.Sprintf("last updated %q must be YYYY-MM-DD", s))
}

func (a *App) requireInitialized(ctx context.Context) error {
	state, err := a.auth.State(ctx)
	if err != nil {
		return err
	}
	if state != services.StateInitialized {
		return common.ErrorNotInitialized
	}
	return nil
}

// Unlock prompts for the master password and verifies it. The caller owns
// the returned slice and should wipe it.
func (a *App) Unlock(ctx context.Context) ([]byte, error) {
	if err := a.requireInitialized(ctx); err != nil {
		return nil, err
	}
	pw, err := a.readSecret("Master password: ")
	if err != nil {
		return nil, err
	}
	ok, err := a.auth.VerifyMasterPassword(ctx, pw)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	if !ok {
		common.WipeByteArray(pw)
		return nil, common.ErrorUnauthorized
	}
	return pw, nil
}

// readNewPassword prompts for a new master password twice.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	pw, err := a.readSecret(prompt)
	if err != nil {
		return nil, err
	}
	confirm, err := a.readSecret("Confirm: ")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, common.NewValidationError("passwords do not match")
	}
	return pw, nil
}

func (a *App) printBackupKey(key string) {
	fmt.Fprintln(a.out, "Your backup key is:")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "  "+color.New(color.FgYellow, color.Bold).Sprint(key))
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, warnMark+" Store it somewhere safe. It is shown only once and is the only way to reset a forgotten master password.")
}

// Init creates the vault owner and prints the generated backup key.
func (a *App) Init(ctx context.Context) error {
	state, err := a.auth.State(ctx)
	if err != nil {
		return err
	}
	if state == services.StateInitialized {
		return common.ErrorAlreadyInitialized
	}

	pw, err := a.readNewPassword("New master password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	key, err := cryptox.GenerateBackupKey(a.cfg.BackupKeyLength)
	if err != nil {
		return err
	}
	if err := a.auth.Setup(ctx, pw, []byte(key)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, okMark+" Vault initialized.")
	a.printBackupKey(key)
	return nil
}

// newRecordPassword returns a generated password when generate is positive
// and prompts for one otherwise.
func (a *App) newRecordPassword(generate int) (string, bool, error) {
	if generate > 0 {
		pw, err := cryptox.GeneratePassword(generate, cryptox.AllClasses)
		return pw, true, err
	}
	pw, err := a.readSecret("Password: ")
	if err != nil {
		return "", false, err
	}
	defer common.WipeByteArray(pw)
	return string(pw), false, nil
}

func (a *App) Add(ctx context.Context, master []byte, o AddOptions) error {
	var lastUpdated time.Time
	if o.LastUpdated != "" {
		var err error
		if lastUpdated, err = parseLastUpdated(o.LastUpdated); err != nil {
			return err
		}
	}

	site := o.Site
	if site == "" {
		var err error
		if site, err = a.promptText("Site:"); err != nil {
			return err
		}
	}

	password, generated, err := a.newRecordPassword(o.Generate)
	if err != nil {
		return err
	}

	var id int64
	if lastUpdated.IsZero() {
		id, err = a.creds.Add(ctx, site, password, master)
	} else {
		id, err = a.creds.AddAt(ctx, site, password, master, lastUpdated)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Saved record %d for %s.\n", okMark, id, site)
	if generated {
		fmt.Fprintf(a.out, "Generated password: %s\n", password)
	}
	return nil
}

func (a *App) List(ctx context.Context, master []byte, reveal bool) error {
	views, err := a.creds.List(ctx, master)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(a.out, "No passwords stored yet.")
		return nil
	}
	if err := printRecords(a.out, views, reveal); err != nil {
		return err
	}

	failed := 0
	for _, v := range views {
		if !v.Decrypted {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(a.out, "%s %d record(s) could not be decrypted with this master password.\n", warnMark, failed)
	}
	return nil
}

func (a *App) Show(ctx context.Context, master []byte, id int64) error {
	v, err := a.creds.Get(ctx, id, master)
	if err != nil {
		return err
	}
	printRecord(a.out, *v)
	return nil
}

func (a *App) Update(ctx context.Context, master []byte, id int64, generate int) error {
	password, generated, err := a.newRecordPassword(generate)
	if err != nil {
		return err
	}
	if err := a.creds.Update(ctx, id, password, master); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Updated record %d.\n", okMark, id)
	if generated {
		fmt.Fprintf(a.out, "Generated password: %s\n", password)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, id int64, yes bool) error {
	if !yes {
		ok, err := a.confirm(fmt.Sprintf("Delete record %d?", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}
	if err := a.creds.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Deleted record %d.\n", okMark, id)
	return nil
}

// Recover resets the master password with the backup key.
func (a *App) Recover(ctx context.Context) error {
	backupKey, err := a.readSecret("Backup key: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(backupKey)

	pw, err := a.readSecret("New master password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := a.readSecret("Confirm: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	key, err := a.recovery.Recover(ctx, backupKey, pw, confirm)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, okMark+" Master password reset.")
	fmt.Fprintln(a.out, warnMark+" Passwords saved under the old master password cannot be decrypted with the new one.")
	a.printBackupKey(key)
	return nil
}

// RotateKey issues a new backup key. Callers unlock the vault first.
func (a *App) RotateKey(ctx context.Context) error {
	key, err := a.auth.RotateBackupKey(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, okMark+" Backup key rotated. The previous key no longer works.")
	a.printBackupKey(key)
	return nil
}

// ChangePassword re-encrypts the vault under a new master password and
// returns it. The caller owns the returned slice.
func (a *App) ChangePassword(ctx context.Context, oldPassword []byte) ([]byte, error) {
	pw, err := a.readNewPassword("New master password: ")
	if err != nil {
		return nil, err
	}
	n, err := a.auth.ChangeMasterPassword(ctx, oldPassword, pw)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	fmt.Fprintf(a.out, "%s Master password changed, %d record(s) re-encrypted.\n", okMark, n)
	return pw, nil
}

// Generate prints a random password.
func Generate(w io.Writer, o GenerateOptions) error {
	pw, err := cryptox.GeneratePassword(o.Length, o.Classes())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, pw)
	return err
}
