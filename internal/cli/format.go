package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/session"
	"github.com/fatih/color"
)

const maskedPassword = "********"

var (
	okMark   = color.GreenString("✓")
	warnMark = color.YellowString("⚠")
	failMark = color.RedString("✗")
)

func statusText(s models.Status) string {
	switch s {
	case models.StatusActive:
		return color.GreenString(s.Label())
	case models.StatusRecommendedUpdate:
		return color.YellowString(s.Label())
	case models.StatusUrgentUpdate:
		return color.New(color.FgRed, color.Bold).Sprint(s.Label())
	default:
		return color.New(color.Faint).Sprint(s.Label())
	}
}

func passwordText(v models.RecordView, reveal bool) string {
	switch {
	case !v.Decrypted && reveal:
		return v.Password + " " + color.RedString("(undecryptable)")
	case !v.Decrypted:
		return color.RedString("(undecryptable)")
	case reveal:
		return v.Password
	default:
		return maskedPassword
	}
}

// printRecords writes views as an aligned table. Status comes last so its
// colour codes do not disturb the column widths.
func printRecords(w io.Writer, views []models.RecordView, reveal bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSITE\tPASSWORD\tLAST UPDATED\tSTATUS")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.Site, passwordText(v, reveal), v.LastUpdated, statusText(v.Status))
	}
	return tw.Flush()
}

func printRecord(w io.Writer, v models.RecordView) {
	fmt.Fprintf(w, "ID:           %d\n", v.ID)
	fmt.Fprintf(w, "Site:         %s\n", v.Site)
	fmt.Fprintf(w, "Password:     %s\n", passwordText(v, true))
	fmt.Fprintf(w, "Last updated: %s\n", v.LastUpdated)
	fmt.Fprintf(w, "Status:       %s\n", statusText(v.Status))
	if v.Err != nil {
		fmt.Fprintf(w, "%s %s\n", warnMark, "This record was encrypted under a different master password.")
	}
}

// describeError turns service errors into messages for the terminal.
func describeError(err error) string {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Invalid input:\n  - " + strings.Join(verr.Rules, "\n  - ")
	case errors.Is(err, common.ErrorInvalidBackupKey):
		return "Invalid backup key."
	case errors.Is(err, common.ErrorUnauthorized):
		return "Wrong master password."
	case errors.Is(err, common.ErrorNotInitialized):
		return "The vault is not initialized. Run 'vault init' first."
	case errors.Is(err, common.ErrorAlreadyInitialized):
		return "The vault is already initialized."
	case errors.Is(err, common.ErrorNotFound):
		return "No such record."
	case errors.Is(err, session.ErrExpired):
		return "Session expired."
	default:
		return err.Error()
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, failMark+" "+describeError(err))
}
