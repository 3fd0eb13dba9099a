package cmd

import (
	"fmt"
	"os"
	"strings"

	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

// HandleError prints a user-facing message for err and returns the
// process exit code the caller should use.
func HandleError(err error) int {
	if err == nil {
		return 0
	}

	logger.GetGlobalLogger().WithError(err).Error("command failed")

	if rerr, ok := rerrors.As(err); ok {
		return handleTaggedError(rerr)
	}
	return handleGenericError(err)
}

func handleTaggedError(err *rerrors.Error) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintln(os.Stderr, "\nContext:")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}
	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n", categoryHelp(err.Kind))

	if verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}
	return err.ExitCode()
}

func handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintln(os.Stderr, "Error: file not found")
		fmt.Fprintln(os.Stderr, "Suggestion: check that the path is correct and the file exists")
		return 2
	}
	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintln(os.Stderr, "Error: permission denied")
		fmt.Fprintln(os.Stderr, "Suggestion: check file permissions and database credentials")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !verbose {
		fmt.Fprintln(os.Stderr, "\nRun with --verbose for more detail, or check the logs.")
	}
	return 1
}

func categoryHelp(kind rerrors.Kind) string {
	switch kind {
	case rerrors.KindInvalidPath:
		return `Path error help:
• Gateway and filename components must match ^[A-Za-z0-9][A-Za-z0-9._-]*$
• No "..", "/", or "\" is permitted in any path component`
	case rerrors.KindNotFound:
		return `Not-found help:
• Verify the gateway name and that the paired external/internal files are both present
• Check the blob store root configured under blob_root`
	case rerrors.KindReadError:
		return `Read error help:
• Verify the file is a valid .xlsx, .xls, or .csv export for this gateway
• Check for corrupted uploads or an unexpected sheet layout`
	case rerrors.KindColumnValidation:
		return `Column validation help:
• Check the gateway's column_mapping and required_columns configuration
• Confirm the header row hasn't shifted in a new export format`
	case rerrors.KindReconciliationError:
		return `Reconciliation error help:
• Check for a missing paired file (external vs. internal) in the blob store
• Look for duplicate reconcilable keys within one partition of the run`
	case rerrors.KindDbOperationError:
		return `Database error help:
• Check database connectivity and credentials
• Check server logs for constraint violations or deadlocks unrelated to duplicate keys`
	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler <command> --help' for command-specific help`
	}
}
