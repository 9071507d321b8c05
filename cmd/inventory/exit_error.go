// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/inventory"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/pkg/types"
)

// ExitError carries the process exit code out of a RunE handler.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// resolutionExit is the result of a pass whose numbered report has already
// been written to stderr.
func resolutionExit(problems *inventory.ResolutionError) *ExitError {
	return &ExitError{Code: types.ExitResolution, Err: problems}
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// errorHandler prints a failed command's error with its suggestions. The
// first line is styled; suggestions and the verbose cause chain follow as
// plain text.
func errorHandler(app *App) fang.ErrorHandler {
	return func(w io.Writer, _ fang.Styles, err error) {
		writeError(w, err, app.flags.verbose)
	}
}

func writeError(w io.Writer, err error, verbose bool) {
	msg := issue.Describe(err, verbose)

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == types.ExitResolution {
		msg = exitErr.Error()
	}

	head, rest, _ := strings.Cut(msg, "\n")
	fmt.Fprintf(w, "%s %s\n", errorIcon, ErrorStyle.Render(head))
	if rest != "" {
		fmt.Fprintln(w, rest)
	}
}
