// Command raengine drives the Resilient Action Engine from the command
// line: replay a Recording, drive a standalone conditional-click wait,
// inspect analytics, or manage the healing cache. Grounded on the
// teacher's gasoline-cmd main.go exit-code conventions, restructured
// around spf13/cobra the way five82-spindle/cmd/spindle does.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rhealabs/raengine/internal/errs"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec §6's exit codes: 0 success (handled
// by cobra returning nil), 2 one-or-more steps failed, 3 engine
// configuration error, 4 persistent store unavailable, 130 cancelled.
func exitCodeFor(err error) int {
	if errors.Is(err, errCancelled) {
		return 130
	}
	if errors.Is(err, errStepFailures) {
		return 2
	}
	if kind, ok := errs.KindOf(err); ok {
		switch kind {
		case errs.InvalidConfig:
			return 3
		case errs.PersistenceFailed:
			return 4
		case errs.Cancelled:
			return 130
		}
	}
	return 1
}
