package tmux

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for address resolution and the forbidden-pane rule.
var (
	// ErrPaneNotFound means an address resolved to zero panes.
	ErrPaneNotFound = errors.New("pane not found")

	// ErrServiceNotFound means a session.service address matched no window.
	ErrServiceNotFound = errors.New("service not found")

	// ErrCurrentPane means a send or kill targeted the supervisor's own pane.
	ErrCurrentPane = errors.New("operation targets the supervisor's own pane")
)

// MuxError wraps a non-zero tmux exit with the command line and stderr.
type MuxError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *MuxError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("tmux %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
	}
	return fmt.Sprintf("tmux %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *MuxError) Unwrap() error { return e.Err }

// AmbiguousError reports a single-pane operation whose address resolved to
// several panes. The candidates are enumerated for the driver.
type AmbiguousError struct {
	Address string
	Panes   []PaneInfo
}

func (e *AmbiguousError) Error() string {
	addrs := make([]string, len(e.Panes))
	for i, p := range e.Panes {
		addrs[i] = p.Target()
	}
	return fmt.Sprintf("address %q is ambiguous: matches %s", e.Address, strings.Join(addrs, ", "))
}
