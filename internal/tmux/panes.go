package tmux

import (
	"fmt"
	"strconv"
	"strings"
)

// PaneInfo describes one pane as reported by list-panes.
type PaneInfo struct {
	ID          string // tmux pane id, "%"-prefixed
	Session     string
	WindowIndex int
	PaneIndex   int
	WindowName  string
	Active      bool
	Current     bool // the supervisor's own pane
	LeaderPID   int  // foreground process group leader
}

// Target returns the canonical session:window.pane address.
func (p PaneInfo) Target() string {
	return fmtTarget(p.Session, p.WindowIndex, p.PaneIndex)
}

const paneFormat = "#{pane_id}" + FieldSeparator +
	"#{session_name}" + FieldSeparator +
	"#{window_index}" + FieldSeparator +
	"#{pane_index}" + FieldSeparator +
	"#{window_name}" + FieldSeparator +
	"#{pane_active}" + FieldSeparator +
	"#{pane_pid}"

// ListPanes enumerates every pane on the server, in tmux order. A missing
// server yields an empty list, not an error.
func (c *Client) ListPanes() ([]PaneInfo, error) {
	out, err := c.Run("list-panes", "-a", "-F", paneFormat)
	if err != nil {
		if isNoServer(err) {
			return nil, nil
		}
		return nil, err
	}
	return c.parsePanes(out), nil
}

// SessionPanes enumerates the panes of a single session.
func (c *Client) SessionPanes(session string) ([]PaneInfo, error) {
	out, err := c.Run("list-panes", "-s", "-t", session, "-F", paneFormat)
	if err != nil {
		return nil, err
	}
	return c.parsePanes(out), nil
}

func (c *Client) parsePanes(out string) []PaneInfo {
	var panes []PaneInfo
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, FieldSeparator)
		if len(parts) < 7 {
			continue
		}
		windowIndex, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		paneIndex, err := strconv.Atoi(parts[3])
		if err != nil {
			continue
		}
		pid, err := strconv.Atoi(parts[6])
		if err != nil {
			continue
		}
		panes = append(panes, PaneInfo{
			ID:          parts[0],
			Session:     parts[1],
			WindowIndex: windowIndex,
			PaneIndex:   paneIndex,
			WindowName:  parts[4],
			Active:      parts[5] == "1",
			Current:     parts[0] == c.currentPane,
			LeaderPID:   pid,
		})
	}
	return panes
}

// FindPane returns the PaneInfo for a pane id.
func (c *Client) FindPane(paneID string) (PaneInfo, error) {
	panes, err := c.ListPanes()
	if err != nil {
		return PaneInfo{}, err
	}
	for _, p := range panes {
		if p.ID == paneID {
			return p, nil
		}
	}
	return PaneInfo{}, fmt.Errorf("%w: %s", ErrPaneNotFound, paneID)
}

// LeaderPID returns the pane's foreground process group leader PID.
func (c *Client) LeaderPID(paneID string) (int, error) {
	out, err := c.Run("display-message", "-p", "-t", paneID, "#{pane_pid}")
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse pane pid %q: %w", out, err)
	}
	return pid, nil
}

func isNoServer(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "no sessions") ||
		strings.Contains(msg, "error connecting to") ||
		strings.Contains(msg, "No such file or directory")
}
