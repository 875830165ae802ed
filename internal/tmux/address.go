package tmux

import (
	"fmt"
	"strconv"
	"strings"
)

// ResolveAddress resolves a human-written pane address to one or more
// panes. Accepted forms:
//
//	%42              pane id
//	sess:1.2         session:window.pane (window and pane default to 0)
//	sess             bare session — all of its panes
//	sess.backend     service reference — panes of the window named "backend"
func (c *Client) ResolveAddress(address string) ([]PaneInfo, error) {
	panes, err := c.ListPanes()
	if err != nil {
		return nil, err
	}
	return ResolvePanes(panes, address)
}

// ResolveUnique resolves an address that must name exactly one pane.
func (c *Client) ResolveUnique(address string) (PaneInfo, error) {
	matches, err := c.ResolveAddress(address)
	if err != nil {
		return PaneInfo{}, err
	}
	if len(matches) > 1 {
		return PaneInfo{}, &AmbiguousError{Address: address, Panes: matches}
	}
	return matches[0], nil
}

// ResolvePanes is the pure resolution core, operating on an enumerated
// pane list. A successful resolution always returns at least one pane.
func ResolvePanes(panes []PaneInfo, address string) ([]PaneInfo, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrPaneNotFound)
	}

	if strings.HasPrefix(address, "%") {
		for _, p := range panes {
			if p.ID == address {
				return []PaneInfo{p}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrPaneNotFound, address)
	}

	if session, window, pane, ok := splitTarget(address); ok {
		for _, p := range panes {
			if p.Session == session && p.WindowIndex == window && p.PaneIndex == pane {
				return []PaneInfo{p}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrPaneNotFound, address)
	}

	// Bare session name.
	var matches []PaneInfo
	for _, p := range panes {
		if p.Session == address {
			matches = append(matches, p)
		}
	}
	if len(matches) > 0 {
		return matches, nil
	}

	// session.service — the service's panes live in the window named
	// after it.
	if idx := strings.LastIndexByte(address, '.'); idx > 0 {
		session, service := address[:idx], address[idx+1:]
		sessionSeen := false
		for _, p := range panes {
			if p.Session != session {
				continue
			}
			sessionSeen = true
			if p.WindowName == service {
				matches = append(matches, p)
			}
		}
		if len(matches) > 0 {
			return matches, nil
		}
		if sessionSeen {
			return nil, fmt.Errorf("%w: no service %q in session %q", ErrServiceNotFound, service, session)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPaneNotFound, address)
}

// splitTarget parses "session:window.pane" with window and pane optional.
func splitTarget(address string) (session string, window, pane int, ok bool) {
	idx := strings.IndexByte(address, ':')
	if idx < 0 {
		return "", 0, 0, false
	}
	session = address[:idx]
	rest := address[idx+1:]
	if session == "" {
		return "", 0, 0, false
	}
	if rest == "" {
		return session, 0, 0, true
	}

	windowPart := rest
	panePart := ""
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		windowPart, panePart = rest[:dot], rest[dot+1:]
	}
	var err error
	if windowPart != "" {
		if window, err = strconv.Atoi(windowPart); err != nil {
			return "", 0, 0, false
		}
	}
	if panePart != "" {
		if pane, err = strconv.Atoi(panePart); err != nil {
			return "", 0, 0, false
		}
	}
	return session, window, pane, true
}
