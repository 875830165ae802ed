package tmux

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// PasteThreshold is the command length at or above which SendText routes
// through a paste buffer even without newlines. Per-line send-keys
// amplifies badly on large inputs.
const PasteThreshold = 1000

// guard refuses sends and kills against the supervisor's own pane.
func (c *Client) guard(paneID string) error {
	if c.currentPane != "" && paneID == c.currentPane {
		return fmt.Errorf("%w: %s", ErrCurrentPane, paneID)
	}
	return nil
}

// SendKeys sends literal text to a pane, optionally followed by Enter.
// The -l flag keeps tmux from interpreting the text as key names.
func (c *Client) SendKeys(paneID, text string, enter bool) error {
	if err := c.guard(paneID); err != nil {
		return err
	}
	if text != "" {
		if err := c.RunSilent("send-keys", "-t", paneID, "-l", text); err != nil {
			return err
		}
	}
	if enter {
		return c.RunSilent("send-keys", "-t", paneID, "Enter")
	}
	return nil
}

// SendKey sends a symbolic key name (e.g. "C-c", "Up", "Escape").
func (c *Client) SendKey(paneID, key string) error {
	if err := c.guard(paneID); err != nil {
		return err
	}
	return c.RunSilent("send-keys", "-t", paneID, key)
}

// PasteText delivers text through a named paste buffer: one logical paste
// into the pane instead of a send-keys per line. The buffer name is
// derived from a content hash so retries reuse the same buffer, and the
// buffer is deleted on paste (-d).
func (c *Client) PasteText(paneID, text string, enter bool) error {
	if err := c.guard(paneID); err != nil {
		return err
	}

	buf := bufferName(text)
	if err := c.RunInput([]byte(text), "load-buffer", "-b", buf, "-"); err != nil {
		return err
	}
	if err := c.RunSilent("paste-buffer", "-d", "-b", buf, "-t", paneID); err != nil {
		// Best effort: do not leave the buffer behind.
		_ = c.RunSilent("delete-buffer", "-b", buf)
		return err
	}
	if enter {
		return c.RunSilent("send-keys", "-t", paneID, "Enter")
	}
	return nil
}

// SendText picks the delivery route: paste buffer for multi-line or large
// text, direct send-keys otherwise.
func (c *Client) SendText(paneID, text string, enter bool) error {
	if NeedsPaste(text) {
		return c.PasteText(paneID, text, enter)
	}
	return c.SendKeys(paneID, text, enter)
}

// NeedsPaste reports whether text must take the paste-buffer route.
func NeedsPaste(text string) bool {
	return strings.ContainsRune(text, '\n') || len(text) >= PasteThreshold
}

func bufferName(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "termtap-" + hex.EncodeToString(sum[:4])
}
