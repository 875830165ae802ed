package tmux

import "fmt"

// CaptureVisible returns the pane's currently visible content.
func (c *Client) CaptureVisible(paneID string) (string, error) {
	return c.Run("capture-pane", "-p", "-t", paneID)
}

// CaptureAll returns the pane's full scrollback plus visible content.
func (c *Client) CaptureAll(paneID string) (string, error) {
	return c.Run("capture-pane", "-p", "-t", paneID, "-S", "-")
}

// CaptureLastN returns the last n lines of the pane.
func (c *Client) CaptureLastN(paneID string, n int) (string, error) {
	return c.Run("capture-pane", "-p", "-t", paneID, "-S", fmt.Sprintf("-%d", n))
}
