package tmux

import "log/slog"

var pipeLogger = slog.Default().With("component", "tmux.pipe")

// StartPipe begins mirroring a pane's output into path via pipe-pane.
// Starting an already-piped pane is a no-op; re-pointing it at a new path
// replaces the pipe.
func (c *Client) StartPipe(paneID, path string) error {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()

	if current, ok := c.piped[paneID]; ok && current == path {
		return nil
	}
	// pipe-pane runs the command through a shell; quote the path.
	if err := c.RunSilent("pipe-pane", "-t", paneID, "cat >> "+shellQuote(path)); err != nil {
		return err
	}
	c.piped[paneID] = path
	pipeLogger.Debug("pipe started", "pane", paneID, "path", path)
	return nil
}

// StopPipe stops mirroring a pane. Stopping a pane that is not piped is a
// no-op.
func (c *Client) StopPipe(paneID string) error {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()

	if _, ok := c.piped[paneID]; !ok {
		return nil
	}
	if err := c.RunSilent("pipe-pane", "-t", paneID); err != nil {
		return err
	}
	delete(c.piped, paneID)
	pipeLogger.Debug("pipe stopped", "pane", paneID)
	return nil
}
