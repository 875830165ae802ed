package stream

// Healthy reports whether the mirror pipe still delivers bytes: the file
// must have grown since the most recent command mark. Before any mark is
// placed there is nothing to compare against and the stream counts as
// healthy.
//
// A pipe-pane subprocess can die while the pane keeps emitting; every
// later slice would then come back empty. The execution engine consults
// this signal before each command and calls Recover on failure.
func (s *Stream) Healthy() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || !s.hasMark {
		return true, nil
	}
	size, err := s.size()
	if err != nil {
		return false, err
	}
	return size > s.lastMarkSize, nil
}

// Recover restarts the mirror pipe (stop, start) and re-opens the given
// command mark at the current file size so subsequent output lands inside
// it. cmdID may be empty when no command is in flight.
func (s *Stream) Recover(cmdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamLogger.Warn("stream unhealthy, restarting pipe", "pane", s.paneID)
	if err := s.stopLocked(); err != nil {
		return err
	}
	if err := s.startLocked(); err != nil {
		return err
	}

	if cmdID == "" {
		return nil
	}
	mark, ok := s.commandLocked(cmdID)
	if !ok {
		return nil
	}
	size, err := s.size()
	if err != nil {
		return err
	}
	mark.Start = size
	mark.End = nil
	s.lastMarkSize = size
	s.hasMark = true
	return s.flushLocked()
}
