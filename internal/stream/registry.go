package stream

import (
	"os"
	"path/filepath"
	"sync"
)

// Registry owns the streams of one supervisor. It is a plain value passed
// to every pane — there is no package-level registry — and its lifetime
// matches the supervisor's.
type Registry struct {
	mu      sync.Mutex
	dir     string
	piper   Piper
	streams map[string]*Stream
}

// NewRegistry creates a registry storing stream files under dir.
func NewRegistry(dir string, piper Piper) *Registry {
	return &Registry{dir: dir, piper: piper, streams: make(map[string]*Stream)}
}

// DefaultDir returns the per-user stream directory under the XDG state
// home.
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "termtap", "streams")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "termtap", "streams")
	}
	return filepath.Join(home, ".local", "state", "termtap", "streams")
}

// Get returns the stream for a pane, creating it lazily. The stream is
// not started here; its first command or since-last read starts it.
func (r *Registry) Get(paneID, address string) *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[paneID]; ok {
		return s
	}
	s := New(paneID, address, r.dir, r.piper)
	r.streams[paneID] = s
	return s
}

// Lookup returns the stream for a pane if one exists.
func (r *Registry) Lookup(paneID string) (*Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[paneID]
	return s, ok
}

// Remove stops and forgets a pane's stream; files stay on disk.
func (r *Registry) Remove(paneID string) {
	r.mu.Lock()
	s, ok := r.streams[paneID]
	if ok {
		delete(r.streams, paneID)
	}
	r.mu.Unlock()

	if ok {
		_ = s.Stop()
	}
}

// StopAll stops every active stream. Called on supervisor shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.Unlock()

	for _, s := range streams {
		_ = s.Stop()
	}
}
