// Package stream maintains the per-pane output mirror: an append-only
// byte log fed by the multiplexer's pipe facility, plus a JSON sidecar
// tracking command marks and read marks.
package stream

import (
	"time"
)

// DefaultReadMark is the read mark advanced after every completed
// command; ReadSince with no name reads from it.
const DefaultReadMark = "last_read"

// CommandMark brackets one command's output in the stream file.
type CommandMark struct {
	Command string    `json:"command"`
	Start   int64     `json:"start"`
	End     *int64    `json:"end"` // nil until the command completes
	SentAt  time.Time `json:"sent_at"`
}

// Closed reports whether the mark has an end offset.
func (m *CommandMark) Closed() bool { return m.End != nil }

// Metadata is the JSON sidecar persisted next to the stream file.
type Metadata struct {
	PaneID        string                  `json:"pane_id"`
	Address       string                  `json:"address"`
	StreamStarted time.Time               `json:"stream_started"`
	Commands      map[string]*CommandMark `json:"commands"`
	ReadMarks     map[string]int64        `json:"read_marks"`
	LastActivity  time.Time               `json:"last_activity"`
}

func newMetadata(paneID, address string, streamSize int64) *Metadata {
	now := time.Now().UTC()
	return &Metadata{
		PaneID:        paneID,
		Address:       address,
		StreamStarted: now,
		Commands:      make(map[string]*CommandMark),
		// Seed the default read mark at the current size so a mirror
		// surviving a supervisor restart does not replay stale output.
		ReadMarks:    map[string]int64{DefaultReadMark: streamSize},
		LastActivity: now,
	}
}
