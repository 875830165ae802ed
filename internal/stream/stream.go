package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/angelsen/termtap/internal/util"
)

var streamLogger = slog.Default().With("component", "stream")

// ErrUnknownCommand is returned when a command id has no mark.
var ErrUnknownCommand = errors.New("unknown command id")

// ErrUnknownMark is returned when a named read mark does not exist.
var ErrUnknownMark = errors.New("unknown read mark")

// Piper is the slice of the multiplexer adapter the stream needs.
type Piper interface {
	StartPipe(paneID, path string) error
	StopPipe(paneID string) error
}

// Stream mirrors one pane's output to disk. All metadata mutation is
// serialized by the stream mutex and written atomically; cross-process
// writers are not supported.
type Stream struct {
	mu      sync.Mutex
	paneID  string
	address string
	dir     string
	piper   Piper

	meta    *Metadata
	started bool

	// lastMarkSize is the file size recorded at the most recent
	// MarkCommand; the health signal compares against it.
	lastMarkSize int64
	hasMark      bool
}

// New creates a stream for a pane. Nothing touches disk until Start.
func New(paneID, address, dir string, piper Piper) *Stream {
	return &Stream{paneID: paneID, address: address, dir: dir, piper: piper}
}

// StreamPath is the append-only byte mirror.
func (s *Stream) StreamPath() string {
	return filepath.Join(s.dir, util.SanitizeFilename(s.paneID)+".stream")
}

// MetadataPath is the JSON sidecar.
func (s *Stream) MetadataPath() string {
	return filepath.Join(s.dir, util.SanitizeFilename(s.paneID)+".json")
}

// Start ensures the stream file exists, points the multiplexer's pipe at
// it, and initializes metadata. Idempotent. Files surviving a previous
// supervisor are kept but treated as fresh: marks start empty and the
// default read mark seeds at the current file size.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Stream) startLocked() error {
	if s.started {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("stream error: create state dir: %w", err)
	}

	path := s.StreamPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("stream error: create stream file: %w", err)
	}
	f.Close()

	size, err := s.size()
	if err != nil {
		return err
	}

	if err := s.piper.StartPipe(s.paneID, path); err != nil {
		return err
	}

	if s.meta == nil {
		s.meta = newMetadata(s.paneID, s.address, size)
	}
	s.started = true
	if err := s.flushLocked(); err != nil {
		return err
	}
	streamLogger.Debug("stream started", "pane", s.paneID, "path", path, "size", size)
	return nil
}

// Stop stops the pipe and flushes metadata. Files remain on disk.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Stream) stopLocked() error {
	if !s.started {
		return nil
	}
	if err := s.piper.StopPipe(s.paneID); err != nil {
		return err
	}
	s.started = false
	return s.flushLocked()
}

// Started reports whether the pipe is active.
func (s *Stream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// MarkCommand opens a command mark at the current file size.
func (s *Stream) MarkCommand(cmdID, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startLocked(); err != nil {
		return err
	}

	size, err := s.size()
	if err != nil {
		return err
	}
	s.meta.Commands[cmdID] = &CommandMark{
		Command: command,
		Start:   size,
		SentAt:  time.Now().UTC(),
	}
	s.meta.LastActivity = time.Now().UTC()
	s.lastMarkSize = size
	s.hasMark = true
	return s.flushLocked()
}

// MarkCommandEnd closes a command mark at the current file size and
// advances the default read mark. Idempotent.
func (s *Stream) MarkCommandEnd(cmdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark, ok := s.meta.Commands[cmdID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmdID)
	}
	if mark.Closed() {
		return nil
	}

	size, err := s.size()
	if err != nil {
		return err
	}
	mark.End = &size
	s.meta.ReadMarks[DefaultReadMark] = size
	s.meta.LastActivity = time.Now().UTC()
	return s.flushLocked()
}

// MarkRead sets a named read mark to the current file size. An empty name
// selects the default mark.
func (s *Stream) MarkRead(name string) error {
	if name == "" {
		name = DefaultReadMark
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return fmt.Errorf("stream error: not started")
	}

	size, err := s.size()
	if err != nil {
		return err
	}
	s.meta.ReadMarks[name] = size
	return s.flushLocked()
}

// Command returns a copy of the mark for cmdID.
func (s *Stream) Command(cmdID string) (CommandMark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.commandLocked(cmdID)
	if !ok {
		return CommandMark{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmdID)
	}
	return *mark, nil
}

func (s *Stream) commandLocked(cmdID string) (*CommandMark, bool) {
	if s.meta == nil {
		return nil, false
	}
	mark, ok := s.meta.Commands[cmdID]
	return mark, ok
}

// ReadCommandOutput returns the bytes bracketed by a command mark,
// decoded lossily to UTF-8. Open marks read up to the current size.
func (s *Stream) ReadCommandOutput(cmdID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark, ok := s.commandLocked(cmdID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmdID)
	}

	end := int64(-1)
	if mark.Closed() {
		end = *mark.End
	}
	return s.readRange(mark.Start, end)
}

// ReadNewOutput returns bytes appended after offset, and the new offset.
// The ready-pattern matcher uses it to scan only fresh bytes each poll.
func (s *Stream) ReadNewOutput(offset int64) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := s.size()
	if err != nil {
		return "", offset, err
	}
	if size <= offset {
		return "", offset, nil
	}
	text, err := s.readRange(offset, size)
	if err != nil {
		return "", offset, err
	}
	return text, size, nil
}

// ReadSince reads from a named read mark to the current size. An empty
// name selects the default mark.
func (s *Stream) ReadSince(name string) (string, error) {
	if name == "" {
		name = DefaultReadMark
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return "", fmt.Errorf("stream error: not started")
	}

	offset, ok := s.meta.ReadMarks[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMark, name)
	}
	return s.readRange(offset, -1)
}

// ReadAll returns the entire stream file.
func (s *Stream) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRange(0, -1)
}

// ReadLastLines returns the trailing n lines of the stream file.
func (s *Stream) ReadLastLines(n int) (string, error) {
	all, err := s.ReadAll()
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(all, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}

// Size returns the current stream file size.
func (s *Stream) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size()
}

// readRange reads [start, end) from the stream file; end < 0 means the
// current size. Readers tolerate partial trailing writes and never seek
// past the current size.
func (s *Stream) readRange(start, end int64) (string, error) {
	f, err := os.Open(s.StreamPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stream error: open stream file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stream error: stat stream file: %w", err)
	}
	size := info.Size()
	if end < 0 || end > size {
		end = size
	}
	if start > size {
		start = size
	}
	if start >= end {
		return "", nil
	}

	buf := make([]byte, end-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return "", fmt.Errorf("stream error: read stream file: %w", err)
	}
	return util.DecodeLossy(buf), nil
}

func (s *Stream) size() (int64, error) {
	info, err := os.Stat(s.StreamPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stream error: stat stream file: %w", err)
	}
	return info.Size(), nil
}

// flushLocked writes the sidecar through a temp file plus rename.
func (s *Stream) flushLocked() error {
	if s.meta == nil {
		return nil
	}
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("stream error: marshal metadata: %w", err)
	}
	if err := util.AtomicWriteFile(s.MetadataPath(), data, 0644); err != nil {
		return fmt.Errorf("stream error: write metadata: %w", err)
	}
	return nil
}
