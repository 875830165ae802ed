// Package pane composes the multiplexer adapter, the process
// introspector, the handler registry and the output stream into a
// per-pane execution surface.
package pane

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelsen/termtap/internal/events"
	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/proc"
	"github.com/angelsen/termtap/internal/stream"
	"github.com/angelsen/termtap/internal/tmux"
)

// Adapter is the slice of the multiplexer client the pane layer consumes.
// *tmux.Client satisfies it; tests substitute fakes.
type Adapter interface {
	CurrentPane() string
	ListPanes() ([]tmux.PaneInfo, error)
	FindPane(paneID string) (tmux.PaneInfo, error)
	LeaderPID(paneID string) (int, error)
	SendKeys(paneID, text string, enter bool) error
	PasteText(paneID, text string, enter bool) error
	SendKey(paneID, key string) error
	CaptureVisible(paneID string) (string, error)
	CaptureLastN(paneID string, n int) (string, error)
	KillPane(paneID string) error
}

// Supervisor owns the shared registries of one termtap process: the
// stream registry, the introspector, the handlers, and the per-pane
// execution locks. It is a plain value with the process's lifetime.
type Supervisor struct {
	mux      Adapter
	streams  *stream.Registry
	intro    *proc.Introspector
	handlers *handler.Registry
	emitter  *events.Emitter

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewSupervisor wires the subsystems together.
func NewSupervisor(mux Adapter, streams *stream.Registry, intro *proc.Introspector, handlers *handler.Registry, emitter *events.Emitter) *Supervisor {
	return &Supervisor{
		mux:      mux,
		streams:  streams,
		intro:    intro,
		handlers: handlers,
		emitter:  emitter,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Streams exposes the stream registry (shutdown needs it).
func (s *Supervisor) Streams() *stream.Registry { return s.streams }

// Pane builds the cheap pane facade for an enumerated pane.
func (s *Supervisor) Pane(info tmux.PaneInfo) *Pane {
	return &Pane{sup: s, id: info.ID, info: info}
}

// Resolve resolves an address to pane objects; bare sessions yield
// several.
func (s *Supervisor) Resolve(address string) ([]*Pane, error) {
	infos, err := s.mux.ListPanes()
	if err != nil {
		return nil, err
	}
	matches, err := tmux.ResolvePanes(infos, address)
	if err != nil {
		return nil, err
	}
	panes := make([]*Pane, len(matches))
	for i, info := range matches {
		panes[i] = s.Pane(info)
	}
	return panes, nil
}

// ResolveUnique resolves an address that must name exactly one pane.
func (s *Supervisor) ResolveUnique(address string) (*Pane, error) {
	panes, err := s.Resolve(address)
	if err != nil {
		return nil, err
	}
	if len(panes) > 1 {
		infos := make([]tmux.PaneInfo, len(panes))
		for i, p := range panes {
			infos[i] = p.info
		}
		return nil, &tmux.AmbiguousError{Address: address, Panes: infos}
	}
	return panes[0], nil
}

// ExecuteAt resolves an address to a single pane and executes a command
// on it. The façade used by the CLI, the RPC server, and the initializer.
func (s *Supervisor) ExecuteAt(ctx context.Context, address, command string, opts ExecOptions) (CommandResult, error) {
	p, err := s.ResolveUnique(address)
	if err != nil {
		return CommandResult{}, err
	}
	return p.Execute(ctx, command, opts)
}

// lock returns the execution mutex for a pane, minting it on first use.
// Commands within one pane are strictly serial; panes are independent.
func (s *Supervisor) lock(paneID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[paneID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[paneID] = mu
	}
	return mu
}

func (s *Supervisor) emit(ev events.BusEvent) {
	if s.emitter != nil {
		s.emitter.Emit(ev)
	}
}

// guardCurrent refuses operations against the supervisor's own pane.
func (s *Supervisor) guardCurrent(paneID string) error {
	if cur := s.mux.CurrentPane(); cur != "" && cur == paneID {
		return fmt.Errorf("%w: %s", tmux.ErrCurrentPane, paneID)
	}
	return nil
}
