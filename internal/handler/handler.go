// Package handler classifies pane process state into a ready-for-input
// verdict. Handlers are consulted in registration order; the first whose
// Matches accepts the pane's interesting process wins, and the registry
// always terminates with a total default handler.
package handler

import (
	"context"
	"errors"

	"github.com/angelsen/termtap/internal/proc"
)

// ErrAborted is returned when a before-send hook is cancelled by the user.
var ErrAborted = errors.New("aborted by user")

// Verdict is a handler's answer to "is this pane ready for input?".
type Verdict int

const (
	// VerdictUnknown means the handler cannot tell; the engine keeps
	// polling and a pane that stays unknown times out rather than
	// reporting a false ready.
	VerdictUnknown Verdict = iota
	VerdictReady
	VerdictBusy
)

func (v Verdict) String() string {
	switch v {
	case VerdictReady:
		return "ready"
	case VerdictBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an interactive confirmation.
type Decision struct {
	Action  Action
	Command string // replacement command when Action is ActionEdit
}

// Action enumerates confirmation outcomes.
type Action int

const (
	ActionContinue Action = iota
	ActionAbort
	ActionEdit
)

// Confirmer opens an interactive prompt for the user. Implemented by the
// dialog package; tests substitute fakes.
type Confirmer interface {
	Confirm(title, body string) (Decision, error)
}

// Handler classifies one family of processes.
type Handler interface {
	// Name identifies the handler in logs and results.
	Name() string

	// Matches reports whether this handler covers the process node.
	// node is the shell's node when the pane is at the shell, and nil
	// when the chain has neither a process nor a shell.
	Matches(node *proc.Node) bool

	// IsReady derives a verdict from a freshly refreshed process chain.
	// The reason is a short human string.
	IsReady(chain proc.Chain) (Verdict, string)

	// BeforeSend runs before a command is delivered. It may rewrite the
	// command; returning ErrAborted cancels the execution. Hooks must
	// not call back into pane execution on the same pane.
	BeforeSend(ctx context.Context, command string) (string, error)

	// AfterComplete runs after a command reaches a terminal status.
	AfterComplete(cmdID string, status string)
}

// Base provides no-op hooks for handlers that only classify.
type Base struct{}

func (Base) BeforeSend(_ context.Context, command string) (string, error) { return command, nil }
func (Base) AfterComplete(string, string)                                 {}

// Registry is an ordered handler list with a guaranteed total fallback.
type Registry struct {
	handlers []Handler
	fallback Handler
}

// NewRegistry builds a registry. The default handler is appended
// implicitly and always matches.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers, fallback: NewDefault()}
}

// Register appends a handler ahead of the fallback.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Find returns the first handler matching the node. Classification is
// total: the default handler matches everything, including a nil node.
func (r *Registry) Find(node *proc.Node) Handler {
	for _, h := range r.handlers {
		if h.Matches(node) {
			return h
		}
	}
	return r.fallback
}
