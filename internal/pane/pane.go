package pane

import (
	"sync"
	"sync/atomic"

	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/proc"
	"github.com/angelsen/termtap/internal/stream"
	"github.com/angelsen/termtap/internal/tmux"
)

// Pane is a cheap, discardable facade over one tmux pane. Derived
// attributes are cached on first access and invalidated by Refresh or by
// any operation that changes pane state. Destroying the underlying pane
// does not destroy the Pane object. A wait in progress then ends as
// aborted; later sends, interrupts and kills fail with the multiplexer's
// own error for the missing pane (a MuxError), not with ErrPaneNotFound.
type Pane struct {
	sup *Supervisor
	id  string

	mu      sync.Mutex
	info    tmux.PaneInfo
	chain   *proc.Chain
	visible *string

	// interrupts counts Interrupt calls; a running Execute that sees the
	// counter move reports the command as aborted instead of completed.
	interrupts atomic.Int64
}

// ID returns the immutable tmux pane id.
func (p *Pane) ID() string { return p.id }

// Address returns the canonical session:window.pane string.
func (p *Pane) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info.Target()
}

// IsCurrent reports whether this is the supervisor's own pane.
func (p *Pane) IsCurrent() bool {
	return p.sup.mux.CurrentPane() == p.id
}

// LeaderPID returns the pane's foreground process group leader.
func (p *Pane) LeaderPID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info.LeaderPID
}

// Refresh drops every cached attribute and re-reads the pane's identity
// from the multiplexer. A vanished pane keeps the stale identity; the
// next operation surfaces the not-found error.
func (p *Pane) Refresh() {
	info, err := p.sup.mux.FindPane(p.id)

	p.mu.Lock()
	p.chain = nil
	p.visible = nil
	if err == nil {
		p.info = info
	}
	p.mu.Unlock()
}

// Chain returns the pane's process chain, cached until Refresh.
func (p *Pane) Chain() proc.Chain {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain == nil {
		chain := p.sup.intro.Chain(p.info.LeaderPID)
		p.chain = &chain
	}
	return *p.chain
}

// Shell returns the pane's shell name ("unknown" when introspection is
// degraded).
func (p *Pane) Shell() string { return p.Chain().ShellName() }

// Process returns the interesting process name, or "" at the shell.
func (p *Pane) Process() string { return p.Chain().ProcessName() }

// Handler returns the handler covering the pane's current process (the
// shell's node when no process runs).
func (p *Pane) Handler() handler.Handler {
	chain := p.Chain()
	node := chain.Process
	if node == nil {
		node = chain.Shell
	}
	return p.sup.handlers.Find(node)
}

// VisibleContent returns the pane's on-screen text, cached until Refresh.
func (p *Pane) VisibleContent() (string, error) {
	p.mu.Lock()
	if p.visible != nil {
		defer p.mu.Unlock()
		return *p.visible, nil
	}
	p.mu.Unlock()

	content, err := p.sup.mux.CaptureVisible(p.id)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.visible = &content
	p.mu.Unlock()
	return content, nil
}

// Stream returns the pane's output stream, created lazily.
func (p *Pane) Stream() *stream.Stream {
	return p.sup.streams.Get(p.id, p.Address())
}

// Interrupt sends the interrupt key without marking a command and
// without taking the execution lock: interrupting a running command is
// the point. The stream file and metadata are untouched.
func (p *Pane) Interrupt() error {
	if err := p.sup.guardCurrent(p.id); err != nil {
		return err
	}
	if err := p.sup.mux.SendKey(p.id, "C-c"); err != nil {
		return err
	}
	p.interrupts.Add(1)
	p.Refresh()
	return nil
}

// Kill destroys the pane and stops its stream.
func (p *Pane) Kill() error {
	if err := p.sup.guardCurrent(p.id); err != nil {
		return err
	}
	if err := p.sup.mux.KillPane(p.id); err != nil {
		return err
	}
	p.sup.streams.Remove(p.id)
	p.Refresh()
	return nil
}

// ReadMode selects what ReadOutput returns.
type ReadMode int

const (
	// ReadSinceLast returns output appended since the last read mark and
	// advances the mark.
	ReadSinceLast ReadMode = iota
	// ReadAll returns the whole stream file.
	ReadAll
	// ReadVisible returns the pane's current screen content from tmux.
	ReadVisible
)

// ReadOutput reads pane output. lines > 0 limits to the trailing lines.
func (p *Pane) ReadOutput(mode ReadMode, lines int) (string, error) {
	switch mode {
	case ReadAll:
		if lines > 0 {
			return p.Stream().ReadLastLines(lines)
		}
		return p.Stream().ReadAll()
	case ReadVisible:
		if lines > 0 {
			return p.sup.mux.CaptureLastN(p.id, lines)
		}
		return p.sup.mux.CaptureVisible(p.id)
	default:
		st := p.Stream()
		if err := st.Start(); err != nil {
			return "", err
		}
		out, err := st.ReadSince(stream.DefaultReadMark)
		if err != nil {
			return "", err
		}
		if err := st.MarkRead(stream.DefaultReadMark); err != nil {
			return "", err
		}
		return out, nil
	}
}
