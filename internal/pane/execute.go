package pane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelsen/termtap/internal/events"
	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/tmux"
)

var execLogger = slog.Default().With("component", "pane.execute")

// Status is a command's terminal (or in-flight) state.
type Status string

const (
	// StatusCompleted: the pane returned to an input-ready prompt.
	StatusCompleted Status = "completed"
	// StatusReady: a long-lived process signalled readiness (by pattern
	// or by its handler) without the command finishing.
	StatusReady Status = "ready"
	StatusTimeout Status = "timeout"
	StatusAborted Status = "aborted"
	StatusRunning Status = "running"
)

// PasteMode controls the command delivery route.
type PasteMode int

const (
	// PasteAuto pastes for multi-line or large commands.
	PasteAuto PasteMode = iota
	PasteForce
	PasteNever
)

// ExecOptions parameterize one Execute call.
type ExecOptions struct {
	// Wait blocks until the pane is ready or the timeout expires. When
	// false, Execute returns immediately with StatusRunning.
	Wait bool
	// Timeout bounds the wait. Zero times out on the first poll.
	Timeout time.Duration
	// ReadyPattern, when set, completes the command with StatusReady as
	// soon as the regex matches newly produced output.
	ReadyPattern string
	// Paste selects the delivery route.
	Paste PasteMode
	// PollInterval is clamped to [50ms, 250ms]; zero selects 100ms.
	PollInterval time.Duration
}

// CommandResult is the engine's structured answer.
//
// Output has the leading command echo trimmed when its first line equals
// the submitted command — a heuristic inherited from interactive shells
// echoing input; raw bytes stay available via the stream.
type CommandResult struct {
	CmdID          string  `json:"cmd_id"`
	Status         Status  `json:"status"`
	Output         string  `json:"output"`
	Process        string  `json:"process"`
	Shell          string  `json:"shell"`
	PaneAddress    string  `json:"pane_address"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Execute sends a command to the pane and, when waiting, polls until the
// pane is genuinely ready for input, a ready pattern matches, the
// timeout expires, or the context is cancelled. Commands on one pane are
// strictly serial; the per-pane lock covers everything from marking to
// the final slice.
//
// Handler hooks must not call Execute on the same pane: the per-pane
// lock is not reentrant and the call would deadlock.
func (p *Pane) Execute(ctx context.Context, command string, opts ExecOptions) (CommandResult, error) {
	if err := p.sup.guardCurrent(p.id); err != nil {
		return CommandResult{}, err
	}

	mu := p.sup.lock(p.id)
	mu.Lock()
	defer mu.Unlock()

	st := p.Stream()
	if err := st.Start(); err != nil {
		return CommandResult{}, err
	}

	// Mirror-pipe health: if the file did not grow since the previous
	// mark, the pipe went stale; restart it before this command.
	if healthy, err := st.Healthy(); err == nil && !healthy {
		if err := st.Recover(""); err != nil {
			return CommandResult{}, err
		}
		p.sup.emit(events.StreamRestarted{PaneID: p.id, At: time.Now()})
	}

	cmdID := newCmdID()
	if err := st.MarkCommand(cmdID, command); err != nil {
		return CommandResult{}, err
	}

	// Snapshot pre-send state: the ready-vs-completed distinction needs
	// to know whether the command itself became the pane's process.
	p.Refresh()
	preChain := p.Chain()
	prePID := 0
	if preChain.Process != nil {
		prePID = preChain.Process.PID
	}
	h := p.Handler()
	interruptsAtSend := p.interrupts.Load()

	command, err := h.BeforeSend(ctx, command)
	if err != nil {
		_ = st.MarkCommandEnd(cmdID)
		if errors.Is(err, handler.ErrAborted) {
			return CommandResult{}, fmt.Errorf("send to %s: %w", p.Address(), err)
		}
		return CommandResult{}, err
	}

	if err := p.send(command, opts.Paste); err != nil {
		_ = st.MarkCommandEnd(cmdID)
		return CommandResult{}, err
	}
	start := time.Now()
	p.sup.emit(events.CommandStarted{CmdID: cmdID, PaneID: p.id, Command: command, At: start})

	if !opts.Wait {
		return CommandResult{
			CmdID:       cmdID,
			Status:      StatusRunning,
			Process:     p.Process(),
			Shell:       p.Shell(),
			PaneAddress: p.Address(),
		}, nil
	}

	status, err := p.poll(ctx, cmdID, start, prePID, interruptsAtSend, opts)
	if err != nil {
		_ = st.MarkCommandEnd(cmdID)
		return CommandResult{}, err
	}

	if err := st.MarkCommandEnd(cmdID); err != nil {
		return CommandResult{}, err
	}
	raw, err := st.ReadCommandOutput(cmdID)
	if err != nil {
		return CommandResult{}, err
	}

	p.Refresh()
	elapsed := time.Since(start)
	h.AfterComplete(cmdID, string(status))
	p.sup.emit(events.CommandCompleted{
		CmdID: cmdID, PaneID: p.id, Status: string(status), Elapsed: elapsed, At: time.Now(),
	})

	return CommandResult{
		CmdID:          cmdID,
		Status:         status,
		Output:         trimEcho(raw, command),
		Process:        p.Process(),
		Shell:          p.Shell(),
		PaneAddress:    p.Address(),
		ElapsedSeconds: elapsed.Seconds(),
	}, nil
}

// poll runs the wait loop of Execute and returns the terminal status.
func (p *Pane) poll(ctx context.Context, cmdID string, start time.Time, prePID int, interruptsAtSend int64, opts ExecOptions) (Status, error) {
	deadline := start.Add(opts.Timeout)
	interval := clampInterval(opts.PollInterval)

	var scanner *patternScanner
	if opts.ReadyPattern != "" {
		mark, err := p.Stream().Command(cmdID)
		if err != nil {
			return "", err
		}
		scanner, err = newPatternScanner(opts.ReadyPattern, mark.Start)
		if err != nil {
			return "", fmt.Errorf("compile ready pattern: %w", err)
		}
	}

	for {
		if ctx.Err() != nil {
			return StatusAborted, nil
		}
		if !time.Now().Before(deadline) {
			return StatusTimeout, nil
		}

		if scanner != nil {
			matched, err := scanner.Scan(p.Stream())
			if err != nil {
				execLogger.Debug("pattern scan failed", "pane", p.id, "error", err)
			} else if matched {
				return StatusReady, nil
			}
		}

		p.Refresh()
		if _, err := p.sup.mux.FindPane(p.id); err != nil {
			if errors.Is(err, tmux.ErrPaneNotFound) {
				return StatusAborted, nil
			}
			return "", err
		}

		verdict, reason := p.Handler().IsReady(p.Chain())
		if verdict == handler.VerdictReady {
			if p.interrupts.Load() != interruptsAtSend {
				return StatusAborted, nil
			}
			chain := p.Chain()
			// A process that appeared (or changed) since the send is the
			// command itself becoming interactive — a REPL at its prompt,
			// a server accepting input. That is "ready", not "completed".
			if chain.Process != nil && chain.Process.PID != prePID {
				execLogger.Debug("pane ready", "pane", p.id, "reason", reason)
				return StatusReady, nil
			}
			return StatusCompleted, nil
		}

		select {
		case <-ctx.Done():
			return StatusAborted, nil
		case <-time.After(interval):
		}
	}
}

func (p *Pane) send(command string, mode PasteMode) error {
	switch mode {
	case PasteForce:
		return p.sup.mux.PasteText(p.id, command, true)
	case PasteNever:
		return p.sup.mux.SendKeys(p.id, command, true)
	default:
		if tmux.NeedsPaste(command) {
			return p.sup.mux.PasteText(p.id, command, true)
		}
		return p.sup.mux.SendKeys(p.id, command, true)
	}
}

func clampInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return 100 * time.Millisecond
	case d < 50*time.Millisecond:
		return 50 * time.Millisecond
	case d > 250*time.Millisecond:
		return 250 * time.Millisecond
	default:
		return d
	}
}

// trimEcho drops the leading echo line when it matches the submitted
// command. The match is heuristic; multi-line pastes keep their echo.
func trimEcho(output, command string) string {
	if strings.ContainsRune(command, '\n') {
		return output
	}
	line, rest, found := strings.Cut(output, "\n")
	if !found {
		if strings.TrimSpace(line) == strings.TrimSpace(command) {
			return ""
		}
		return output
	}
	if strings.TrimSpace(line) == strings.TrimSpace(command) {
		return rest
	}
	return output
}

func newCmdID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
