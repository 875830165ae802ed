package pane

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelsen/termtap/internal/events"
	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/proc"
	"github.com/angelsen/termtap/internal/stream"
	"github.com/angelsen/termtap/internal/tmux"
)

// fakeMux simulates a tmux server with one or two panes. Sent commands
// append scripted output to the stream file and mutate the scripted
// process table, which is how a real pane behaves through the pipe.
type fakeMux struct {
	mu         sync.Mutex
	panes      []tmux.PaneInfo
	current    string
	streamPath map[string]string
	nodes      []*proc.Node

	// onSend scripts the pane's reaction to a sent command.
	onSend func(f *fakeMux, paneID, text string)
	// onKey scripts the reaction to a symbolic key (interrupt).
	onKey func(f *fakeMux, paneID, key string)

	pastes int
	sends  int
}

func (f *fakeMux) CurrentPane() string { return f.current }

func (f *fakeMux) ListPanes() ([]tmux.PaneInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tmux.PaneInfo(nil), f.panes...), nil
}

func (f *fakeMux) FindPane(paneID string) (tmux.PaneInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.panes {
		if p.ID == paneID {
			return p, nil
		}
	}
	return tmux.PaneInfo{}, tmux.ErrPaneNotFound
}

func (f *fakeMux) LeaderPID(paneID string) (int, error) {
	p, err := f.FindPane(paneID)
	if err != nil {
		return 0, err
	}
	return p.LeaderPID, nil
}

func (f *fakeMux) SendKeys(paneID, text string, enter bool) error {
	f.mu.Lock()
	f.sends++
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend(f, paneID, text)
	}
	return nil
}

func (f *fakeMux) PasteText(paneID, text string, enter bool) error {
	f.mu.Lock()
	f.pastes++
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend(f, paneID, text)
	}
	return nil
}

func (f *fakeMux) SendKey(paneID, key string) error {
	f.mu.Lock()
	onKey := f.onKey
	f.mu.Unlock()
	if onKey != nil {
		onKey(f, paneID, key)
	}
	return nil
}

func (f *fakeMux) CaptureVisible(paneID string) (string, error)       { return "", nil }
func (f *fakeMux) CaptureLastN(paneID string, n int) (string, error)  { return "", nil }

func (f *fakeMux) KillPane(paneID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.panes {
		if p.ID == paneID {
			f.panes = append(f.panes[:i], f.panes[i+1:]...)
			return nil
		}
	}
	return tmux.ErrPaneNotFound
}

// Piper side: pipe lifecycle is bookkeeping only; tests append output
// themselves via emit.
func (f *fakeMux) StartPipe(paneID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamPath[paneID] = path
	return nil
}

func (f *fakeMux) StopPipe(paneID string) error { return nil }

// emit appends bytes to the pane's stream file, as the pipe would.
func (f *fakeMux) emit(t *testing.T, paneID, text string) {
	t.Helper()
	f.mu.Lock()
	path := f.streamPath[paneID]
	f.mu.Unlock()
	if path == "" {
		t.Fatal("pipe not started for pane " + paneID)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("append to stream: %v", err)
	}
	defer file.Close()
	if _, err := file.WriteString(text); err != nil {
		t.Fatalf("append to stream: %v", err)
	}
}

// setNodes replaces the scripted process table.
func (f *fakeMux) setNodes(nodes ...*proc.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = nodes
}

func (f *fakeMux) snapshot() (*proc.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copies := make([]*proc.Node, len(f.nodes))
	for i, n := range f.nodes {
		c := *n
		copies[i] = &c
	}
	return proc.NewTable(copies), nil
}

func newFixture(t *testing.T) (*fakeMux, *Supervisor) {
	t.Helper()
	f := &fakeMux{
		panes: []tmux.PaneInfo{
			{ID: "%1", Session: "demo", WindowIndex: 0, PaneIndex: 0, WindowName: "zsh", LeaderPID: 100},
		},
		streamPath: map[string]string{},
	}
	f.setNodes(&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping})

	intro := proc.NewIntrospector(nil, nil).WithSnapshot(f.snapshot)
	handlers := handler.NewRegistry(handler.NewSSH(nil), handler.NewPython(nil))
	streams := stream.NewRegistry(t.TempDir(), f)
	emitter := events.NewEmitter(events.NewEventBus(), 64)
	sup := NewSupervisor(f, streams, intro, handlers, emitter)
	return f, sup
}

func firstPane(t *testing.T, sup *Supervisor) *Pane {
	t.Helper()
	p, err := sup.ResolveUnique("%1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return p
}

func TestExecuteEchoCompletes(t *testing.T) {
	f, sup := newFixture(t)
	f.onSend = func(f *fakeMux, paneID, text string) {
		// The pane goes busy until its output has landed, like a real
		// command run.
		f.setNodes(
			&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
			&proc.Node{PID: 150, PPID: 100, Name: "echo", State: proc.StateRunning},
		)
		go func() {
			time.Sleep(20 * time.Millisecond)
			f.emit(t, paneID, text+"\nhello\n")
			f.setNodes(&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping})
		}()
	}
	p := firstPane(t, sup)

	res, err := p.Execute(context.Background(), "echo hello",
		ExecOptions{Wait: true, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if !strings.Contains(res.Output, "hello") {
		t.Errorf("output %q lacks hello", res.Output)
	}
	if strings.HasPrefix(res.Output, "echo hello") {
		t.Errorf("command echo not trimmed: %q", res.Output)
	}
	if res.ElapsedSeconds >= 2 {
		t.Errorf("elapsed %.2fs, want < 2s", res.ElapsedSeconds)
	}

	mark, err := p.Stream().Command(res.CmdID)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !mark.Closed() || *mark.End <= mark.Start {
		t.Errorf("mark not closed past start: %+v", mark)
	}
}

func TestExecuteNoWaitReturnsRunning(t *testing.T) {
	_, sup := newFixture(t)
	p := firstPane(t, sup)

	res, err := p.Execute(context.Background(), "sleep 100", ExecOptions{Wait: false})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusRunning {
		t.Errorf("status = %s, want running", res.Status)
	}
	if res.CmdID == "" {
		t.Error("cmd_id empty")
	}
	if res.Output != "" {
		t.Errorf("output = %q, want empty", res.Output)
	}
}

func TestExecuteZeroTimeout(t *testing.T) {
	f, sup := newFixture(t)
	// Pane stays busy forever.
	f.setNodes(
		&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
		&proc.Node{PID: 200, PPID: 100, Name: "sleep", State: proc.StateSleeping, WaitChannel: "hrtimer_nanosleep"},
	)
	p := firstPane(t, sup)

	res, err := p.Execute(context.Background(), "sleep 5", ExecOptions{Wait: true, Timeout: 0})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusTimeout {
		t.Errorf("status = %s, want timeout", res.Status)
	}

	mark, err := p.Stream().Command(res.CmdID)
	if err != nil {
		t.Fatal(err)
	}
	if !mark.Closed() {
		t.Error("timed-out command mark not closed")
	}
}

func TestExecuteRejectsCurrentPane(t *testing.T) {
	f, sup := newFixture(t)
	f.current = "%1"
	p := firstPane(t, sup)

	_, err := p.Execute(context.Background(), "echo hi", ExecOptions{Wait: true, Timeout: time.Second})
	if !errors.Is(err, tmux.ErrCurrentPane) {
		t.Fatalf("err = %v, want ErrCurrentPane", err)
	}
}

func TestExecuteReadyPattern(t *testing.T) {
	f, sup := newFixture(t)
	f.onSend = func(f *fakeMux, paneID, text string) {
		// The server starts and stays busy; only its banner signals
		// readiness.
		f.setNodes(
			&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
			&proc.Node{PID: 300, PPID: 100, Name: "python3", State: proc.StateSleeping, WaitChannel: "inet_csk_accept"},
		)
		go func() {
			time.Sleep(30 * time.Millisecond)
			f.emit(t, paneID, text+"\nServing HTTP on 0.0.0.0 port 8000 ...\n")
		}()
	}
	p := firstPane(t, sup)

	res, err := p.Execute(context.Background(), "python3 -m http.server 8000",
		ExecOptions{Wait: true, Timeout: 5 * time.Second, ReadyPattern: "Serving HTTP on "})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusReady {
		t.Fatalf("status = %s, want ready", res.Status)
	}
	if !strings.Contains(res.Output, "Serving HTTP on") {
		t.Errorf("output %q lacks banner", res.Output)
	}
}

func TestExecuteReplStartupReportsReady(t *testing.T) {
	f, sup := newFixture(t)
	f.onSend = func(f *fakeMux, paneID, text string) {
		f.setNodes(
			&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
			&proc.Node{PID: 400, PPID: 100, Name: "python3", State: proc.StateSleeping, WaitChannel: "do_select"},
		)
		go func() {
			time.Sleep(20 * time.Millisecond)
			f.emit(t, paneID, text+"\nPython 3.12.0\n>>> ")
		}()
	}
	p := firstPane(t, sup)

	res, err := p.Execute(context.Background(), "python3",
		ExecOptions{Wait: true, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusReady {
		t.Fatalf("status = %s, want ready (new process at its prompt)", res.Status)
	}
	if res.Process != "python3" {
		t.Errorf("process = %q, want python3", res.Process)
	}

	// A command typed into the running REPL completes: same process
	// before and after. The interpreter leaves its stdin wait while
	// evaluating.
	f.onSend = func(f *fakeMux, paneID, text string) {
		f.setNodes(
			&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
			&proc.Node{PID: 400, PPID: 100, Name: "python3", State: proc.StateRunning},
		)
		go func() {
			time.Sleep(20 * time.Millisecond)
			f.emit(t, paneID, text+"\n4\n>>> ")
			f.setNodes(
				&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
				&proc.Node{PID: 400, PPID: 100, Name: "python3", State: proc.StateSleeping, WaitChannel: "do_select"},
			)
		}()
	}
	res, err = p.Execute(context.Background(), "2+2",
		ExecOptions{Wait: true, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("execute 2+2: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if !strings.Contains(res.Output, "4") {
		t.Errorf("output %q lacks 4", res.Output)
	}
}

func TestInterruptAbortsRunningExecute(t *testing.T) {
	f, sup := newFixture(t)
	f.setNodes(
		&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
		&proc.Node{PID: 500, PPID: 100, Name: "sleep", State: proc.StateSleeping, WaitChannel: "hrtimer_nanosleep"},
	)
	f.onKey = func(f *fakeMux, paneID, key string) {
		if key == "C-c" {
			f.setNodes(&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping})
		}
	}
	p := firstPane(t, sup)

	done := make(chan CommandResult, 1)
	go func() {
		res, err := p.Execute(context.Background(), "sleep 100",
			ExecOptions{Wait: true, Timeout: 10 * time.Second})
		if err != nil {
			t.Errorf("execute: %v", err)
		}
		done <- res
	}()

	time.Sleep(200 * time.Millisecond)
	sizeBefore, _ := p.Stream().Size()
	if err := p.Interrupt(); err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	sizeAfter, _ := p.Stream().Size()
	if sizeBefore != sizeAfter {
		t.Error("interrupt changed the stream file size")
	}

	select {
	case res := <-done:
		if res.Status != StatusAborted {
			t.Errorf("status = %s, want aborted", res.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after interrupt")
	}
}

func TestExecuteCancelledContextAborts(t *testing.T) {
	f, sup := newFixture(t)
	f.setNodes(
		&proc.Node{PID: 100, PPID: 1, Name: "zsh", State: proc.StateSleeping},
		&proc.Node{PID: 600, PPID: 100, Name: "sleep", State: proc.StateSleeping, WaitChannel: "hrtimer_nanosleep"},
	)
	p := firstPane(t, sup)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := p.Execute(ctx, "sleep 100", ExecOptions{Wait: true, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusAborted {
		t.Errorf("status = %s, want aborted", res.Status)
	}
}

func TestExecutePasteRouting(t *testing.T) {
	f, sup := newFixture(t)
	f.onSend = func(f *fakeMux, paneID, text string) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			f.emit(t, paneID, "42\n")
		}()
	}
	p := firstPane(t, sup)

	multi := "def foo():\n    return 42\nfoo()"
	if _, err := p.Execute(context.Background(), multi,
		ExecOptions{Wait: true, Timeout: 5 * time.Second}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.pastes != 1 {
		t.Errorf("pastes = %d, want 1 (multi-line goes through the paste buffer)", f.pastes)
	}

	if _, err := p.Execute(context.Background(), "echo hi",
		ExecOptions{Wait: true, Timeout: 5 * time.Second, Paste: PasteForce}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.pastes != 2 {
		t.Errorf("pastes = %d, want 2 after PasteForce", f.pastes)
	}
}

func TestResolveUniqueAmbiguous(t *testing.T) {
	f, sup := newFixture(t)
	f.mu.Lock()
	f.panes = append(f.panes, tmux.PaneInfo{
		ID: "%2", Session: "demo", WindowIndex: 0, PaneIndex: 1, WindowName: "zsh", LeaderPID: 101,
	})
	f.mu.Unlock()

	_, err := sup.ResolveUnique("demo")
	var amb *tmux.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("err = %v, want AmbiguousError", err)
	}
	if len(amb.Panes) != 2 {
		t.Errorf("enumerated %d panes, want 2", len(amb.Panes))
	}
	for _, want := range []string{"demo:0.0", "demo:0.1"} {
		if !strings.Contains(amb.Error(), want) {
			t.Errorf("error %q lacks %q", amb.Error(), want)
		}
	}
}

func TestKillRemovesPaneAndStream(t *testing.T) {
	f, sup := newFixture(t)
	p := firstPane(t, sup)
	if err := p.Stream().Start(); err != nil {
		t.Fatal(err)
	}

	if err := p.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if _, err := f.FindPane("%1"); !errors.Is(err, tmux.ErrPaneNotFound) {
		t.Error("pane still listed after kill")
	}
	if _, ok := sup.Streams().Lookup("%1"); ok {
		t.Error("stream still registered after kill")
	}
}
