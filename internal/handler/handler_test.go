package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/angelsen/termtap/internal/proc"
)

func chainOf(nodes ...*proc.Node) proc.Chain {
	c := proc.Chain{Nodes: nodes}
	for _, n := range nodes {
		if c.Shell == nil && (n.Name == "bash" || n.Name == "zsh") {
			c.Shell = n
			continue
		}
		if c.Shell != nil && c.Process == nil {
			c.Process = n
		}
	}
	return c
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	reg := NewRegistry(NewPython(nil))

	h := reg.Find(&proc.Node{Name: "vim"})
	if h.Name() != "default" {
		t.Errorf("handler = %s, want default", h.Name())
	}
	if h = reg.Find(nil); h.Name() != "default" {
		t.Errorf("nil node handler = %s, want default", h.Name())
	}
}

func TestRegistryOrderFirstMatchWins(t *testing.T) {
	reg := NewRegistry(NewSSH(nil), NewPython(nil))
	if h := reg.Find(&proc.Node{Name: "python3"}); h.Name() != "python" {
		t.Errorf("handler = %s, want python", h.Name())
	}
	if h := reg.Find(&proc.Node{Name: "ssh"}); h.Name() != "ssh" {
		t.Errorf("handler = %s, want ssh", h.Name())
	}
}

func TestDefaultVerdicts(t *testing.T) {
	d := NewDefault()

	tests := []struct {
		name  string
		chain proc.Chain
		want  Verdict
	}{
		{"at shell", chainOf(&proc.Node{Name: "zsh"}), VerdictReady},
		{"running process", chainOf(&proc.Node{Name: "zsh"}, &proc.Node{Name: "sleep"}), VerdictBusy},
		{"degraded", proc.Chain{Degraded: true}, VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := d.IsReady(tt.chain)
			if got != tt.want {
				t.Errorf("verdict = %s (%s), want %s", got, reason, tt.want)
			}
		})
	}
}

func TestClassifierIsTotal(t *testing.T) {
	reg := NewRegistry(NewSSH(nil), NewPython(nil))
	nodes := []*proc.Node{
		nil,
		{Name: "python3"},
		{Name: "ssh"},
		{Name: "qemu-system-x86_64"},
		{Name: ""},
	}
	for _, node := range nodes {
		h := reg.Find(node)
		v, _ := h.IsReady(proc.Chain{Degraded: true})
		if v != VerdictReady && v != VerdictBusy && v != VerdictUnknown {
			t.Errorf("non-total verdict %d for node %+v", v, node)
		}
	}
}

func TestPythonReadiness(t *testing.T) {
	p := NewPython(nil)

	tests := []struct {
		name string
		node *proc.Node
		want Verdict
	}{
		{
			"blocked on stdin",
			&proc.Node{Name: "python3", State: proc.StateSleeping, WaitChannel: "do_select"},
			VerdictReady,
		},
		{
			"sleeping in time.sleep",
			&proc.Node{Name: "python3", State: proc.StateSleeping, WaitChannel: "hrtimer_nanosleep"},
			VerdictBusy,
		},
		{
			"has subprocess",
			&proc.Node{Name: "python3", State: proc.StateSleeping, WaitChannel: "do_select",
				Children: []*proc.Node{{Name: "sleep"}}},
			VerdictBusy,
		},
		{
			"no wait channel data",
			&proc.Node{Name: "python3", State: proc.StateSleeping},
			VerdictUnknown,
		},
		{
			"computing",
			&proc.Node{Name: "python3", State: proc.StateRunning},
			VerdictBusy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := chainOf(&proc.Node{Name: "bash"}, tt.node)
			got, reason := p.IsReady(chain)
			if got != tt.want {
				t.Errorf("verdict = %s (%s), want %s", got, reason, tt.want)
			}
		})
	}
}

func TestPythonMatches(t *testing.T) {
	p := NewPython(nil)
	for name, want := range map[string]bool{
		"python":     true,
		"python3":    true,
		"python3.12": true,
		"ipython":    true,
		"ruby":       false,
	} {
		if got := p.Matches(&proc.Node{Name: name}); got != want {
			t.Errorf("Matches(%q) = %v, want %v", name, got, want)
		}
	}
	if p.Matches(nil) {
		t.Error("nil node must not match")
	}
}

// stubConfirmer returns a canned decision.
type stubConfirmer struct {
	decision Decision
	called   bool
}

func (s *stubConfirmer) Confirm(title, body string) (Decision, error) {
	s.called = true
	return s.decision, nil
}

func TestSSHBeforeSend(t *testing.T) {
	t.Run("continue passes command through", func(t *testing.T) {
		c := &stubConfirmer{decision: Decision{Action: ActionContinue}}
		h := NewSSH(c)
		got, err := h.BeforeSend(context.Background(), "ls")
		if err != nil || got != "ls" {
			t.Fatalf("got %q, %v", got, err)
		}
		if !c.called {
			t.Error("confirmer not consulted")
		}
	})

	t.Run("abort raises ErrAborted", func(t *testing.T) {
		h := NewSSH(&stubConfirmer{decision: Decision{Action: ActionAbort}})
		if _, err := h.BeforeSend(context.Background(), "rm -rf /"); !errors.Is(err, ErrAborted) {
			t.Fatalf("err = %v, want ErrAborted", err)
		}
	})

	t.Run("edit replaces command", func(t *testing.T) {
		h := NewSSH(&stubConfirmer{decision: Decision{Action: ActionEdit, Command: "ls -la"}})
		got, err := h.BeforeSend(context.Background(), "ls")
		if err != nil || got != "ls -la" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("nil confirmer aborts", func(t *testing.T) {
		h := NewSSH(nil)
		if _, err := h.BeforeSend(context.Background(), "ls"); !errors.Is(err, ErrAborted) {
			t.Fatalf("err = %v, want ErrAborted", err)
		}
	})
}
