package proc

import (
	"errors"
	"testing"
)

func testTable(nodes ...*Node) func() (*Table, error) {
	t := NewTable(nodes)
	return func() (*Table, error) { return t, nil }
}

func TestChainAtShell(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "zsh", State: StateSleeping},
	))

	chain := in.Chain(100)
	if !chain.AtShell() {
		t.Fatalf("expected pane at shell, got process %q", chain.ProcessName())
	}
	if chain.ShellName() != "zsh" {
		t.Errorf("shell = %q, want zsh", chain.ShellName())
	}
}

func TestChainSelectsFirstNonShellDescendant(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "bash", State: StateSleeping},
		&Node{PID: 200, PPID: 100, Name: "python3", State: StateSleeping, WaitChannel: "do_select"},
	))

	chain := in.Chain(100)
	if chain.ProcessName() != "python3" {
		t.Fatalf("process = %q, want python3", chain.ProcessName())
	}
	if chain.ShellName() != "bash" {
		t.Errorf("shell = %q, want bash", chain.ShellName())
	}
	if len(chain.Nodes) != 2 {
		t.Errorf("chain length = %d, want 2", len(chain.Nodes))
	}
}

func TestChainSkipsWrappers(t *testing.T) {
	in := NewIntrospector(nil, []string{"uv"}).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "zsh", State: StateSleeping},
		&Node{PID: 200, PPID: 100, Name: "uv", State: StateSleeping},
		&Node{PID: 300, PPID: 200, Name: "python3", State: StateSleeping},
	))

	chain := in.Chain(100)
	if chain.ProcessName() != "python3" {
		t.Fatalf("process = %q, want python3 (wrapper skipped)", chain.ProcessName())
	}
}

func TestChainNestedShellIsNotTheProcess(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "zsh", State: StateSleeping},
		&Node{PID: 200, PPID: 100, Name: "bash", State: StateSleeping},
	))

	chain := in.Chain(100)
	if !chain.AtShell() {
		t.Fatalf("nested shell should leave the pane at the shell, got %q", chain.ProcessName())
	}
}

func TestChainPrefersActiveSibling(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "bash", State: StateSleeping},
		&Node{PID: 200, PPID: 100, Name: "vim", State: StateStopped},
		&Node{PID: 300, PPID: 100, Name: "python3", State: StateSleeping},
	))

	chain := in.Chain(100)
	if chain.ProcessName() != "python3" {
		t.Fatalf("process = %q, want the non-stopped sibling python3", chain.ProcessName())
	}
}

func TestChainDegradedOnTableError(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(func() (*Table, error) {
		return nil, errors.New("proc unavailable")
	})

	chain := in.Chain(100)
	if !chain.Degraded {
		t.Fatal("expected degraded chain")
	}
	if chain.ShellName() != "unknown" {
		t.Errorf("shell = %q, want unknown", chain.ShellName())
	}
	if chain.ProcessName() != "none" {
		t.Errorf("process = %q, want none", chain.ProcessName())
	}
}

func TestChainLeaderMissing(t *testing.T) {
	in := NewIntrospector(nil, nil).WithSnapshot(testTable(
		&Node{PID: 100, PPID: 1, Name: "bash", State: StateSleeping},
	))

	chain := in.Chain(999)
	if !chain.Degraded {
		t.Fatal("expected degraded chain for missing leader")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"-zsh", "zsh"},
		{"/usr/bin/zsh", "zsh"},
		{"python3", "python3"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescendantsDepthFirst(t *testing.T) {
	table := NewTable([]*Node{
		{PID: 1, PPID: 0, Name: "bash"},
		{PID: 2, PPID: 1, Name: "uv"},
		{PID: 3, PPID: 2, Name: "python3"},
		{PID: 4, PPID: 1, Name: "tail"},
	})

	desc := table.Descendants(1)
	if len(desc) != 3 {
		t.Fatalf("descendants = %d, want 3", len(desc))
	}
	want := []int{2, 3, 4}
	for i, n := range desc {
		if n.PID != want[i] {
			t.Errorf("descendant %d = pid %d, want %d", i, n.PID, want[i])
		}
	}
}
