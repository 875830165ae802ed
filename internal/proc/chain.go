package proc

import (
	"log/slog"
	"strings"
)

var chainLogger = slog.Default().With("component", "proc.chain")

// DefaultShells are the executable names treated as shell nodes unless
// overridden by configuration.
var DefaultShells = []string{"bash", "zsh", "fish", "sh", "dash"}

// DefaultSkipWrappers are launcher processes that exec or fork the real
// program and should be ignored when picking the interesting descendant.
var DefaultSkipWrappers = []string{"uv", "uvx", "npx", "pnpm", "yarn", "poetry", "pipx", "env"}

// Introspector derives process chains from table snapshots.
type Introspector struct {
	shells   map[string]bool
	wrappers map[string]bool

	// snapshot is replaceable for tests.
	snapshot func() (*Table, error)
}

// NewIntrospector builds an introspector with the given known-shells and
// skip-wrappers sets. Empty slices select the defaults.
func NewIntrospector(shells, wrappers []string) *Introspector {
	if len(shells) == 0 {
		shells = DefaultShells
	}
	if len(wrappers) == 0 {
		wrappers = DefaultSkipWrappers
	}
	return &Introspector{
		shells:   toSet(shells),
		wrappers: toSet(wrappers),
		snapshot: Snapshot,
	}
}

// WithSnapshot overrides the table source. Tests use this to replay
// recorded process tables.
func (in *Introspector) WithSnapshot(fn func() (*Table, error)) *Introspector {
	in.snapshot = fn
	return in
}

// IsShell reports whether name is a known shell.
func (in *Introspector) IsShell(name string) bool {
	return in.shells[normalize(name)]
}

// Chain resolves the process chain for a pane leader PID. It never
// returns an error: a failed table read yields a degraded chain and a
// log line, per the classifier's no-raise contract.
func (in *Introspector) Chain(leaderPID int) Chain {
	table, err := in.snapshot()
	if err != nil {
		chainLogger.Warn("process table unavailable", "leader_pid", leaderPID, "error", err)
		return Chain{Degraded: true}
	}
	return in.ChainFrom(table, leaderPID)
}

// ChainFrom resolves the chain against an existing snapshot.
func (in *Introspector) ChainFrom(table *Table, leaderPID int) Chain {
	leader := table.Node(leaderPID)
	if leader == nil {
		chainLogger.Debug("leader pid not in process table", "leader_pid", leaderPID)
		return Chain{Degraded: true}
	}

	// Walk the first-child path from the leader. After job-control
	// suspension a shell can hold several sibling chains; we follow one,
	// preferring a non-stopped sibling over a stopped one. Merging
	// sibling chains is a known limitation.
	nodes := []*Node{leader}
	cur := leader
	for {
		next := in.pickChild(cur)
		if next == nil {
			break
		}
		nodes = append(nodes, next)
		cur = next
	}

	chain := Chain{Nodes: nodes}
	shellIdx := -1
	for i, n := range nodes {
		if in.shells[normalize(n.Name)] {
			chain.Shell = n
			shellIdx = i
			break
		}
	}
	for i, n := range nodes {
		if i <= shellIdx {
			continue
		}
		name := normalize(n.Name)
		if in.shells[name] || in.wrappers[name] {
			continue
		}
		chain.Process = n
		break
	}
	return chain
}

func (in *Introspector) pickChild(n *Node) *Node {
	if len(n.Children) == 0 {
		return nil
	}
	for _, c := range n.Children {
		if c.State != StateStopped {
			return c
		}
	}
	return n.Children[0]
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[normalize(n)] = true
	}
	return set
}

// normalize strips any path prefix and login-shell dash so "-zsh" and
// "/usr/bin/zsh" both classify as "zsh".
func normalize(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "-")
}
