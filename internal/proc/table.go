package proc

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

var tableLogger = slog.Default().With("component", "proc.table")

// Table is an indexed snapshot of the OS process table.
type Table struct {
	byPID map[int]*Node
}

// Snapshot scans the process table once and links children to parents.
// Individual processes that disappear mid-scan are skipped; only a failure
// to enumerate the table at all is an error.
func Snapshot() (*Table, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	byPID := make(map[int]*Node, len(procs))
	for _, p := range procs {
		pid := int(p.Pid)

		name, err := p.Name()
		if err != nil {
			// Process exited between listing and stat; ignore.
			continue
		}
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}

		node := &Node{
			PID:         pid,
			PPID:        int(ppid),
			Name:        name,
			State:       StateUnknown,
			WaitChannel: readWaitChannel(pid),
		}
		if statuses, err := p.Status(); err == nil && len(statuses) > 0 {
			node.State = mapStatus(statuses[0])
		}
		byPID[pid] = node
	}

	t := &Table{byPID: byPID}
	t.link()
	return t, nil
}

// NewTable builds a table from pre-made nodes. Used by tests and by
// callers replaying a recorded process table.
func NewTable(nodes []*Node) *Table {
	byPID := make(map[int]*Node, len(nodes))
	for _, n := range nodes {
		n.Children = nil
		byPID[n.PID] = n
	}
	t := &Table{byPID: byPID}
	t.link()
	return t
}

func (t *Table) link() {
	for _, n := range t.byPID {
		if parent, ok := t.byPID[n.PPID]; ok && parent != n {
			parent.Children = append(parent.Children, n)
		}
	}
	// Child order from a map scan is nondeterministic; order by PID so
	// chain selection is stable across snapshots.
	for _, n := range t.byPID {
		sort.Slice(n.Children, func(i, j int) bool {
			return n.Children[i].PID < n.Children[j].PID
		})
	}
}

// Node returns the node for pid, or nil.
func (t *Table) Node(pid int) *Node {
	return t.byPID[pid]
}

// Descendants collects all descendants of root depth-first. The root
// itself is not included.
func (t *Table) Descendants(root int) []*Node {
	n := t.byPID[root]
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// Len returns the number of processes in the snapshot.
func (t *Table) Len() int { return len(t.byPID) }

// readWaitChannel reads /proc/<pid>/wchan. Returns "" when the file is
// absent (non-Linux), unreadable, or reports "0" (running).
func readWaitChannel(pid int) string {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/wchan")
	if err != nil {
		return ""
	}
	wchan := strings.TrimSpace(string(data))
	if wchan == "0" || wchan == "-" {
		return ""
	}
	return wchan
}

func mapStatus(s string) State {
	switch strings.ToLower(s) {
	case process.Running, "r":
		return StateRunning
	case process.Sleep, process.Idle, process.Wait, "s", "d", "i":
		return StateSleeping
	case process.Stop, "t":
		return StateStopped
	case process.Zombie, "z":
		return StateZombie
	default:
		tableLogger.Debug("unrecognized process status", "status", s)
		return StateUnknown
	}
}
