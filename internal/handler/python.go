package handler

import (
	"fmt"
	"strings"

	"github.com/angelsen/termtap/internal/proc"
)

// stdinWaitChannels are the kernel wait channels a REPL blocks on while
// reading from its terminal (Linux names).
var stdinWaitChannels = map[string]bool{
	"do_select":             true,
	"do_sys_poll":           true,
	"poll_schedule_timeout": true,
	"ep_poll":               true,
}

// Python classifies CPython and IPython REPLs. A REPL at its prompt has
// no children and blocks in a stdin wait channel; a REPL computing or
// sleeping shows a different channel even though the process state is
// still "sleeping".
type Python struct {
	Base
	waitChannels map[string]bool
}

// NewPython builds the python-family handler. Extra wait channels from
// configuration extend the built-in stdin set.
func NewPython(extraWaitChannels []string) *Python {
	channels := make(map[string]bool, len(stdinWaitChannels)+len(extraWaitChannels))
	for ch := range stdinWaitChannels {
		channels[ch] = true
	}
	for _, ch := range extraWaitChannels {
		channels[ch] = true
	}
	return &Python{waitChannels: channels}
}

func (*Python) Name() string { return "python" }

func (*Python) Matches(node *proc.Node) bool {
	if node == nil {
		return false
	}
	name := node.Name
	return name == "python" || name == "ipython" || strings.HasPrefix(name, "python3")
}

func (p *Python) IsReady(chain proc.Chain) (Verdict, string) {
	if chain.Degraded || chain.Process == nil {
		return VerdictUnknown, "interpreter not visible"
	}
	node := chain.Process

	if node.HasChildren() {
		return VerdictBusy, fmt.Sprintf("%s has a child process", node.Name)
	}
	if node.WaitChannel == "" {
		if node.State == proc.StateRunning {
			return VerdictBusy, fmt.Sprintf("%s is on CPU", node.Name)
		}
		// No wait-channel data on this platform; never report a false
		// ready.
		return VerdictUnknown, "wait channel unavailable"
	}
	if p.waitChannels[node.WaitChannel] {
		return VerdictReady, fmt.Sprintf("%s waiting for stdin (%s)", node.Name, node.WaitChannel)
	}
	return VerdictBusy, fmt.Sprintf("%s blocked in %s", node.Name, node.WaitChannel)
}
