package handler

import (
	"fmt"

	"github.com/angelsen/termtap/internal/proc"
)

// Default is the total fallback classifier: a pane is ready exactly when
// its chain has no interesting descendant below the shell.
type Default struct {
	Base
}

// NewDefault returns the fallback handler.
func NewDefault() *Default { return &Default{} }

func (*Default) Name() string { return "default" }

// Matches accepts every node, including nil.
func (*Default) Matches(*proc.Node) bool { return true }

func (*Default) IsReady(chain proc.Chain) (Verdict, string) {
	if chain.Degraded {
		return VerdictUnknown, "process table unavailable"
	}
	if chain.Process == nil {
		return VerdictReady, "shell at prompt"
	}
	return VerdictBusy, fmt.Sprintf("running %s", chain.Process.Name)
}
