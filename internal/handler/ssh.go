package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/angelsen/termtap/internal/proc"
)

var sshLogger = slog.Default().With("component", "handler.ssh")

// SSH guards commands headed for a remote host behind an interactive
// confirmation. Readiness reuses the child/wait-channel logic: an idle
// ssh client has no children and blocks in a stdin wait channel.
type SSH struct {
	confirmer Confirmer
}

// NewSSH builds the ssh handler. A nil confirmer aborts every send,
// which is the safe non-interactive default.
func NewSSH(confirmer Confirmer) *SSH {
	return &SSH{confirmer: confirmer}
}

func (*SSH) Name() string { return "ssh" }

func (*SSH) Matches(node *proc.Node) bool {
	return node != nil && node.Name == "ssh"
}

func (s *SSH) IsReady(chain proc.Chain) (Verdict, string) {
	if chain.Degraded || chain.Process == nil {
		return VerdictUnknown, "ssh client not visible"
	}
	node := chain.Process
	if node.HasChildren() {
		return VerdictBusy, "ssh has a child process"
	}
	if node.WaitChannel == "" {
		if node.State == proc.StateRunning {
			return VerdictBusy, "ssh is on CPU"
		}
		return VerdictUnknown, "wait channel unavailable"
	}
	if stdinWaitChannels[node.WaitChannel] {
		return VerdictReady, fmt.Sprintf("ssh waiting for input (%s)", node.WaitChannel)
	}
	return VerdictBusy, fmt.Sprintf("ssh blocked in %s", node.WaitChannel)
}

// BeforeSend asks the user before a command goes to the remote side.
func (s *SSH) BeforeSend(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.confirmer == nil {
		sshLogger.Warn("no confirmer available, refusing ssh send", "command", command)
		return "", fmt.Errorf("ssh target needs confirmation: %w", ErrAborted)
	}

	decision, err := s.confirmer.Confirm(
		"Send to SSH session?",
		fmt.Sprintf("The target pane is an SSH session. Command:\n\n  %s", command),
	)
	if err != nil {
		return "", fmt.Errorf("confirm ssh send: %w", err)
	}
	switch decision.Action {
	case ActionContinue:
		return command, nil
	case ActionEdit:
		return decision.Command, nil
	default:
		return "", ErrAborted
	}
}

func (*SSH) AfterComplete(string, string) {}
