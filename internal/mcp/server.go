// Package mcp exposes the supervisor to RPC clients over the Model
// Context Protocol (stdio transport). Every tool wraps exactly one pane
// operation; transport, framing and authentication belong to the SDK.
package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/angelsen/termtap/internal/config"
	"github.com/angelsen/termtap/internal/pane"
	"github.com/angelsen/termtap/internal/services"
	"github.com/angelsen/termtap/internal/tmux"
)

const (
	serverName    = "termtap"
	serverVersion = "0.4.0"
)

// Mux is the session-level slice of the tmux client the server needs
// beyond pane execution.
type Mux interface {
	ListPanes() ([]tmux.PaneInfo, error)
	KillSession(name string) error
}

// Server is the termtap MCP server.
type Server struct {
	sup  *pane.Supervisor
	init *services.Initializer
	mux  Mux
	cfg  func() *config.Config // provider so hot reload reaches long-lived sessions

	srv *mcpsdk.Server
}

// NewServer wires the tools. cfg is a provider because a serve session
// outlives config edits.
func NewServer(sup *pane.Supervisor, init *services.Initializer, mux Mux, cfg func() *config.Config) *Server {
	s := &Server{sup: sup, init: init, mux: mux, cfg: cfg}
	s.srv = mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerTools()
	return s
}

// Run serves MCP on stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.srv.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "send",
		Description: "Send a shell command to a tmux pane and wait until the pane is genuinely ready for input (process-tree idle detection, not sleep). Returns the exact output the command produced. Addresses: '%42', 'session:window.pane', bare session, or 'session.service'.",
	}, s.handleSend)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "read",
		Description: "Read output from a pane's stream: everything since the last read by default, the full mirror, or the visible screen.",
	}, s.handleRead)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "list_panes",
		Description: "List every tmux pane with its address, shell, and current process.",
	}, s.handleListPanes)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "interrupt",
		Description: "Send Ctrl-C to a pane. Safe against a running send; the running command reports aborted.",
	}, s.handleInterrupt)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "run_group",
		Description: "Start a configured init group: create its session, start each service in dependency order, and wait for ready patterns.",
	}, s.handleRunGroup)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "kill_session",
		Description: "Kill a tmux session and every pane in it.",
	}, s.handleKillSession)
}

// SendArgs are the parameters of the send tool.
type SendArgs struct {
	Pane         string  `json:"pane" jsonschema:"target pane address"`
	Command      string  `json:"command" jsonschema:"shell command to send"`
	Wait         *bool   `json:"wait,omitempty" jsonschema:"wait for completion (default true)"`
	TimeoutSecs  float64 `json:"timeout,omitempty" jsonschema:"seconds to wait before giving up"`
	ReadyPattern string  `json:"ready_pattern,omitempty" jsonschema:"regex that marks a long-lived service as ready"`
}

func (s *Server) handleSend(ctx context.Context, req *mcpsdk.CallToolRequest, args SendArgs) (*mcpsdk.CallToolResult, pane.CommandResult, error) {
	wait := true
	if args.Wait != nil {
		wait = *args.Wait
	}
	timeout := s.cfg().CommandTimeout()
	if args.TimeoutSecs > 0 {
		timeout = time.Duration(args.TimeoutSecs * float64(time.Second))
	}

	result, err := s.sup.ExecuteAt(ctx, args.Pane, args.Command, pane.ExecOptions{
		Wait:         wait,
		Timeout:      timeout,
		ReadyPattern: args.ReadyPattern,
		PollInterval: s.cfg().PollInterval(),
	})
	if err != nil {
		return nil, pane.CommandResult{}, err
	}
	return nil, result, nil
}

// ReadArgs are the parameters of the read tool.
type ReadArgs struct {
	Pane  string `json:"pane" jsonschema:"target pane address"`
	Mode  string `json:"mode,omitempty" jsonschema:"since_last (default), all, or visible"`
	Lines int    `json:"lines,omitempty" jsonschema:"limit to trailing lines"`
}

// ReadResult carries pane output back to the client.
type ReadResult struct {
	Pane   string `json:"pane"`
	Output string `json:"output"`
}

func (s *Server) handleRead(ctx context.Context, req *mcpsdk.CallToolRequest, args ReadArgs) (*mcpsdk.CallToolResult, ReadResult, error) {
	p, err := s.sup.ResolveUnique(args.Pane)
	if err != nil {
		return nil, ReadResult{}, err
	}

	mode := pane.ReadSinceLast
	switch args.Mode {
	case "all":
		mode = pane.ReadAll
	case "visible":
		mode = pane.ReadVisible
	case "", "since_last":
	default:
		return nil, ReadResult{}, fmt.Errorf("unknown read mode %q", args.Mode)
	}

	out, err := p.ReadOutput(mode, args.Lines)
	if err != nil {
		return nil, ReadResult{}, err
	}
	return nil, ReadResult{Pane: p.Address(), Output: out}, nil
}

// ListPanesArgs has no parameters.
type ListPanesArgs struct{}

// PaneSummary is one row of list_panes.
type PaneSummary struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Shell   string `json:"shell"`
	Process string `json:"process,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// ListPanesResult wraps the pane rows.
type ListPanesResult struct {
	Panes []PaneSummary `json:"panes"`
}

func (s *Server) handleListPanes(ctx context.Context, req *mcpsdk.CallToolRequest, args ListPanesArgs) (*mcpsdk.CallToolResult, ListPanesResult, error) {
	infos, err := s.mux.ListPanes()
	if err != nil {
		return nil, ListPanesResult{}, err
	}
	result := ListPanesResult{Panes: make([]PaneSummary, 0, len(infos))}
	for _, info := range infos {
		p := s.sup.Pane(info)
		result.Panes = append(result.Panes, PaneSummary{
			ID:      info.ID,
			Address: info.Target(),
			Shell:   p.Shell(),
			Process: p.Process(),
			Current: info.Current,
		})
	}
	return nil, result, nil
}

// InterruptArgs are the parameters of the interrupt tool.
type InterruptArgs struct {
	Pane string `json:"pane" jsonschema:"target pane address"`
}

// OkResult acknowledges a side-effect-only tool.
type OkResult struct {
	Ok bool `json:"ok"`
}

func (s *Server) handleInterrupt(ctx context.Context, req *mcpsdk.CallToolRequest, args InterruptArgs) (*mcpsdk.CallToolResult, OkResult, error) {
	p, err := s.sup.ResolveUnique(args.Pane)
	if err != nil {
		return nil, OkResult{}, err
	}
	if err := p.Interrupt(); err != nil {
		return nil, OkResult{}, err
	}
	return nil, OkResult{Ok: true}, nil
}

// RunGroupArgs are the parameters of the run_group tool.
type RunGroupArgs struct {
	Group string `json:"group" jsonschema:"init group name from configuration"`
}

func (s *Server) handleRunGroup(ctx context.Context, req *mcpsdk.CallToolRequest, args RunGroupArgs) (*mcpsdk.CallToolResult, services.Report, error) {
	group, ok := s.cfg().InitGroup(args.Group)
	if !ok {
		return nil, services.Report{}, fmt.Errorf("init group %q not configured (have: %v)", args.Group, s.cfg().ListInitGroups())
	}
	report, err := s.init.Run(ctx, args.Group, group)
	if err != nil {
		if report != nil {
			return nil, *report, err
		}
		return nil, services.Report{}, err
	}
	return nil, *report, nil
}

// KillSessionArgs are the parameters of the kill_session tool.
type KillSessionArgs struct {
	Session string `json:"session" jsonschema:"tmux session name"`
}

func (s *Server) handleKillSession(ctx context.Context, req *mcpsdk.CallToolRequest, args KillSessionArgs) (*mcpsdk.CallToolResult, OkResult, error) {
	if err := s.mux.KillSession(args.Session); err != nil {
		return nil, OkResult{}, err
	}
	return nil, OkResult{Ok: true}, nil
}
