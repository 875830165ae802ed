// Package services starts named init groups: multi-pane service layouts
// with dependency ordering and readiness detection by output pattern.
// It is a pure user of the pane execution engine.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelsen/termtap/internal/config"
	"github.com/angelsen/termtap/internal/events"
	"github.com/angelsen/termtap/internal/pane"
)

var initLogger = slog.Default().With("component", "services")

// Mux is the session-building slice of the tmux client.
type Mux interface {
	SessionExists(name string) bool
	CreateSession(name, cwd string, env map[string]string, shellCommand string) (string, error)
	CreateWindow(session, name, cwd string) (string, error)
}

// Runner executes commands on addressed panes. *pane.Supervisor
// satisfies it.
type Runner interface {
	ExecuteAt(ctx context.Context, address, command string, opts pane.ExecOptions) (pane.CommandResult, error)
}

// Initializer starts init groups.
type Initializer struct {
	mux     Mux
	runner  Runner
	emitter *events.Emitter

	// DefaultTimeout bounds each service's readiness wait when the
	// service does not set its own.
	DefaultTimeout time.Duration
	PollInterval   time.Duration
}

// New builds an initializer.
func New(mux Mux, runner Runner, emitter *events.Emitter) *Initializer {
	return &Initializer{
		mux:            mux,
		runner:         runner,
		emitter:        emitter,
		DefaultTimeout: 60 * time.Second,
	}
}

// ServiceResult describes one started service.
type ServiceResult struct {
	Service string      `json:"service"`
	Address string      `json:"address"`
	CmdID   string      `json:"cmd_id"`
	Status  pane.Status `json:"status"`
	Elapsed float64     `json:"elapsed_seconds"`
}

// Report is the outcome of starting a whole group.
type Report struct {
	Group    string          `json:"group"`
	Session  string          `json:"session"`
	Services []ServiceResult `json:"services"`
}

// Run starts every service of the group in dependency order. Services
// whose dependencies are unrelated start concurrently. A service with a
// ready pattern blocks its dependents until the pattern matches; one
// without is considered ready as soon as its command is sent.
func (in *Initializer) Run(ctx context.Context, name string, group config.Group) (*Report, error) {
	order, err := topoLayers(group.Services)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}

	session := group.Session
	if session == "" {
		session = name
	}
	if !in.mux.SessionExists(session) {
		if _, err := in.mux.CreateSession(session, group.Cwd, nil, ""); err != nil {
			return nil, fmt.Errorf("create session %q: %w", session, err)
		}
	}

	ready := make(map[string]chan struct{}, len(group.Services))
	for svc := range group.Services {
		ready[svc] = make(chan struct{})
	}

	var mu sync.Mutex
	report := &Report{Group: name, Session: session}

	g, ctx := errgroup.WithContext(ctx)
	for _, layer := range order {
		for _, svc := range layer {
			svc := svc
			service := group.Services[svc]
			g.Go(func() error {
				for _, dep := range service.DependsOn {
					select {
					case <-ready[dep]:
					case <-ctx.Done():
						return ctx.Err()
					}
				}

				result, err := in.startService(ctx, session, svc, service)
				if err != nil {
					return fmt.Errorf("service %q: %w", svc, err)
				}
				mu.Lock()
				report.Services = append(report.Services, result)
				mu.Unlock()

				close(ready[svc])
				if in.emitter != nil {
					in.emitter.Emit(events.ServiceReady{
						Group: name, Service: svc, PaneID: result.Address, At: time.Now(),
					})
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Services, func(i, j int) bool {
		return report.Services[i].Service < report.Services[j].Service
	})
	return report, nil
}

// startService creates the service's window and runs its command.
func (in *Initializer) startService(ctx context.Context, session, name string, service config.Service) (ServiceResult, error) {
	cwd := service.Cwd
	paneID, err := in.mux.CreateWindow(session, name, cwd)
	if err != nil {
		return ServiceResult{}, fmt.Errorf("create window: %w", err)
	}
	initLogger.Info("service pane created", "session", session, "service", name, "pane", paneID)

	command := buildCommand(service)
	opts := pane.ExecOptions{
		Wait:         service.ReadyPattern != "",
		Timeout:      service.Timeout(in.DefaultTimeout),
		ReadyPattern: service.ReadyPattern,
		PollInterval: in.PollInterval,
	}

	result, err := in.runner.ExecuteAt(ctx, paneID, command, opts)
	if err != nil {
		return ServiceResult{}, err
	}
	if opts.Wait && result.Status != pane.StatusReady && result.Status != pane.StatusCompleted {
		return ServiceResult{}, fmt.Errorf("not ready: status %s after %.1fs", result.Status, result.ElapsedSeconds)
	}

	return ServiceResult{
		Service: name,
		Address: result.PaneAddress,
		CmdID:   result.CmdID,
		Status:  result.Status,
		Elapsed: result.ElapsedSeconds,
	}, nil
}

// buildCommand prefixes the command line with the service's environment
// assignments.
func buildCommand(service config.Service) string {
	if len(service.Env) == 0 {
		return service.Command
	}
	keys := make([]string, 0, len(service.Env))
	for k := range service.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(shellQuote(service.Env[k]))
		b.WriteString(" ")
	}
	b.WriteString(service.Command)
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// topoLayers orders services into dependency layers: everything in layer
// n depends only on layers before it. Layer membership is sorted for
// deterministic starts. A cycle is an error.
func topoLayers(services map[string]config.Service) ([][]string, error) {
	indegree := make(map[string]int, len(services))
	dependents := make(map[string][]string)
	for name, svc := range services {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}
		for _, dep := range svc.DependsOn {
			if _, ok := services[dep]; !ok {
				return nil, fmt.Errorf("service %q depends on unknown service %q", name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var layers [][]string
	var current []string
	for name, deg := range indegree {
		if deg == 0 {
			current = append(current, name)
		}
	}

	seen := 0
	for len(current) > 0 {
		sort.Strings(current)
		layers = append(layers, current)
		seen += len(current)

		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if seen != len(services) {
		return nil, fmt.Errorf("dependency cycle among services")
	}
	return layers, nil
}
