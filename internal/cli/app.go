// Package cli implements the termtap command-line driver. Machine
// consumers pass --json for enveloped output; humans get lipgloss
// tables. The core never prints — rendering happens only here.
package cli

import (
	"sync/atomic"

	"github.com/angelsen/termtap/internal/config"
	"github.com/angelsen/termtap/internal/dialog"
	"github.com/angelsen/termtap/internal/events"
	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/pane"
	"github.com/angelsen/termtap/internal/proc"
	"github.com/angelsen/termtap/internal/services"
	"github.com/angelsen/termtap/internal/stream"
	"github.com/angelsen/termtap/internal/tmux"
)

// App holds the wired subsystems for one CLI invocation.
type App struct {
	Mux  *tmux.Client
	Sup  *pane.Supervisor
	Init *services.Initializer
	Bus  *events.EventBus

	cfg atomic.Pointer[config.Config]
}

// Config returns the current configuration; hot reload swaps the whole
// value.
func (a *App) Config() *config.Config { return a.cfg.Load() }

// SetConfig installs a reloaded configuration.
func (a *App) SetConfig(cfg *config.Config) { a.cfg.Store(cfg) }

// newApp wires the supervisor from configuration.
func newApp(cfg *config.Config) *App {
	mux := tmux.NewClient()

	intro := proc.NewIntrospector(cfg.Process.KnownShells, cfg.Process.SkipWrappers)
	handlers := handler.NewRegistry(
		handler.NewSSH(dialog.New()),
		handler.NewPython(cfg.Process.StdinWaitChannels),
	)

	dir := cfg.StreamDir
	if dir == "" {
		dir = stream.DefaultDir()
	}
	streams := stream.NewRegistry(dir, mux)

	bus := events.NewEventBus()
	emitter := events.NewEmitter(bus, 256)

	sup := pane.NewSupervisor(mux, streams, intro, handlers, emitter)

	init := services.New(mux, sup, emitter)
	init.DefaultTimeout = cfg.CommandTimeout()
	init.PollInterval = cfg.PollInterval()

	app := &App{Mux: mux, Sup: sup, Init: init, Bus: bus}
	app.cfg.Store(cfg)
	return app
}
