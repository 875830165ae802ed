// Package dialog implements the interactive hover confirmation used by
// handlers that guard sensitive targets (SSH). It renders a small form
// in the supervisor's own terminal.
package dialog

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/angelsen/termtap/internal/handler"
)

var dialogLogger = slog.Default().With("component", "dialog")

// Hover asks the user to confirm, edit, or abort a command. It satisfies
// handler.Confirmer.
type Hover struct{}

// New returns the interactive confirmer.
func New() *Hover { return &Hover{} }

// Confirm opens the form. Without a terminal there is nobody to ask; the
// safe answer is abort.
func (h *Hover) Confirm(title, body string) (handler.Decision, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		dialogLogger.Warn("no terminal for confirmation, aborting", "title", title)
		return handler.Decision{Action: handler.ActionAbort}, nil
	}

	choice := "continue"
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Description(body).
			Options(
				huh.NewOption("Continue", "continue"),
				huh.NewOption("Edit command", "edit"),
				huh.NewOption("Abort", "abort"),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return handler.Decision{}, err
	}

	switch choice {
	case "continue":
		return handler.Decision{Action: handler.ActionContinue}, nil
	case "edit":
		var edited string
		input := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Command").Value(&edited),
		))
		if err := input.Run(); err != nil {
			return handler.Decision{}, err
		}
		if edited == "" {
			return handler.Decision{Action: handler.ActionAbort}, nil
		}
		return handler.Decision{Action: handler.ActionEdit, Command: edited}, nil
	default:
		return handler.Decision{Action: handler.ActionAbort}, nil
	}
}
