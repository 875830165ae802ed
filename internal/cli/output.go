package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/angelsen/termtap/internal/handler"
	"github.com/angelsen/termtap/internal/stream"
	"github.com/angelsen/termtap/internal/tmux"
)

// Machine-readable error codes for driver programs.
const (
	ErrCodePaneNotFound     = "PANE_NOT_FOUND"
	ErrCodeAddressAmbiguous = "ADDRESS_AMBIGUOUS"
	ErrCodeServiceNotFound  = "SERVICE_NOT_FOUND"
	ErrCodeCurrentPane      = "CURRENT_PANE"
	ErrCodeAborted          = "ABORTED"
	ErrCodeMuxError         = "MUX_ERROR"
	ErrCodeStreamError      = "STREAM_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Response is the JSON envelope every --json command emits. Check
// success first; error_code is stable for programmatic handling.
type Response struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func newResponse(data any) Response {
	return Response{
		Success:   true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func newErrorResponse(err error) Response {
	return Response{
		Success:   false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     err.Error(),
		ErrorCode: errorCode(err),
	}
}

// errorCode maps the error taxonomy onto stable codes.
func errorCode(err error) string {
	var amb *tmux.AmbiguousError
	var mux *tmux.MuxError
	switch {
	case errors.As(err, &amb):
		return ErrCodeAddressAmbiguous
	case errors.Is(err, tmux.ErrServiceNotFound):
		return ErrCodeServiceNotFound
	case errors.Is(err, tmux.ErrPaneNotFound):
		return ErrCodePaneNotFound
	case errors.Is(err, tmux.ErrCurrentPane):
		return ErrCodeCurrentPane
	case errors.Is(err, handler.ErrAborted):
		return ErrCodeAborted
	case errors.Is(err, stream.ErrUnknownCommand), errors.Is(err, stream.ErrUnknownMark):
		return ErrCodeStreamError
	case errors.As(err, &mux):
		return ErrCodeMuxError
	default:
		return ErrCodeInternalError
	}
}

// emitJSON writes an envelope to stdout.
func emitJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(newResponse(data))
}

// emitError renders an error: enveloped under --json, plain otherwise.
// Always returns the error so cobra sets the exit status.
func emitError(jsonOut bool, err error) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(newErrorResponse(err))
		return err
	}
	fmt.Fprintln(os.Stderr, "termtap:", err)
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// renderRows prints a minimal aligned table.
func renderRows(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := ""
	for i, h := range header {
		line += fmt.Sprintf("%-*s  ", widths[i], h)
	}
	fmt.Println(headerStyle.Render(line))
	for _, row := range rows {
		line = ""
		for i, cell := range row {
			line += fmt.Sprintf("%-*s  ", widths[i], cell)
		}
		fmt.Println(line)
	}
}
