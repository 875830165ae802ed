package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelsen/termtap/internal/pane"
)

func newSendCmd() *cobra.Command {
	var (
		noWait       bool
		timeoutSecs  float64
		readyPattern string
		pasteMode    string
	)

	cmd := &cobra.Command{
		Use:   "send <address> <command>...",
		Short: "Send a command to a pane and wait for its output",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			command := strings.Join(args[1:], " ")

			opts := pane.ExecOptions{
				Wait:         !noWait,
				Timeout:      app.Config().CommandTimeout(),
				ReadyPattern: readyPattern,
				PollInterval: app.Config().PollInterval(),
			}
			if timeoutSecs > 0 {
				opts.Timeout = time.Duration(timeoutSecs * float64(time.Second))
			}
			if pc, ok := app.Config().PaneConfig(address); ok {
				if opts.ReadyPattern == "" {
					opts.ReadyPattern = pc.ReadyPattern
				}
				if timeoutSecs == 0 && pc.TimeoutSecs > 0 {
					opts.Timeout = time.Duration(pc.TimeoutSecs) * time.Second
				}
			}
			switch pasteMode {
			case "force":
				opts.Paste = pane.PasteForce
			case "never":
				opts.Paste = pane.PasteNever
			case "", "auto":
			default:
				return emitError(flagJSON, fmt.Errorf("unknown --paste mode %q", pasteMode))
			}

			result, err := app.Sup.ExecuteAt(cmd.Context(), address, command, opts)
			if err != nil {
				return emitError(flagJSON, err)
			}
			if flagJSON {
				return emitJSON(result)
			}

			switch result.Status {
			case pane.StatusCompleted, pane.StatusReady:
				fmt.Print(result.Output)
				if result.Output != "" && !strings.HasSuffix(result.Output, "\n") {
					fmt.Println()
				}
				fmt.Println(dimStyle.Render(fmt.Sprintf("[%s] %s in %.2fs",
					result.CmdID, result.Status, result.ElapsedSeconds)))
			case pane.StatusRunning:
				fmt.Println(okStyle.Render(fmt.Sprintf("[%s] running on %s", result.CmdID, result.PaneAddress)))
			default:
				fmt.Print(result.Output)
				fmt.Println(warnStyle.Render(fmt.Sprintf("[%s] %s after %.2fs",
					result.CmdID, result.Status, result.ElapsedSeconds)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return immediately without waiting")
	cmd.Flags().Float64Var(&timeoutSecs, "timeout", 0, "seconds to wait (default from config)")
	cmd.Flags().StringVar(&readyPattern, "ready-pattern", "", "regex marking a long-lived service ready")
	cmd.Flags().StringVar(&pasteMode, "paste", "auto", "paste-buffer routing: auto, force, never")
	return cmd
}
