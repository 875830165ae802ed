package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelsen/termtap/internal/config"
	"github.com/angelsen/termtap/internal/logging"
)

var (
	flagConfig  string
	flagJSON    bool
	flagVerbose bool

	app *App
)

// NewRootCmd builds the termtap command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "termtap",
		Short: "Process-aware supervisor over tmux panes",
		Long: `termtap sends shell commands into tmux panes, waits until the pane is
genuinely idle (process-tree and wait-channel inspection, not sleeps),
and returns exactly the output each command produced. It also starts
multi-pane service groups with dependency ordering and readiness
patterns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			logging.Setup(logging.Options{
				Level:   cfg.LogLevel,
				File:    cfg.LogFile,
				Verbose: flagVerbose,
			})
			app = newApp(cfg)
			if !app.Mux.IsInstalled() {
				return fmt.Errorf("tmux is not installed or not on PATH")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: XDG config home)")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSendCmd(),
		newReadCmd(),
		newPanesCmd(),
		newInterruptCmd(),
		newKillCmd(),
		newRunCmd(),
		newServeCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
