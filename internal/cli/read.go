package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelsen/termtap/internal/pane"
)

func newReadCmd() *cobra.Command {
	var (
		all     bool
		visible bool
		lines   int
	)

	cmd := &cobra.Command{
		Use:   "read <address>",
		Short: "Read pane output since the last read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Sup.ResolveUnique(args[0])
			if err != nil {
				return emitError(flagJSON, err)
			}

			mode := pane.ReadSinceLast
			if all {
				mode = pane.ReadAll
			}
			if visible {
				mode = pane.ReadVisible
			}

			out, err := p.ReadOutput(mode, lines)
			if err != nil {
				return emitError(flagJSON, err)
			}
			if flagJSON {
				return emitJSON(map[string]string{"pane": p.Address(), "output": out})
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "full stream mirror instead of unread output")
	cmd.Flags().BoolVar(&visible, "visible", false, "current screen content from tmux")
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "limit to trailing lines")
	return cmd
}

func newInterruptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interrupt <address>",
		Short: "Send Ctrl-C to a pane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Sup.ResolveUnique(args[0])
			if err != nil {
				return emitError(flagJSON, err)
			}
			if err := p.Interrupt(); err != nil {
				return emitError(flagJSON, err)
			}
			if flagJSON {
				return emitJSON(map[string]string{"pane": p.Address()})
			}
			fmt.Println(okStyle.Render("interrupted " + p.Address()))
			return nil
		},
	}
}
