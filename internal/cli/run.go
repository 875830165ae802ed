package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelsen/termtap/internal/events"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [group]",
		Short: "Start a configured init group (no argument lists groups)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				groups := app.Config().ListInitGroups()
				if flagJSON {
					return emitJSON(map[string]any{"groups": groups})
				}
				if len(groups) == 0 {
					fmt.Println(dimStyle.Render("no init groups configured"))
					return nil
				}
				for _, g := range groups {
					fmt.Println(g)
				}
				return nil
			}

			name := args[0]
			group, ok := app.Config().InitGroup(name)
			if !ok {
				return emitError(flagJSON, fmt.Errorf("init group %q not configured", name))
			}

			if !flagJSON {
				unsub := app.Bus.Subscribe("service_ready", func(ev events.BusEvent) {
					if ready, ok := ev.(events.ServiceReady); ok {
						fmt.Println(okStyle.Render("ready: " + ready.Service))
					}
				})
				defer unsub()
			}

			report, err := app.Init.Run(cmd.Context(), name, group)
			if err != nil {
				return emitError(flagJSON, err)
			}
			if flagJSON {
				return emitJSON(report)
			}

			rows := make([][]string, 0, len(report.Services))
			for _, svc := range report.Services {
				rows = append(rows, []string{
					svc.Service, svc.Address, string(svc.Status),
					fmt.Sprintf("%.1fs", svc.Elapsed),
				})
			}
			renderRows([]string{"SERVICE", "PANE", "STATUS", "ELAPSED"}, rows)
			return nil
		},
	}
}

func newKillCmd() *cobra.Command {
	var session bool

	cmd := &cobra.Command{
		Use:   "kill <address|session>",
		Short: "Kill a pane, or a whole session with --session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session {
				if err := app.Mux.KillSession(args[0]); err != nil {
					return emitError(flagJSON, err)
				}
				if flagJSON {
					return emitJSON(map[string]string{"session": args[0]})
				}
				fmt.Println(okStyle.Render("killed session " + args[0]))
				return nil
			}

			p, err := app.Sup.ResolveUnique(args[0])
			if err != nil {
				return emitError(flagJSON, err)
			}
			if err := p.Kill(); err != nil {
				return emitError(flagJSON, err)
			}
			if flagJSON {
				return emitJSON(map[string]string{"pane": p.ID()})
			}
			fmt.Println(okStyle.Render("killed " + p.ID()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&session, "session", false, "treat the argument as a session name")
	return cmd
}
