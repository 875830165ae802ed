package cli

import (
	"github.com/spf13/cobra"
)

// paneRow is one line of `termtap panes`.
type paneRow struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Window  string `json:"window"`
	Shell   string `json:"shell"`
	Process string `json:"process,omitempty"`
	Current bool   `json:"current,omitempty"`
}

func newPanesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "panes",
		Short: "List panes with shell and current process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := app.Mux.ListPanes()
			if err != nil {
				return emitError(flagJSON, err)
			}

			rows := make([]paneRow, 0, len(infos))
			for _, info := range infos {
				p := app.Sup.Pane(info)
				rows = append(rows, paneRow{
					ID:      info.ID,
					Address: info.Target(),
					Window:  info.WindowName,
					Shell:   p.Shell(),
					Process: p.Process(),
					Current: info.Current,
				})
			}

			if flagJSON {
				return emitJSON(map[string]any{"panes": rows})
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				marker := ""
				if r.Current {
					marker = "*"
				}
				table = append(table, []string{r.ID, r.Address, r.Window, r.Shell, r.Process, marker})
			}
			renderRows([]string{"ID", "ADDRESS", "WINDOW", "SHELL", "PROCESS", ""}, table)
			return nil
		},
	}
}
