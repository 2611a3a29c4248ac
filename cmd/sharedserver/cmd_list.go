package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/registry"
	ui "github.com/georgeharker/sharedserver/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known servers and their state",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	reg := registry.New(store)
	summaries, err := reg.List()
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		rows := make([]map[string]any, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, map[string]any{
				"name": s.Name, "state": s.State.String(), "pid": s.PID,
				"refcount": s.Refcount, "uptime_seconds": s.Uptime.Seconds(),
			})
		}
		p.JSON(rows)
		return nil
	}

	if len(summaries) == 0 {
		p.Info("no servers found")
		return nil
	}

	c := p.Colors
	headers := []string{"NAME", "STATE", "PID", "REFCOUNT", "UPTIME"}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Name, string(s.State), fmt.Sprintf("%d", s.PID),
			fmt.Sprintf("%d", s.Refcount), s.Uptime.Round(1e9).String(),
		})
	}
	fmt.Print(ui.Table(c, headers, rows, nil))
	return nil
}
