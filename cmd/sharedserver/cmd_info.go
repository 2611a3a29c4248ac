package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show a server's full record",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "force JSON output regardless of --output")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	oracle := state.NewOracle(store)

	st, err := oracle.State(name)
	if err != nil {
		return err
	}

	p := getPrinter()
	asJSON := infoJSON || p.IsJSON()

	if st == state.Stopped {
		if asJSON {
			p.JSON(map[string]any{"state": st.String(), "name": name})
			return nil
		}
		p.Info(fmt.Sprintf("%s: stopped", name))
		return nil
	}

	rec, err := store.ReadServer(name)
	if err != nil {
		return err
	}
	var clients lockstore.ClientsRecord
	if st == state.Active {
		clients, _ = store.ReadClients(name)
	}

	if asJSON {
		clientRows := make([]map[string]any, 0, len(clients.Clients))
		for pid, info := range clients.Clients {
			clientRows = append(clientRows, map[string]any{
				"pid": pid, "attached_at": info.AttachedAt, "metadata": info.Metadata,
			})
		}
		out := map[string]any{
			"state":        st.String(),
			"name":         name,
			"pid":          rec.PID,
			"command":      rec.Command,
			"grace_period": rec.GracePeriod,
			"started_at":   rec.StartedAt,
			"log_file":     rec.LogFile,
			"refcount":     clients.Refcount,
			"clients":      clientRows,
		}
		if rec.WatcherPID != nil {
			out["watcher_pid"] = *rec.WatcherPID
		}
		p.JSON(out)
		return nil
	}

	p.Section(name)
	p.KeyValueLine("state", st.String(), "")
	p.KeyValueLine("pid", fmt.Sprintf("%d", rec.PID), "")
	if rec.WatcherPID != nil {
		p.KeyValueLine("watcher pid", fmt.Sprintf("%d", *rec.WatcherPID), "")
	}
	p.KeyValueLine("command", fmt.Sprintf("%v", rec.Command), "dim")
	p.KeyValueLine("grace period", rec.GracePeriod, "")
	p.KeyValueLine("started at", rec.StartedAt.Format("2006-01-02 15:04:05"), "dim")
	if rec.LogFile != "" {
		p.KeyValueLine("log file", rec.LogFile, "dim")
	}
	if st == state.Active {
		p.KeyValueLine("refcount", fmt.Sprintf("%d", clients.Refcount), "")
		for pid, info := range clients.Clients {
			fmt.Printf("  client %d  attached %s", pid, info.AttachedAt.Format(time.RFC3339))
			if info.Metadata != "" {
				fmt.Printf("  (%s)", info.Metadata)
			}
			fmt.Println()
		}
	}
	return nil
}
