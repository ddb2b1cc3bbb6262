package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"murmur/pkg/config"
	"murmur/pkg/history"
)

// logsConfig holds configuration for the logs command.
type logsConfig struct {
	kind string
	tail int
}

// newLogsCmd creates the "murmur logs" subcommand.
func newLogsCmd(configPath *string) *cobra.Command {
	var cfg logsConfig

	cmd := &cobra.Command{
		Use:   "logs [peer]",
		Short: "Query the node activity log",
		Long:  "Displays recorded node activity.\nOptionally filter by peer and activity kind.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var peer string
			if len(args) == 1 {
				peer = args[0]
			}

			nodeCfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			reader, err := history.NewReader(filepath.Join(nodeCfg.DataDir, "node.db"))
			if err != nil {
				return fmt.Errorf("open activity log: %w", err)
			}
			defer reader.Close()

			entries, err := reader.Query(cmd.Context(), history.QueryOpts{
				Peer:  peer,
				Kind:  cfg.kind,
				Limit: cfg.tail,
			})
			if err != nil {
				return err
			}

			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.tail, "tail", 20, "number of recent entries to show")
	cmd.Flags().StringVar(&cfg.kind, "kind", "", "filter by activity kind (e.g. message)")

	return cmd
}

// printEntries writes entries oldest first, so the terminal reads downward in
// time order.
func printEntries(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no activity found")
		return
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		peer := e.Peer
		if peer == "" {
			peer = "-"
		}
		fmt.Fprintf(w, "%s  %-12s %-16s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, peer, e.Detail)
	}
}
