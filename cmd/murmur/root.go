package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/version"
	"murmur/pkg/config"
)

// newRootCmd creates the root murmur command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "murmur",
		Short:         "Encrypted relay messaging node",
		Long:          "murmur is a peer-to-peer encrypted messaging node.\nIt routes commands and transport events through a relay network.",
		Version:       fmt.Sprintf("murmur %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config.toml")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newLogsCmd(&configPath),
	)

	return cmd
}
