// Command vibetree is the CLI entrypoint for VibeTree: a multi-repository
// worktree orchestrator. Grounded on cmd/pilot's cobra rootCmd shape —
// persistent --config flag, one newXCmd() constructor per subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/config"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vibetree",
		Short: "Coordinate parallel AI coding sessions across git worktrees",
		Long: `VibeTree scans a repository's branches and worktrees into a tree,
materializes planned branch/worktree trees, and coordinates the terminal
sessions working in them.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vibetree/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(),
		newScanCmd(),
		newMaterializeCmd(),
		newTreeCmd(),
		newPRCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vibetree version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vibetree v%s\n", version)
		},
	}
}

// loadConfig resolves --config > default path, falling back to defaults
// when the file doesn't exist.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}
