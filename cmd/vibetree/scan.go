package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/cache"
	"github.com/vibetree/vibetree/internal/scanner"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

func newScanCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a repository's branches and worktrees into a tree, printing the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := "."
			if len(args) == 1 {
				localPath = args[0]
			}
			abs, err := os.Getwd()
			if err == nil && localPath == "." {
				localPath = abs
			}

			st, scan, err := newOneShotScanner()
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := scan.Scan(context.Background(), localPath)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			fmt.Printf("repo %s (default: %s)\n", snap.RepoID, snap.DefaultBranch)
			for _, n := range snap.Nodes {
				fmt.Printf("  %-40s %v\n", n.BranchName, n.Badges)
			}
			for _, w := range snap.Warnings {
				fmt.Printf("warning: [%s] %s\n", w.Code, w.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scan result as JSON")
	return cmd
}

// newOneShotScanner builds a throwaway store-backed scanner for a single
// CLI invocation, outside of a running gateway process.
func newOneShotScanner() (*store.Store, *scanner.Scanner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	prCache := cache.New[[]vcs.PullRequest]()
	noopBroadcast := noopBroadcaster{}
	scan := scanner.New(
		func(repoPath string) scanner.VCS { return vcs.NewAdapter(repoPath) },
		st, prCache, noopBroadcast,
	)
	return st, scan, nil
}

// noopBroadcaster discards scan events for one-shot CLI invocations that
// have no /ws subscribers to notify.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(eventType, repoID string, payload any) {}
