package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/dashboard"
	"github.com/vibetree/vibetree/internal/scanner"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Launch the live-refreshing terminal tree view for a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := "."
			if len(args) == 1 {
				localPath = args[0]
			}
			if localPath == "." {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getwd: %w", err)
				}
				localPath = cwd
			}

			st, scan, err := newOneShotScanner()
			if err != nil {
				return err
			}
			defer st.Close()

			scanFn := func() (*scanner.Snapshot, error) {
				return scan.Scan(context.Background(), localPath)
			}
			return dashboard.Run(version, localPath, scanFn)
		},
	}
	return cmd
}
