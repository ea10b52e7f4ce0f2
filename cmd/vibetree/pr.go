package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/vcs"
)

func newPRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Pull request utilities",
	}
	cmd.AddCommand(newPROpenCmd())
	return cmd
}

func newPROpenCmd() *cobra.Command {
	var localPath string

	cmd := &cobra.Command{
		Use:   "open <branch>",
		Short: "Open a branch's pull request in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branch := args[0]
			if localPath == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getwd: %w", err)
				}
				localPath = cwd
			}
			adapter := vcs.NewAdapter(localPath)
			if err := adapter.OpenPR(context.Background(), branch); err != nil {
				return fmt.Errorf("open pr: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&localPath, "path", "", "repo local path (default: cwd)")
	return cmd
}
