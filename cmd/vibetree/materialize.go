package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/materializer"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

func newMaterializeCmd() *cobra.Command {
	var (
		specPath string
		localPath string
	)

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Turn a task graph into real git branches and worktrees",
		Long: `Reads a materializer.Input as JSON (from --spec or stdin) and
creates the branches, worktrees, and optionally pull requests it describes,
in parent-before-child order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw io.Reader = os.Stdin
			if specPath != "" {
				f, err := os.Open(specPath)
				if err != nil {
					return fmt.Errorf("open spec: %w", err)
				}
				defer f.Close()
				raw = f
			}

			var in materializer.Input
			if err := json.NewDecoder(raw).Decode(&in); err != nil {
				return fmt.Errorf("decode materialize spec: %w", err)
			}
			if localPath != "" {
				in.LocalPath = localPath
			}
			if in.LocalPath == "" {
				cwd, _ := os.Getwd()
				in.LocalPath = cwd
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if in.Scripts == (materializer.ScriptConfig{}) {
				in.Scripts = cfg.Scripts.AsMaterializerScripts()
			}

			st, err := store.NewStore(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			m := materializer.New(vcs.NewAdapter(in.LocalPath), st)
			result, err := m.Materialize(context.Background(), in)
			if err != nil {
				return fmt.Errorf("materialize: %w", err)
			}

			for _, r := range result.Results {
				status := "ok"
				if !r.Success {
					status = "FAILED: " + r.Error
				} else if r.PRStatus == materializer.PRStatusFailed {
					status = "ok (pr failed: " + r.Error + ")"
				}
				fmt.Printf("%-20s %-30s %s\n", r.TaskID, r.BranchName, status)
			}
			fmt.Printf("\n%d/%d tasks materialized\n", result.Success, result.Total)
			if result.Failed > 0 {
				return fmt.Errorf("%d task(s) failed to materialize", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "path to a materializer.Input JSON file (default: stdin)")
	cmd.Flags().StringVar(&localPath, "path", "", "repo local path (overrides the spec's localPath field)")
	return cmd
}
