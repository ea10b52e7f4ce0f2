package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/cache"
	"github.com/vibetree/vibetree/internal/gateway"
	"github.com/vibetree/vibetree/internal/logging"
	"github.com/vibetree/vibetree/internal/pty"
	"github.com/vibetree/vibetree/internal/scanner"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the vibetree gateway (HTTP API, /ws event bus, /ws/term PTY pipe)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Gateway.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Gateway.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			st, err := store.NewStore(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			newVCS := func(localPath string) *vcs.Adapter { return vcs.NewAdapter(localPath) }

			prCache := cache.New[[]vcs.PullRequest]()
			sweeper := cache.NewSweeper(logging.WithComponent("cache"), prCache)
			if err := sweeper.Start(); err != nil {
				return fmt.Errorf("start cache sweeper: %w", err)
			}
			defer sweeper.Stop()

			terminals := pty.NewManager()

			deps := gateway.Deps{
				Store:     st,
				NewVCS:    newVCS,
				Terminals: terminals,
				Logger:    logging.WithComponent("gateway"),
			}
			srv := gateway.New(gateway.Config{Host: cfg.Gateway.Host, Port: cfg.Gateway.Port}, deps)

			scannerBroadcast := broadcast.ScannerAdapter{Hub: srv.Hub()}
			scan := scanner.New(
				func(repoPath string) scanner.VCS { return vcs.NewAdapter(repoPath) },
				st, prCache, scannerBroadcast,
			)
			srv.SetScanner(scan)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(ctx) }()

			fmt.Printf("vibetree serving on http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigCh:
				fmt.Println("\nshutting down...")
				cancel()
				return <-errCh
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "gateway bind host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "gateway bind port (overrides config)")
	return cmd
}
