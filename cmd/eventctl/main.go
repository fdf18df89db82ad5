// Command eventctl runs operational tasks against an event manager
// installation: backups, health checks and first-time setup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/event-manager/internal/config"
	"github.com/example/event-manager/internal/logging"
	"github.com/spf13/cobra"
)

// errUnhealthy exits 1 without printing an extra error line.
var errUnhealthy = errors.New("health check found issues")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stderr).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// env is what every subcommand needs: loaded configuration and a logger.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand(logOutput io.Writer) *cobra.Command {
	var e env
	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Operational tasks for the event manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = logging.New(logOutput, cfg.LogLevel, "text")
			return nil
		},
	}

	root.AddCommand(
		newBackupCommand(&e),
		newHealthCommand(&e),
		newSetupCommand(&e),
	)
	return root
}
