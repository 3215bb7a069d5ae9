package commands

import (
	"context"
	"fmt"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/nhle/taskd/internal/app"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the reminder schedule",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		return runUntilShutdown(cmd.Context(), context.Background(), shutdownTimeout, a.Run)
	}),
}

// runUntilShutdown calls run until it returns on its own or a shutdown is
// requested by SIGINT/SIGTERM or by trigger being cancelled. On shutdown
// the context passed to run is cancelled and run gets up to timeout to
// return.
func runUntilShutdown(
	ctx, trigger context.Context,
	timeout time.Duration,
	run func(context.Context) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// runErr is set before done is closed.
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = run(ctx)
		close(done)
	}()

	wait := gfshutdown.GracefulShutdown(
		trigger,
		timeout,
		map[string]gfshutdown.Operation{
			"taskd": func(context.Context) error {
				cancel()
				<-done
				return runErr
			},
		},
	)

	select {
	case <-done:
		return runErr
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	}
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send deadline reminders once and exit",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		res := a.RemindOnce(cmd.Context())

		fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, eligible %d, sent %d, skipped %d, failed %d\n",
			res.Scanned, res.Eligible, res.Sent, res.Skipped, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d reminder(s) failed", res.Failed)
		}
		return nil
	}),
}
