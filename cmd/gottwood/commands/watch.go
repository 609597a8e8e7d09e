package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/watch"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream changes to the selected scope as they arrive",
	Long: `Stream changes to the selected scope in real time.

Each line names the changed record and where the change came from:
  push  - another session's edit, delivered by the backend
  poll  - picked up by the periodic refresh
  load  - the initial load

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  gottwood --dept lighting watch
  gottwood --dept lighting watch --output=json > changes.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// A watcher resumed after Ctrl+Z may have missed pushes; poll at once.
	contChan := make(chan os.Signal, 1)
	signal.Notify(contChan, syscall.SIGCONT)
	defer signal.Stop(contChan)
	go wakeOnResume(ctx, contChan, ws.sess)

	scope := ws.sess.Scope()
	printer.Info("Watching %s / %s / %s (Ctrl+C to stop)\n", scope.Org, scope.Period, scope.Dept)

	ws.sess.Start(ctx)
	return watch.StreamChanges(ctx, ws.sess, format, printer.Stdout)
}

type waker interface {
	Wake()
}

// wakeOnResume requests an immediate poll each time the process is
// continued, until ctx is done.
func wakeOnResume(ctx context.Context, sigs <-chan os.Signal, w waker) {
	for {
		select {
		case <-sigs:
			w.Wake()
		case <-ctx.Done():
			return
		}
	}
}
