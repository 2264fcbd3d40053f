package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/ingest"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func watchCmd() *cobra.Command {
	var initialScan bool

	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Capture receipts dropped into inbox directories",
		Long: `Watch directories for new PDF and image files and capture each one as a
receipt. Without arguments the configured capture.inbox is watched.`,
		Example: `  receipts watch ~/Receipts/inbox
  receipts watch --initial-scan ~/Receipts/inbox ~/Downloads`,
		PreRunE: bindFlags(map[string]string{"capture.delay": "delay", "capture.workers": "workers"}),
		RunE: func(cmd *cobra.Command, args []string) error {
			captureCfg, err := config.LoadCaptureConfig()
			if err != nil {
				return err
			}

			roots := args
			if len(roots) == 0 && captureCfg.Inbox != "" {
				roots = []string{captureCfg.Inbox}
			}
			if len(roots) == 0 {
				return common.NewUserError("No inbox to watch (pass a directory or set capture.inbox)", ingest.ErrNoRoots)
			}

			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			scanner, err := newScanner(store, captureCfg)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Stopping inbox watcher...")
			ctx, cancel := handler.HandleInterrupts(cmd.Context())
			defer cancel()

			paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       roots,
				InitialScan: initialScan,
				Debounce:    ingest.DefaultDebounce,
			})
			if err != nil {
				return common.NewUserError("Cannot watch inbox", err)
			}

			out := cmd.OutOrStdout()
			var outMu sync.Mutex
			pipeline := ingest.NewPipeline(scanner, captureCfg.Workers, func(path string, r model.Receipt) {
				outMu.Lock()
				defer outMu.Unlock()
				fmt.Fprintf(out, "%s %s → %s under %s\n",
					cli.InboxIcon, filepath.Base(path), money.Format(r.Amount, r.Currency), r.Category)
			})

			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Watching %d director(ies), press Ctrl+C to stop", len(roots))))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return pipeline.Run(gctx, paths)
			})
			g.Go(func() error {
				for err := range watchErrs {
					common.LogWarn("Inbox watcher error", common.Fields{"error": err.Error()})
				}
				return nil
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("inbox watcher failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Processed %d file(s)", pipeline.Processed())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "Also capture files already in the inbox")
	cmd.Flags().Int("workers", config.DefaultCaptureConfig().Workers, "Concurrent capture sessions")
	cmd.Flags().Duration("delay", config.DefaultCaptureConfig().Delay, "Simulated extraction time")

	return cmd
}
