package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/the-receipts-must-flow/internal/capture"
	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <file...>",
		Short: "Capture receipts from files",
		Long: `Run each file through a capture session and record the extracted receipt.
The amount is read from the file name when it contains one.`,
		Example: `  receipts scan ~/Downloads/bill_2150.75.pdf
  receipts scan --delay 0s scans/*.jpg`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: bindFlags(map[string]string{"capture.delay": "delay"}),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return common.NewUserError("Cannot read "+path, err)
				}
				if info.IsDir() {
					return common.NewUserError(path+" is a directory", common.ErrUnsupportedFile)
				}
			}

			captureCfg, err := config.LoadCaptureConfig()
			if err != nil {
				return err
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

			ctx, cancel := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Dismissing capture...").
				HandleInterrupts(cmd.Context())
			defer cancel()

			for _, path := range args {
				if ctx.Err() != nil {
					break
				}
				if err := scanOne(ctx, cmd, scanner, path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Duration("delay", config.DefaultCaptureConfig().Delay, "Simulated extraction time")

	return cmd
}

func newScanner(store service.ReceiptWriter, cfg *config.CaptureConfig) (*capture.Scanner, error) {
	scanner, err := capture.NewScanner(store, capture.WithDelay(cfg.Delay))
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	return scanner, nil
}

func scanOne(ctx context.Context, cmd *cobra.Command, scanner *capture.Scanner, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	session := scanner.NewSession()
	extraction, err := session.Submit(ctx, capture.LocalFile{Path: abs})
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cli.ScanProgress(cmd.ErrOrStderr(), extraction.FileName(), scanner.Delay(), extraction.Done())
	}()

	receipt, err := extraction.Wait(ctx)
	if err != nil {
		extraction.Cancel()
	}
	wg.Wait()

	if err != nil && (errors.Is(err, capture.ErrDismissed) || ctx.Err() != nil) {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Capture of "+extraction.FileName()+" dismissed"))
		return nil
	}
	if err != nil {
		return err
	}

	state := session.State()
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ScanIcon+" "+receipt.Merchant, cli.RenderReceipt(receipt)))
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(state.Summary))
	return nil
}

// bindFlags binds flags to viper keys when the command runs.
func bindFlags(keys map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for key, name := range keys {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
		return nil
	}
}
