package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/ofx"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var (
		verbose      bool
		noCheckpoint bool
	)

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import spends from OFX/QFX bank statements",
		Long: `Import debits from OFX or QFX statements exported from your bank as receipts.
Credits are skipped and transactions imported before are not added again.`,
		Example: `  # Import single file
  receipts import ~/Downloads/hdfc_may_2024.ofx

  # Import every statement in a directory
  receipts import ~/Downloads/statements/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPatterns(args)
			if err != nil {
				return err
			}

			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if !noCheckpoint {
				if manager, err := b.checkpoints(); err != nil {
					slog.Warn("Skipping checkpoint before import", "error", err)
				} else if err := manager.AutoCheckpoint(cmd.Context(), "import"); err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
					slog.Warn("Failed to checkpoint before import", "error", err)
				}
			}

			out := cmd.OutOrStdout()
			importer := ofx.NewImporter(store)
			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(files), "Importing statements")

			var total ofx.ImportResult
			for _, path := range files {
				result, err := importFile(cmd, importer, path, func(r model.Receipt) {
					if verbose {
						fmt.Fprintf(out, "  %s %s\n", cli.SuccessIcon, r.Summary)
					}
				})
				if err != nil {
					return err
				}
				total.Added = append(total.Added, result.Added...)
				total.Duplicates += result.Duplicates
				total.Credits += result.Credits
				_ = bar.Add(1)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d receipts from %d file(s)", len(total.Added), len(files))))
			if total.Duplicates > 0 || total.Credits > 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("  skipped %d already imported, %d credits",
					total.Duplicates, total.Credits)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each imported receipt")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "Do not checkpoint the receipts before importing")

	return cmd
}

func importFile(cmd *cobra.Command, importer *ofx.Importer, path string, onAdd func(model.Receipt)) (*ofx.ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewUserError("Cannot open "+path, err)
	}
	defer file.Close()

	result, err := importer.Import(cmd.Context(), file, onAdd)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
	}
	slog.Info("Imported statement",
		"file", filepath.Base(path),
		"added", len(result.Added),
		"duplicates", result.Duplicates,
		"credits", result.Credits)
	return result, nil
}

// expandPatterns resolves shell globs, keeping plain paths that exist.
func expandPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, common.NewUserError("No files found to import", common.ErrNotFound)
	}
	return files, nil
}
