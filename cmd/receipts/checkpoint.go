package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage receipt checkpoints",
		Long: `Create, list, restore, and delete checkpoints of the receipt collection.

Checkpoints allow you to save the current receipts before making risky
changes, such as a large import, and restore them if needed.`,
		Example: `  # Create a checkpoint before importing statements
  receipts checkpoint create --tag "pre-may-import"

  # List all checkpoints
  receipts checkpoint list

  # Restore from a checkpoint
  receipts checkpoint restore pre-may-import

  # Delete an old checkpoint
  receipts checkpoint delete old-checkpoint`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())

	return cmd
}

func createCheckpointCmd() *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Loading the store seeds an empty slot so there is always something to save.
			_, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			manager, err := b.checkpoints()
			if err != nil {
				return err
			}

			info, err := manager.Create(cmd.Context(), tag, description)
			if errors.Is(err, storage.ErrCheckpointExists) || errors.Is(err, storage.ErrInvalidCheckpointID) {
				return common.NewUserError("Cannot create checkpoint "+tag, err)
			}
			if err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created checkpoint %s (%s, %d receipts)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				humanize.Bytes(uint64(info.FileSize)),
				info.Receipts)

			if info.Description != "" {
				fmt.Fprintf(out, "  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")

	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			manager, err := b.checkpoints()
			if err != nil {
				return err
			}

			checkpoints, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(checkpoints) == 0 {
				fmt.Fprintln(out, cli.SubtitleStyle.Render("No checkpoints found."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
			fmt.Fprintln(w, strings.Join([]string{
				headerStyle.Render("NAME"),
				headerStyle.Render("CREATED"),
				headerStyle.Render("SIZE"),
				headerStyle.Render("RECEIPTS"),
				headerStyle.Render("TYPE"),
			}, "\t"))

			for _, cp := range checkpoints {
				typeLabel := "manual"
				if cp.IsAuto {
					typeLabel = "auto"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					cli.InfoStyle.Render(cp.ID),
					humanize.Time(cp.CreatedAt),
					humanize.Bytes(uint64(cp.FileSize)),
					cp.Receipts,
					cli.SubtitleStyle.Render(typeLabel),
				)
			}
			return w.Flush()
		},
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore receipts from a checkpoint",
		Long: `Replace the current receipts with a checkpoint. The receipts being
replaced are kept as an automatic checkpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checkpointID := args[0]

			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			manager, err := b.checkpoints()
			if err != nil {
				return err
			}

			info, err := manager.Info(ctx, checkpointID)
			if err != nil {
				return checkpointError(checkpointID, err)
			}

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s This will replace your current receipts with checkpoint %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(checkpointID))
				fmt.Fprintf(cmd.OutOrStdout(), "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				if info.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  Description: %s\n", info.Description)
				}
				if !confirm(cmd, "Continue?") {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			if err := manager.Restore(ctx, checkpointID); err != nil {
				return checkpointError(checkpointID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Restored %d receipts from checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				info.Receipts,
				cli.InfoStyle.Render(checkpointID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checkpointID := args[0]

			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			manager, err := b.checkpoints()
			if err != nil {
				return err
			}

			info, err := manager.Info(ctx, checkpointID)
			if err != nil {
				return checkpointError(checkpointID, err)
			}

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s This will permanently delete checkpoint %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(checkpointID))
				fmt.Fprintf(cmd.OutOrStdout(), "  Size: %s\n", humanize.Bytes(uint64(info.FileSize)))
				if !confirm(cmd, "Continue?") {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := manager.Delete(ctx, checkpointID); err != nil {
				return checkpointError(checkpointID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(checkpointID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func checkpointError(id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrCheckpointNotFound):
		return common.NewUserError("Checkpoint "+id+" not found", err)
	case errors.Is(err, storage.ErrCheckpointCorrupted):
		return common.NewUserError("Checkpoint "+id+" is damaged and cannot be restored", err)
	case errors.Is(err, storage.ErrInvalidCheckpointID):
		return common.NewUserError("Invalid checkpoint name "+id, err)
	}
	return fmt.Errorf("checkpoint %s: %w", id, err)
}

// confirm asks a yes/no question on the command's input. Anything but an
// answer starting with y is a no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s (y/N) ", question)
	answer, err := cli.NewNonBlockingReader(cmd.InOrStdin()).ReadLine(cmd.Context())
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}
