package main

import (
	"github.com/Veraticus/the-receipts-must-flow/internal/tui"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var flags assistantFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the voice concierge in a full-screen chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			assistant, cleanup, err := flags.newAssistant(cmd, store, false)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(cmd.Context(), assistant)
		},
	}

	flags.register(cmd)
	return cmd
}
