package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/inference"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/Veraticus/the-receipts-must-flow/internal/receipts"
	"github.com/spf13/cobra"
)

const (
	defaultManualMethod   = "Cash"
	defaultManualCurrency = "INR"
)

func listCmd() *cobra.Command {
	var filter cli.ReceiptFilter
	var source string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List receipts, newest first",
		Example: `  receipts list
  receipts list --category "Food & Dining"
  receipts list --method upi --source voice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source != "" {
				src, err := model.ParseSource(source)
				if err != nil {
					return common.NewUserError("Unknown source (use upload, imported, manual or voice)", err)
				}
				filter.Source = src
			}

			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReceiptTable(filter.Apply(store.List())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Category, "category", "c", "", "Only show receipts in this category")
	cmd.Flags().StringVarP(&filter.Method, "method", "m", "", "Only show receipts whose payment method contains this text")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Only show receipts from this source")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <receipt-id>",
		Short: "Show a single receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			receipt, err := findReceipt(store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReceipt(receipt))
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	var payload model.NewReceipt

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a receipt by hand",
		Long: `Record a receipt by hand. The category is inferred from the merchant and
notes when not given.`,
		Example: `  receipts add --merchant "Swiggy Instamart" --amount 642.50
  receipts add --merchant Uber --amount 310 --method "UPI • GPay" --date 2024-05-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload.Merchant = strings.TrimSpace(payload.Merchant)
			if payload.Merchant == "" {
				return common.NewUserError("Merchant is required", nil)
			}
			if payload.Date == "" {
				payload.Date = time.Now().UTC().Format(model.DateLayout)
			} else if _, err := time.Parse(model.DateLayout, payload.Date); err != nil {
				return common.NewUserError("Date must look like 2006-01-02", err)
			}
			if payload.Category == "" {
				payload.Category = inference.CategoryOf(payload.Merchant + " " + payload.Notes)
			}
			payload.Currency = strings.ToUpper(payload.Currency)
			payload.Source = model.SourceManual
			payload.Summary = fmt.Sprintf("%s spent at %s.", money.Format(payload.Amount, payload.Currency), payload.Merchant)

			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			receipt, err := store.Add(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("failed to add receipt: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s under %s (%s)",
				money.Format(receipt.Amount, receipt.Currency), receipt.Category, receipt.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&payload.Merchant, "merchant", "", "Merchant name")
	cmd.Flags().Float64Var(&payload.Amount, "amount", 0, "Amount spent")
	cmd.Flags().StringVar(&payload.Date, "date", "", "Receipt date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&payload.Category, "category", "", "Category (inferred when empty)")
	cmd.Flags().StringVar(&payload.Method, "method", defaultManualMethod, "Payment method")
	cmd.Flags().StringVar(&payload.Currency, "currency", defaultManualCurrency, "ISO currency code")
	cmd.Flags().StringVar(&payload.Notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func updateCmd() *cobra.Command {
	var (
		date, merchant, category, method, currency, notes, summary, source string
		amount                                                             float64
	)

	cmd := &cobra.Command{
		Use:   "update <receipt-id>",
		Short: "Change fields of a receipt",
		Example: `  receipts update 3f6c... --category Travel
  receipts update 3f6c... --amount 120.75 --notes "split with Sam"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.ReceiptPatch
			flags := cmd.Flags()
			if flags.Changed("date") {
				if _, err := time.Parse(model.DateLayout, date); err != nil {
					return common.NewUserError("Date must look like 2006-01-02", err)
				}
				patch.Date = &date
			}
			if flags.Changed("merchant") {
				patch.Merchant = &merchant
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("method") {
				patch.Method = &method
			}
			if flags.Changed("currency") {
				currency = strings.ToUpper(currency)
				patch.Currency = &currency
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("summary") {
				patch.Summary = &summary
			}
			if flags.Changed("amount") {
				patch.Amount = &amount
			}
			if flags.Changed("source") {
				src, err := model.ParseSource(source)
				if err != nil {
					return common.NewUserError("Unknown source (use upload, imported, manual or voice)", err)
				}
				patch.Source = &src
			}
			if patch.IsEmpty() {
				return common.NewUserError("Nothing to update", nil)
			}

			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := findReceipt(store, args[0]); err != nil {
				return err
			}
			if err := store.Update(cmd.Context(), args[0], patch); err != nil {
				return fmt.Errorf("failed to update receipt: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated receipt "+args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Receipt date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&merchant, "merchant", "", "Merchant name")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&method, "method", "", "Payment method")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&summary, "summary", "", "Summary line")
	cmd.Flags().StringVar(&source, "source", "", "Provenance (upload, imported, manual, voice)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount spent")

	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <receipt-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a receipt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := findReceipt(store, args[0]); err != nil {
				return err
			}
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to remove receipt: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed receipt "+args[0]))
			return nil
		},
	}
}

func findReceipt(store *receipts.Store, id string) (model.Receipt, error) {
	receipt, ok := store.Find(id)
	if !ok {
		return model.Receipt{}, common.NewUserError("Receipt not found", fmt.Errorf("%w: %s", common.ErrNotFound, id))
	}
	return receipt, nil
}
