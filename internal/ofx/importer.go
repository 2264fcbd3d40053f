package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
)

// ImportResult summarises one statement import.
type ImportResult struct {
	Added      []model.Receipt
	Duplicates int
	Credits    int
}

// Importer adds statement entries to the receipt store, skipping entries
// that an earlier import already added.
type Importer struct {
	parser *Parser
	store  service.ReceiptStore
}

// NewImporter creates an importer writing to store.
func NewImporter(store service.ReceiptStore) *Importer {
	return &Importer{parser: NewParser(), store: store}
}

// Import parses reader and adds every new debit as an imported receipt.
// Progress is reported through onAdd when it is not nil.
func (i *Importer) Import(ctx context.Context, reader io.Reader, onAdd func(model.Receipt)) (*ImportResult, error) {
	stmt, err := i.parser.ParseFile(ctx, reader)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool)
	for _, r := range i.store.List() {
		if r.Source == model.SourceImported && r.Notes != "" {
			known[r.Notes] = true
		}
	}

	result := &ImportResult{Credits: stmt.Credits}
	for _, entry := range stmt.Entries {
		if entry.FitID != "" && known[entry.Receipt.Notes] {
			result.Duplicates++
			continue
		}
		receipt, err := i.store.Add(ctx, entry.Receipt)
		if err != nil {
			return result, fmt.Errorf("failed to import transaction %s: %w", entry.FitID, err)
		}
		known[entry.Receipt.Notes] = true
		result.Added = append(result.Added, receipt)
		if onAdd != nil {
			onAdd(receipt)
		}
	}

	slog.Info("Imported statement",
		"added", len(result.Added),
		"duplicates", result.Duplicates,
		"credits", result.Credits)
	return result, nil
}
