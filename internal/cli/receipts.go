package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// ReceiptFilter narrows a receipt listing. Empty fields match everything.
type ReceiptFilter struct {
	Category string
	Method   string
	Source   model.Source
}

// Match reports whether r passes the filter. Comparisons ignore case.
func (f ReceiptFilter) Match(r model.Receipt) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, r.Category) {
		return false
	}
	if f.Method != "" && !strings.Contains(strings.ToLower(r.Method), strings.ToLower(f.Method)) {
		return false
	}
	if f.Source != "" && f.Source != r.Source {
		return false
	}
	return true
}

// Apply returns the receipts that pass the filter, keeping their order.
func (f ReceiptFilter) Apply(receipts []model.Receipt) []model.Receipt {
	var out []model.Receipt
	for _, r := range receipts {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// RenderReceiptTable renders receipts as a table, one row per receipt.
func RenderReceiptTable(receipts []model.Receipt) string {
	if len(receipts) == 0 {
		return SubtleStyle.Render("No receipts yet.")
	}

	headers := []string{"ID", "DATE", "MERCHANT", "CATEGORY", "METHOD", "SOURCE", "AMOUNT"}
	rows := make([][]string, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, []string{
			r.ID,
			r.Date,
			r.Merchant,
			r.Category,
			r.Method,
			string(r.Source),
			money.Format(r.Amount, r.Currency),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...)))
	b.WriteString("\n")

	last := len(headers) - 1
	for _, row := range rows {
		for i, cell := range row {
			style := TableCellStyle.Width(widths[i] + 2)
			if i == last {
				style = AmountStyle.Width(widths[i])
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%d receipts", len(receipts))))
	return b.String()
}

// RenderReceipt renders the detail view of one receipt.
func RenderReceipt(r model.Receipt) string {
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render(fmt.Sprintf("%-9s", label+":")), value)
	}

	field("Amount", AmountStyle.Render(money.Format(r.Amount, r.Currency)))
	field("Date", r.Date)
	field("Category", r.Category)
	field("Method", r.Method)
	field("Source", string(r.Source))
	field("File", r.FileName)
	field("Notes", r.Notes)
	field("Added", humanize.Time(r.Created()))

	if len(r.Items) > 0 {
		b.WriteString(BoldStyle.Render("Items:") + "\n")
		for _, item := range r.Items {
			fmt.Fprintf(&b, "  • %s %s\n", item.Name, SubtleStyle.Render(money.Format(item.Price, r.Currency)))
		}
	}
	if r.Summary != "" {
		b.WriteString("\n" + InfoStyle.Render(r.Summary))
	}

	return RenderBox(fmt.Sprintf("%s %s · %s", ReceiptIcon, r.Merchant, r.ID), strings.TrimRight(b.String(), "\n"))
}
