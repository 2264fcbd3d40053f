// Package model defines the core data structures for the receipts application.
package model

import (
	"fmt"
	"time"
)

// Source records how a receipt entered the system.
type Source string

const (
	// SourceUpload marks receipts created from a captured file.
	SourceUpload Source = "upload"
	// SourceImported marks receipts brought in from a bank statement or seed data.
	SourceImported Source = "imported"
	// SourceManual marks receipts typed in by hand.
	SourceManual Source = "manual"
	// SourceVoice marks receipts logged from a spoken or typed utterance.
	SourceVoice Source = "voice"
)

// Sources lists every valid provenance value.
func Sources() []Source {
	return []Source{SourceUpload, SourceImported, SourceManual, SourceVoice}
}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceUpload, SourceImported, SourceManual, SourceVoice:
		return true
	}
	return false
}

// ParseSource converts user input into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.IsValid() {
		return "", fmt.Errorf("invalid source %q", s)
	}
	return src, nil
}

// DateLayout is the calendar date format used for Receipt.Date.
const DateLayout = "2006-01-02"

// LineItem is a single extracted line on a receipt.
// Prices are not reconciled against the receipt amount.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Receipt is a persisted record of one financial event.
type Receipt struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Merchant  string     `json:"merchant"`
	Category  string     `json:"category"`
	Method    string     `json:"method"`
	Currency  string     `json:"currency"`
	Notes     string     `json:"notes,omitempty"`
	FileName  string     `json:"fileName,omitempty"`
	FileURL   string     `json:"fileUrl,omitempty"` // session-scoped, not durable
	Source    Source     `json:"source"`
	Summary   string     `json:"summary"`
	Items     []LineItem `json:"items,omitempty"`
	Amount    float64    `json:"amount"`
	CreatedAt int64      `json:"createdAt"` // Unix milliseconds
}

// Created returns the creation timestamp as a time.Time.
func (r Receipt) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Clone returns a deep copy of the receipt. An empty item list becomes nil,
// matching what a snapshot reload produces.
func (r Receipt) Clone() Receipt {
	r.Items = cloneItems(r.Items)
	return r
}

func cloneItems(items []LineItem) []LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// NewReceipt is the payload for creating a receipt: everything except the
// identifier and creation time, which the store assigns.
type NewReceipt struct {
	Date     string
	Merchant string
	Category string
	Method   string
	Currency string
	Notes    string
	FileName string
	FileURL  string
	Source   Source
	Summary  string
	Items    []LineItem
	Amount   float64
}

// Materialize builds the full record from the payload.
func (n NewReceipt) Materialize(id string, createdAt time.Time) Receipt {
	r := Receipt{
		ID:        id,
		Date:      n.Date,
		Merchant:  n.Merchant,
		Category:  n.Category,
		Method:    n.Method,
		Currency:  n.Currency,
		Notes:     n.Notes,
		FileName:  n.FileName,
		FileURL:   n.FileURL,
		Source:    n.Source,
		Summary:   n.Summary,
		Items:     n.Items,
		Amount:    n.Amount,
		CreatedAt: createdAt.UnixMilli(),
	}
	return r.Clone()
}

// ReceiptPatch is a partial update. Nil fields are left untouched.
type ReceiptPatch struct {
	Date     *string
	Merchant *string
	Category *string
	Method   *string
	Currency *string
	Notes    *string
	FileName *string
	FileURL  *string
	Source   *Source
	Summary  *string
	Items    *[]LineItem
	Amount   *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p ReceiptPatch) IsEmpty() bool {
	return p.Date == nil && p.Merchant == nil && p.Category == nil &&
		p.Method == nil && p.Currency == nil && p.Notes == nil &&
		p.FileName == nil && p.FileURL == nil && p.Source == nil &&
		p.Summary == nil && p.Items == nil && p.Amount == nil
}

// Apply returns a copy of r with the patch merged in.
func (p ReceiptPatch) Apply(r Receipt) Receipt {
	out := r.Clone()
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Merchant != nil {
		out.Merchant = *p.Merchant
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Method != nil {
		out.Method = *p.Method
	}
	if p.Currency != nil {
		out.Currency = *p.Currency
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.FileName != nil {
		out.FileName = *p.FileName
	}
	if p.FileURL != nil {
		out.FileURL = *p.FileURL
	}
	if p.Source != nil {
		out.Source = *p.Source
	}
	if p.Summary != nil {
		out.Summary = *p.Summary
	}
	if p.Items != nil {
		out.Items = cloneItems(*p.Items)
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	return out
}
