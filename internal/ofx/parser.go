// Package ofx imports bank and credit card statements as receipts.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/inference"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Entry is one spend found in a statement, ready to be added to the store.
type Entry struct {
	FitID   string
	Account string
	Receipt model.NewReceipt
}

// Statement is the parse result for one file.
type Statement struct {
	Entries  []Entry
	Accounts []string
	// Credits counts deposits and refunds that were not turned into receipts.
	Credits int
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare opening tag
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX statement.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}
	seen := make(map[string]bool)
	addAccount := func(acct string) {
		if acct != "" && !seen[acct] {
			seen[acct] = true
			stmt.Accounts = append(stmt.Accounts, acct)
		}
	}

	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			acct := string(bank.BankAcctFrom.AcctID)
			addAccount(acct)
			p.collect(stmt, bank.BankTranList, acct, bank.CurDef)
		}
	}
	for _, msg := range resp.CreditCard {
		if cc, ok := msg.(*ofxgo.CCStatementResponse); ok {
			acct := string(cc.CCAcctFrom.AcctID)
			addAccount(acct)
			p.collect(stmt, cc.BankTranList, acct, cc.CurDef)
		}
	}

	slog.Info("Parsed OFX file",
		"receipts", len(stmt.Entries),
		"credits_skipped", stmt.Credits,
		"accounts", len(stmt.Accounts))

	return stmt, nil
}

func (p *Parser) collect(stmt *Statement, list *ofxgo.TransactionList, account string, curDef ofxgo.CurrSymbol) {
	if list == nil {
		return
	}
	currency := currencyCode(curDef)
	for _, tx := range list.Transactions {
		entry, ok := p.convertTransaction(tx, account, currency)
		if !ok {
			stmt.Credits++
			continue
		}
		stmt.Entries = append(stmt.Entries, entry)
	}
}

// convertTransaction turns a debit into a receipt. Credits are reported as
// not ok.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, account, currency string) (Entry, bool) {
	amount, _ := tx.TrnAmt.Float64()
	if amount >= 0 {
		return Entry{}, false
	}
	amount = -amount

	merchant := p.extractMerchantName(tx)
	if merchant == "" {
		merchant = inference.DefaultMerchant
	}
	category := inference.CategoryOf(merchant + " " + string(tx.Memo))
	fitID := string(tx.FiTID)

	notes := "Imported from bank statement"
	if fitID != "" {
		notes = fmt.Sprintf("%s (FITID %s)", notes, fitID)
	}

	return Entry{
		FitID:   fitID,
		Account: account,
		Receipt: model.NewReceipt{
			Date:     tx.DtPosted.Format(model.DateLayout),
			Merchant: merchant,
			Category: category,
			Method:   "Bank • " + lastFour(account),
			Currency: currency,
			Notes:    notes,
			Source:   model.SourceImported,
			Summary:  fmt.Sprintf("%s spent at %s.", money.Format(amount, currency), merchant),
			Amount:   amount,
		},
	}, true
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually the cleanest name
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"UPI/",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

func currencyCode(cur ofxgo.CurrSymbol) string {
	code := cur.String()
	if code == "" || code == "XXX" {
		return money.DefaultCurrency
	}
	return code
}

func lastFour(account string) string {
	account = strings.TrimSpace(account)
	if len(account) <= 4 {
		return account
	}
	return account[len(account)-4:]
}
