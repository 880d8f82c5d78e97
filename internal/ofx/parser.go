// Package ofx imports OFX/QFX statements as linked-account ledger entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An SGML opening tag at end of line with its closing bracket missing.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("component", "ofx")}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file into linked-source ledger entries with
// signed amounts. Entries that cannot be represented (zero amount, missing
// FITID or date) are skipped and logged.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			transactions = append(transactions, p.convertAll(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			transactions = append(transactions, p.convertAll(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))...)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)
	return transactions, nil
}

func (p *Parser) convertAll(txns []ofxgo.Transaction, accountID string) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, ofxTx := range txns {
		tx, err := p.convertTransaction(ofxTx, accountID)
		if err != nil {
			p.logger.Warn("Skipping OFX transaction", "account", accountID, "fitid", string(ofxTx.FiTID), "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out
}

// convertTransaction converts an OFX transaction to a ledger entry. OFX
// already reports debits as negative amounts. FITIDs are only unique per
// account, so the account id is part of the ledger id.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Transaction, error) {
	fitID := strings.TrimSpace(string(ofxTx.FiTID))
	if fitID == "" {
		return model.Transaction{}, fmt.Errorf("missing FITID")
	}
	if ofxTx.DtPosted.IsZero() {
		return model.Transaction{}, fmt.Errorf("missing posted date")
	}
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("bad amount: %w", err)
	}
	if amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("zero amount")
	}

	id := fitID
	if accountID != "" {
		id = accountID + "-" + fitID
	}

	tx := model.Transaction{
		ID:          model.LinkedID(id),
		Date:        ofxTx.DtPosted.Time,
		Amount:      amount,
		Description: common.SanitizeText(string(ofxTx.Name)),
		Merchant:    common.SanitizeText(p.extractMerchantName(ofxTx)),
		Source:      model.SourceLinked,
	}

	// OFX carries no categories; a few transaction types imply one.
	switch ofxTx.TrnType {
	case ofxgo.TrnTypeInt:
		tx.Category = "Interest"
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		tx.Category = "Bank Fees"
	case ofxgo.TrnTypeATM:
		tx.Category = "Cash & ATM"
	}
	return tx, nil
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
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

	// Drop a leading "MM/DD " posting date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// GetAccounts extracts the sorted unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = true
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, nil
}
