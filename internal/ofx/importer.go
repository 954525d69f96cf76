// Package ofx imports OFX/QFX bank statements as ledger directives.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/mescanne/smart-importer/internal/model"
)

// Importer converts OFX statements for one account into incomplete
// transactions: each carries a single posting on AccountName, leaving the
// balancing posting for the predictor to fill in.
type Importer struct {
	// AccountName is the ledger account the imported files belong to.
	AccountName string
}

// NewImporter creates an importer for the given ledger account.
func NewImporter(account string) *Importer {
	return &Importer{AccountName: account}
}

// Account returns the ledger account a file belongs to.
func (im *Importer) Account(_ string) string {
	return im.AccountName
}

var severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)

// preprocess fixes common formatting issues in OFX files before parsing:
// leading whitespace ahead of the header and mixed-case SEVERITY values.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	return severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
}

// ImportFile parses an OFX/QFX statement and returns one transaction
// directive per statement transaction.
func (im *Importer) ImportFile(_ context.Context, reader io.Reader) ([]model.Directive, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var entries []model.Directive
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				entries = append(entries, im.convert(ofxTxn))
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				entries = append(entries, im.convert(ofxTxn))
			}
		}
	}

	slog.Info("Imported OFX statement",
		"account", im.AccountName,
		"transactions", len(entries))
	return entries, nil
}

// convert maps one OFX transaction to a single-posting ledger transaction.
func (im *Importer) convert(ofxTxn ofxgo.Transaction) *model.Transaction {
	amount := decimal.NewFromBigInt(ofxTxn.TrnAmt.Num(), 0).
		Div(decimal.NewFromBigInt(ofxTxn.TrnAmt.Denom(), 0))

	payee := ""
	if ofxTxn.Payee != nil {
		payee = string(ofxTxn.Payee.Name)
	}
	narration := cleanDescription(string(ofxTxn.Name))
	if memo := string(ofxTxn.Memo); memo != "" && narration == "" {
		narration = memo
	}

	return &model.Transaction{
		On:        ofxTxn.DtPosted.Time,
		Payee:     payee,
		Narration: narration,
		Meta:      map[string]string{"ofx_id": string(ofxTxn.FiTID)},
		Postings: []model.Posting{
			{Account: im.AccountName, Amount: amount, HasAmount: true},
		},
	}
}

// cleanDescription strips bank boilerplate prefixes from a statement
// description.
func cleanDescription(name string) string {
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
	}
	upper := strings.ToUpper(name)
	for _, prefix := range prefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(name)
}
