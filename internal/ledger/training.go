package ledger

import (
	"log/slog"

	"github.com/mescanne/smart-importer/internal/model"
)

// TrainingFilter selects which historical transactions are usable as
// training examples for one importer invocation.
type TrainingFilter struct {
	OpenAccounts map[string]*model.Open
	Denylist     map[string]bool
	// TargetAccount is the account the imported file belongs to.
	TargetAccount string
	// AnchorAccounts qualify a transaction for training even when the target
	// account is not among its postings.
	AnchorAccounts []string
}

// Select returns the transactions eligible as training data, preserving
// order. It emits a warning when nothing is eligible, distinguishing an
// empty history from a history where nothing matched the accounts.
func (f *TrainingFilter) Select(txns []*model.Transaction) []*model.Transaction {
	var selected []*model.Transaction
	for _, txn := range txns {
		if f.eligible(txn) {
			selected = append(selected, txn)
		}
	}

	if len(selected) == 0 {
		if len(txns) > 0 {
			slog.Warn("Cannot train the model; none of the training data matches the accounts")
		} else {
			slog.Warn("Cannot train the model; no training data found")
		}
		return selected
	}

	slog.Info("Loaded training data",
		"transactions", len(selected),
		"account", f.TargetAccount,
		"total_transactions", len(txns))
	return selected
}

// eligible applies the selection rules: every posting account must be open
// and off the denylist, and the transaction must touch the target account or
// an anchor account, unless neither is configured.
func (f *TrainingFilter) eligible(txn *model.Transaction) bool {
	relevant := false
	for _, pos := range txn.Postings {
		if _, open := f.OpenAccounts[pos.Account]; !open {
			return false
		}
		if f.Denylist[pos.Account] {
			return false
		}
		if pos.Account == f.TargetAccount {
			relevant = true
		}
		for _, anchor := range f.AnchorAccounts {
			if pos.Account == anchor {
				relevant = true
			}
		}
	}

	return relevant || (f.TargetAccount == "" && len(f.AnchorAccounts) == 0)
}
