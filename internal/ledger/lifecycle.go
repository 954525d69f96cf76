// Package ledger derives account state and training data from directive history.
package ledger

import (
	"log/slog"

	"github.com/mescanne/smart-importer/internal/model"
)

// OpenAccounts scans the entries in chronological order and returns the
// accounts that have been opened but not closed, mapped to the Open directive
// under which each is currently open.
//
// The scan order matters: a Close only takes effect against an earlier Open.
// A Close for an account that is not open indicates malformed history; it is
// logged and ignored rather than failing the import.
func OpenAccounts(entries []model.Directive) map[string]*model.Open {
	accounts := make(map[string]*model.Open)

	for _, entry := range model.SortedByDate(entries) {
		switch d := entry.(type) {
		case *model.Open:
			accounts[d.Account] = d
		case *model.Close:
			if _, ok := accounts[d.Account]; !ok {
				slog.Warn("Ignoring close for account that was never opened",
					"account", d.Account,
					"date", d.On.Format("2006-01-02"))
				continue
			}
			delete(accounts, d.Account)
		}
	}

	return accounts
}
