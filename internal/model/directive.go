// Package model defines the ledger directive types shared across the application.
package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DirectiveKind identifies the concrete type of a ledger directive.
type DirectiveKind string

// Directive kinds.
const (
	KindOpen        DirectiveKind = "open"
	KindClose       DirectiveKind = "close"
	KindTransaction DirectiveKind = "transaction"
)

// Directive is a single entry in a ledger: an account lifecycle event or a
// transaction.
type Directive interface {
	Date() time.Time
	Kind() DirectiveKind
}

// Open records that an account exists from the given date onward.
type Open struct {
	On      time.Time
	Account string
}

// Date returns the directive date.
func (o *Open) Date() time.Time { return o.On }

// Kind returns KindOpen.
func (o *Open) Kind() DirectiveKind { return KindOpen }

// Close records that an account stops being usable at the given date.
type Close struct {
	On      time.Time
	Account string
}

// Date returns the directive date.
func (c *Close) Date() time.Time { return c.On }

// Kind returns KindClose.
func (c *Close) Kind() DirectiveKind { return KindClose }

// Posting is a single account-amount leg of a transaction. HasAmount is false
// for elided amounts, which the ledger infers from the other legs.
type Posting struct {
	Account   string
	Amount    decimal.Decimal
	HasAmount bool
}

// Transaction records a financial transaction with a payee, a narration and
// two or more postings. Transactions are treated as immutable values: code
// that modifies one returns a copy.
type Transaction struct {
	On        time.Time
	Payee     string
	Narration string
	Meta      map[string]string
	Postings  []Posting
}

// Date returns the transaction date.
func (t *Transaction) Date() time.Time { return t.On }

// Kind returns KindTransaction.
func (t *Transaction) Kind() DirectiveKind { return KindTransaction }

// Clone returns a deep copy of the transaction, so the copy can be modified
// without touching shared state.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	cp.Postings = make([]Posting, len(t.Postings))
	copy(cp.Postings, t.Postings)
	if t.Meta != nil {
		cp.Meta = make(map[string]string, len(t.Meta))
		for k, v := range t.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}

// SortedByDate returns the entries in chronological order. The sort is stable,
// so entries sharing a date keep their relative order. The input slice is not
// modified.
func SortedByDate(entries []Directive) []Directive {
	sorted := make([]Directive, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date().Before(sorted[j].Date())
	})
	return sorted
}

// FilterTransactions returns the transaction entries, preserving order.
func FilterTransactions(entries []Directive) []*Transaction {
	var txns []*Transaction
	for _, entry := range entries {
		if txn, ok := entry.(*Transaction); ok {
			txns = append(txns, txn)
		}
	}
	return txns
}
