package predictor

import (
	"fmt"

	"github.com/mescanne/smart-importer/internal/common"
	"github.com/mescanne/smart-importer/internal/model"
)

// ApplyAttribute returns a copy of txn with the attribute set to value. An
// empty predicted value is never applied; a value arises as the empty string
// when the whole training history lacks the attribute. When the attribute
// already carries a non-empty value and overwrite is false, the transaction
// is returned unchanged.
func ApplyAttribute(txn *model.Transaction, accessor model.AttributeAccessor, value string, overwrite bool) *model.Transaction {
	if value == "" {
		return txn
	}
	if accessor.Get(txn) != "" && !overwrite {
		return txn
	}
	return accessor.Set(txn, value)
}

// MergeNonTransactionEntries reconstructs the full entry sequence from the
// original imported entries and the enhanced transactions, substituting each
// transaction positionally while leaving every other entry in place. The
// enhanced slice must contain exactly one transaction per transaction entry
// in imported; a mismatch is an internal invariant violation.
func MergeNonTransactionEntries(imported []model.Directive, enhanced []*model.Transaction) ([]model.Directive, error) {
	count := 0
	for _, entry := range imported {
		if entry.Kind() == model.KindTransaction {
			count++
		}
	}
	if count != len(enhanced) {
		return nil, fmt.Errorf("%w: %d submitted, %d returned", common.ErrMergeMismatch, count, len(enhanced))
	}

	merged := make([]model.Directive, 0, len(imported))
	next := 0
	for _, entry := range imported {
		if entry.Kind() == model.KindTransaction {
			merged = append(merged, enhanced[next])
			next++
		} else {
			merged = append(merged, entry)
		}
	}
	return merged, nil
}
