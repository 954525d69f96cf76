package model

import "fmt"

// AttributeAccessor reads and writes one predictable attribute of a
// transaction. Set never mutates its input; it returns a modified copy.
type AttributeAccessor struct {
	Get func(*Transaction) string
	Set func(*Transaction, string) *Transaction
}

// Predictable attribute names.
const (
	AttrPayee                = "payee"
	AttrNarration            = "narration"
	AttrSecondPostingAccount = "second_posting_account"
)

var attributeAccessors = map[string]AttributeAccessor{
	AttrPayee: {
		Get: func(t *Transaction) string { return t.Payee },
		Set: func(t *Transaction, v string) *Transaction {
			cp := t.Clone()
			cp.Payee = v
			return cp
		},
	},
	AttrNarration: {
		Get: func(t *Transaction) string { return t.Narration },
		Set: func(t *Transaction, v string) *Transaction {
			cp := t.Clone()
			cp.Narration = v
			return cp
		},
	},
	AttrSecondPostingAccount: {
		Get: func(t *Transaction) string {
			if len(t.Postings) < 2 {
				return ""
			}
			return t.Postings[1].Account
		},
		Set: func(t *Transaction, v string) *Transaction {
			cp := t.Clone()
			if len(cp.Postings) < 2 {
				// Incomplete transactions from an importer carry only the
				// account the file belongs to; the predicted account becomes
				// the balancing leg with an elided amount.
				cp.Postings = append(cp.Postings, Posting{Account: v})
			} else {
				cp.Postings[1].Account = v
			}
			return cp
		},
	},
}

// AccessorFor resolves the accessor pair for an attribute name. Resolution
// happens once at configuration time, so prediction never reflects over
// transaction fields at runtime.
func AccessorFor(attribute string) (AttributeAccessor, error) {
	acc, ok := attributeAccessors[attribute]
	if !ok {
		return AttributeAccessor{}, fmt.Errorf("unknown transaction attribute %q", attribute)
	}
	return acc, nil
}
