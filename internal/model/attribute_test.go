package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorFor(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		wantErr   bool
	}{
		{name: "payee", attribute: AttrPayee},
		{name: "narration", attribute: AttrNarration},
		{name: "second posting account", attribute: AttrSecondPostingAccount},
		{name: "unknown attribute", attribute: "third_posting_account", wantErr: true},
		{name: "empty attribute", attribute: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AccessorFor(tt.attribute)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPayeeAccessor(t *testing.T) {
	acc, err := AccessorFor(AttrPayee)
	require.NoError(t, err)

	txn := &Transaction{Payee: "Old Store"}
	assert.Equal(t, "Old Store", acc.Get(txn))

	updated := acc.Set(txn, "New Store")
	assert.Equal(t, "New Store", updated.Payee)
	assert.Equal(t, "Old Store", txn.Payee, "Set must not mutate the original")
}

func TestSecondPostingAccountAccessor(t *testing.T) {
	acc, err := AccessorFor(AttrSecondPostingAccount)
	require.NoError(t, err)

	t.Run("get with two postings", func(t *testing.T) {
		txn := &Transaction{Postings: []Posting{
			{Account: "Assets:Bank"},
			{Account: "Expenses:Groceries"},
		}}
		assert.Equal(t, "Expenses:Groceries", acc.Get(txn))
	})

	t.Run("get with one posting", func(t *testing.T) {
		txn := &Transaction{Postings: []Posting{{Account: "Assets:Bank"}}}
		assert.Equal(t, "", acc.Get(txn))
	})

	t.Run("set replaces existing second posting", func(t *testing.T) {
		txn := &Transaction{Postings: []Posting{
			{Account: "Assets:Bank"},
			{Account: "Expenses:Unknown"},
		}}
		updated := acc.Set(txn, "Expenses:Groceries")
		assert.Equal(t, "Expenses:Groceries", updated.Postings[1].Account)
		assert.Equal(t, "Expenses:Unknown", txn.Postings[1].Account)
	})

	t.Run("set appends balancing posting", func(t *testing.T) {
		txn := &Transaction{Postings: []Posting{{Account: "Assets:Bank"}}}
		updated := acc.Set(txn, "Expenses:Groceries")
		require.Len(t, updated.Postings, 2)
		assert.Equal(t, "Expenses:Groceries", updated.Postings[1].Account)
		assert.False(t, updated.Postings[1].HasAmount)
		assert.Len(t, txn.Postings, 1)
	})
}
