// Package feature turns transactions into token features for classification.
package feature

import (
	"fmt"
	"strings"

	"github.com/mescanne/smart-importer/internal/model"
)

// Tokenizer splits free text into tokens. A custom tokenizer lets the
// importer support languages that whitespace splitting handles poorly.
type Tokenizer func(string) []string

// DefaultTokenizer lowercases the text and splits on runs of
// non-alphanumeric characters.
func DefaultTokenizer(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		}
		return true
	})
}

// Extractor derives tokens from one aspect of a transaction. Tokens are
// namespaced per extractor so the feature spaces stay disjoint when
// extractors are combined.
type Extractor interface {
	Name() string
	Extract(txn *model.Transaction) []string
}

// Available feature extractor names.
const (
	Narration       = "narration"
	Payee           = "payee"
	DayOfWeek       = "day_of_week"
	PostingAccounts = "posting_accounts"
)

// New returns the named extractor from the catalog, or false when the name
// is unknown. Text extractors tokenize with tok, falling back to
// DefaultTokenizer when tok is nil.
func New(name string, tok Tokenizer) (Extractor, bool) {
	if tok == nil {
		tok = DefaultTokenizer
	}
	switch name {
	case Narration:
		return textExtractor{name: Narration, tok: tok, text: func(t *model.Transaction) string { return t.Narration }}, true
	case Payee:
		return textExtractor{name: Payee, tok: tok, text: func(t *model.Transaction) string { return t.Payee }}, true
	case DayOfWeek:
		return dayOfWeekExtractor{}, true
	case PostingAccounts:
		return postingAccountsExtractor{}, true
	}
	return nil, false
}

type textExtractor struct {
	tok  Tokenizer
	text func(*model.Transaction) string
	name string
}

func (e textExtractor) Name() string { return e.name }

func (e textExtractor) Extract(txn *model.Transaction) []string {
	words := e.tok(e.text(txn))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, e.name+":"+w)
	}
	return tokens
}

type dayOfWeekExtractor struct{}

func (dayOfWeekExtractor) Name() string { return DayOfWeek }

func (dayOfWeekExtractor) Extract(txn *model.Transaction) []string {
	return []string{fmt.Sprintf("dow:%d", int(txn.On.Weekday()))}
}

type postingAccountsExtractor struct{}

func (postingAccountsExtractor) Name() string { return PostingAccounts }

func (postingAccountsExtractor) Extract(txn *model.Transaction) []string {
	tokens := make([]string, 0, len(txn.Postings))
	for _, pos := range txn.Postings {
		tokens = append(tokens, "account:"+pos.Account)
	}
	return tokens
}
