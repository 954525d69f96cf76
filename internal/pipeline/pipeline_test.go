package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescanne/smart-importer/internal/common"
	"github.com/mescanne/smart-importer/internal/feature"
	"github.com/mescanne/smart-importer/internal/model"
)

func narrTxn(narration string) *model.Transaction {
	return &model.Transaction{
		On:        time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Narration: narration,
	}
}

func TestNewRejectsUnknownExtractor(t *testing.T) {
	_, err := New(map[string]float64{"merchant_zip_code": 1.0}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownExtractor)
}

func TestNewPreservesWeightRatios(t *testing.T) {
	pipe, err := New(map[string]float64{
		feature.Narration: 0.8,
		feature.Payee:     0.5,
		feature.DayOfWeek: 0.1,
	}, nil)
	require.NoError(t, err)

	repeats := make(map[string]int)
	for _, s := range pipe.stages {
		repeats[s.extractor.Name()] = s.repeats
	}
	assert.Equal(t, map[string]int{
		feature.Narration: 8,
		feature.Payee:     5,
		feature.DayOfWeek: 1,
	}, repeats)
}

func TestWeightedUnionScalesTermFrequencies(t *testing.T) {
	pipe, err := New(map[string]float64{
		feature.Narration: 0.6,
		feature.Payee:     0.2,
	}, nil)
	require.NoError(t, err)

	txn := narrTxn("coffee")
	txn.Payee = "starbucks"

	counts := make(map[string]int)
	for _, token := range pipe.document(txn) {
		counts[token]++
	}

	// A 0.6 weight contributes three times the term frequency of a 0.2 one.
	assert.Equal(t, 3, counts["narration:coffee"])
	assert.Equal(t, 1, counts["payee:starbucks"])
}

func TestNewExcludesNonPositiveWeights(t *testing.T) {
	pipe, err := New(map[string]float64{
		feature.Narration: 1.0,
		feature.Payee:     0.0,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, pipe.stages, 1)
}

func TestFitRequiresMatchingLengths(t *testing.T) {
	pipe, err := New(map[string]float64{feature.Narration: 1.0}, nil)
	require.NoError(t, err)

	err = pipe.Fit([]*model.Transaction{narrTxn("x")}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestFitRequiresTwoDistinctTargets(t *testing.T) {
	pipe, err := New(map[string]float64{feature.Narration: 1.0}, nil)
	require.NoError(t, err)

	err = pipe.Fit(
		[]*model.Transaction{narrTxn("a"), narrTxn("b")},
		[]string{"Expenses:Groceries", "Expenses:Groceries"},
	)
	assert.Error(t, err)
}

func TestPredictUnfitted(t *testing.T) {
	pipe, err := New(map[string]float64{feature.Narration: 1.0}, nil)
	require.NoError(t, err)

	_, err = pipe.Predict([]*model.Transaction{narrTxn("starbucks")})
	assert.Error(t, err)
}

func TestFitPredict(t *testing.T) {
	pipe, err := New(map[string]float64{feature.Narration: 0.8, feature.Payee: 0.5}, nil)
	require.NoError(t, err)

	training := []*model.Transaction{
		narrTxn("starbucks coffee downtown"),
		narrTxn("starbucks coffee airport"),
		narrTxn("shell gas station"),
		narrTxn("shell gas highway"),
	}
	targets := []string{
		"Expenses:Coffee",
		"Expenses:Coffee",
		"Expenses:Car:Gas",
		"Expenses:Car:Gas",
	}

	require.NoError(t, pipe.Fit(training, targets))

	predictions, err := pipe.Predict([]*model.Transaction{
		narrTxn("starbucks coffee uptown"),
		narrTxn("shell gas"),
	})
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, "Expenses:Coffee", predictions[0])
	assert.Equal(t, "Expenses:Car:Gas", predictions[1])
}

func TestPredictPreservesBatchOrder(t *testing.T) {
	pipe, err := New(map[string]float64{feature.Narration: 1.0}, nil)
	require.NoError(t, err)

	training := []*model.Transaction{
		narrTxn("alpha"), narrTxn("alpha"),
		narrTxn("beta"), narrTxn("beta"),
	}
	targets := []string{"A", "A", "B", "B"}
	require.NoError(t, pipe.Fit(training, targets))

	batch := []*model.Transaction{
		narrTxn("beta"), narrTxn("alpha"), narrTxn("beta"), narrTxn("alpha"),
	}
	predictions, err := pipe.Predict(batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "B", "A"}, predictions)
}
