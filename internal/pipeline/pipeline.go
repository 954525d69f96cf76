// Package pipeline builds and runs the feature-union classification pipeline.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/jbrukh/bayesian"

	"github.com/mescanne/smart-importer/internal/common"
	"github.com/mescanne/smart-importer/internal/feature"
	"github.com/mescanne/smart-importer/internal/model"
)

// stage is one weighted feature extractor inside the union.
type stage struct {
	extractor feature.Extractor
	// repeats scales the extractor's term frequencies: tokens are emitted
	// this many times into the combined document.
	repeats int
}

// Pipeline combines weighted feature extractors with a TF-IDF naive Bayes
// classifier. A pipeline is owned by a single predictor cycle: it is built,
// fitted once, used for one batch of predictions and then discarded.
type Pipeline struct {
	classifier *bayesian.Classifier
	classes    []bayesian.Class
	stages     []stage
}

// New builds an unfitted pipeline from extractor weights. Every key of
// weights must name a catalog extractor; an unknown name is a configuration
// error. A non-positive weight excludes its extractor from the union.
func New(weights map[string]float64, tok feature.Tokenizer) (*Pipeline, error) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	// Repeat counts are normalized against the smallest positive weight, so
	// the configured ratios survive the discretization: with weights 0.8 and
	// 0.1, the first extractor's tokens count eight times as much.
	minWeight := 0.0
	for _, name := range names {
		if w := weights[name]; w > 0 && (minWeight == 0 || w < minWeight) {
			minWeight = w
		}
	}

	stages := make([]stage, 0, len(names))
	for _, name := range names {
		ext, ok := feature.New(name, tok)
		if !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrUnknownExtractor, name)
		}
		weight := weights[name]
		if weight <= 0 {
			continue
		}
		repeats := int(math.Round(weight / minWeight))
		if repeats < 1 {
			repeats = 1
		}
		slog.Debug("Added feature extractor", "name", ext.Name(), "repeats", repeats)
		stages = append(stages, stage{extractor: ext, repeats: repeats})
	}

	return &Pipeline{stages: stages}, nil
}

// document runs the feature union over one transaction.
func (p *Pipeline) document(txn *model.Transaction) []string {
	var doc []string
	for _, s := range p.stages {
		tokens := s.extractor.Extract(txn)
		for i := 0; i < s.repeats; i++ {
			doc = append(doc, tokens...)
		}
	}
	return doc
}

// Fit trains the classifier stage on the transactions and their targets.
// It requires at least two distinct target values; callers handle the
// degenerate zero- and one-label cases before fitting.
func (p *Pipeline) Fit(txns []*model.Transaction, targets []string) error {
	if len(txns) != len(targets) {
		return fmt.Errorf("training data and targets differ in length: %d vs %d", len(txns), len(targets))
	}

	seen := make(map[string]bool)
	var classes []bayesian.Class
	for _, target := range targets {
		if !seen[target] {
			seen[target] = true
			classes = append(classes, bayesian.Class(target))
		}
	}
	if len(classes) < 2 {
		return fmt.Errorf("cannot fit classifier with %d distinct targets", len(classes))
	}

	classifier := bayesian.NewClassifierTfIdf(classes...)
	for i, txn := range txns {
		classifier.Learn(p.document(txn), bayesian.Class(targets[i]))
	}
	classifier.ConvertTermsFreqToTfIdf()

	p.classifier = classifier
	p.classes = classes
	return nil
}

// Predict returns one predicted target per transaction, in batch order.
func (p *Pipeline) Predict(txns []*model.Transaction) ([]string, error) {
	if p.classifier == nil {
		return nil, fmt.Errorf("pipeline is not fitted")
	}

	predictions := make([]string, len(txns))
	for i, txn := range txns {
		scores, best, _ := p.classifier.LogScores(p.document(txn))
		if best < 0 || best >= len(p.classes) {
			return nil, fmt.Errorf("classifier returned out-of-range class index %d of %d", best, len(scores))
		}
		predictions[i] = string(p.classes[best])
	}
	return predictions, nil
}
