// Package predictor implements the import hook that predicts transaction
// attributes from ledger history.
package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mescanne/smart-importer/internal/common"
	"github.com/mescanne/smart-importer/internal/feature"
	"github.com/mescanne/smart-importer/internal/ledger"
	"github.com/mescanne/smart-importer/internal/model"
	"github.com/mescanne/smart-importer/internal/pipeline"
)

// Importer resolves which account an imported file belongs to. The concrete
// importer producing the entries lives outside this package.
type Importer interface {
	Account(file string) string
}

// Config holds the configuration options for a predictor instance. A config
// is copied at construction; instances never share mutable state.
type Config struct {
	// Attribute names the transaction field being predicted. Required.
	Attribute string
	// Weights maps feature extractor names to their union weights.
	Weights map[string]float64
	// Tokenizer overrides text tokenization for the text extractors.
	Tokenizer feature.Tokenizer
	// DenylistAccounts excludes transactions touching these accounts from
	// the training data.
	DenylistAccounts []string
	// AnchorAccounts qualify transactions for training regardless of the
	// importer's own account.
	AnchorAccounts []string
	// Predict toggles applying predictions to imported entries.
	Predict bool
	// Overwrite replaces attribute values that are already present.
	Overwrite bool
}

// PayeeConfig returns the configuration of the stock payee predictor.
func PayeeConfig() Config {
	return Config{
		Attribute: model.AttrPayee,
		Predict:   true,
		Weights: map[string]float64{
			feature.Narration: 0.8,
			feature.Payee:     0.5,
		},
	}
}

// PostingConfig returns the configuration of the stock posting-account
// predictor, which fills in the second posting of incomplete transactions.
func PostingConfig() Config {
	return Config{
		Attribute: model.AttrSecondPostingAccount,
		Predict:   true,
		Weights: map[string]float64{
			feature.Narration: 0.8,
			feature.Payee:     0.5,
			feature.DayOfWeek: 0.1,
		},
	}
}

// Predictor runs a train-then-predict cycle over each imported file. One
// instance may be shared by concurrent importer invocations; the cycle state
// is guarded by a per-instance lock.
type Predictor struct {
	accessor model.AttributeAccessor
	weights  map[string]float64
	denylist map[string]bool
	cfg      Config

	mu sync.Mutex
	// Cycle state below is rebuilt on every Apply call and only touched
	// while holding mu.
	trainingData []*model.Transaction
	targets      []string
	openAccounts map[string]*model.Open
	pipe         *pipeline.Pipeline
	isFitted     bool
	singleLabel  string
	hasShortcut  bool
}

// New creates a predictor from the given configuration. The attribute and
// all weight keys are validated here, so a misconfigured predictor fails at
// construction rather than on first use.
func New(cfg Config) (*Predictor, error) {
	if cfg.Attribute == "" {
		return nil, common.ErrMissingAttribute
	}
	accessor, err := model.AccessorFor(cfg.Attribute)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(cfg.Weights))
	for name, weight := range cfg.Weights {
		if _, ok := feature.New(name, nil); !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrUnknownExtractor, name)
		}
		weights[name] = weight
	}

	denylist := make(map[string]bool, len(cfg.DenylistAccounts))
	for _, account := range cfg.DenylistAccounts {
		denylist[account] = true
	}

	return &Predictor{
		cfg:      cfg,
		accessor: accessor,
		weights:  weights,
		denylist: denylist,
	}, nil
}

// Apply predicts attributes for the imported entries, using the existing
// entries as training data. Non-transaction entries pass through untouched.
func (p *Predictor) Apply(ctx context.Context, importer Importer, file string, imported, existing []model.Directive) ([]model.Directive, error) {
	slog.Debug("Running predictor", "attribute", p.cfg.Attribute, "file", file)

	account := ""
	if importer != nil {
		account = importer.Account(file)
	}

	// Training data is derived lock-free from the call's own inputs; only
	// the shared cycle state is updated under the lock.
	open := ledger.OpenAccounts(existing)
	filter := &ledger.TrainingFilter{
		OpenAccounts:   open,
		Denylist:       p.denylist,
		TargetAccount:  account,
		AnchorAccounts: p.cfg.AnchorAccounts,
	}
	training := filter.Select(model.FilterTransactions(existing))

	targets := make([]string, len(training))
	for i, txn := range training {
		targets[i] = p.accessor.Get(txn)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.openAccounts = open
	p.trainingData = training
	p.targets = targets

	if err := p.definePipeline(); err != nil {
		return nil, err
	}
	if err := p.train(); err != nil {
		return nil, err
	}
	return p.processEntries(imported)
}

// definePipeline rebuilds the pipeline for the current cycle. Rebuilding
// each time keeps fitted state from leaking between cycles and picks up any
// weight changes.
func (p *Predictor) definePipeline() error {
	pipe, err := pipeline.New(p.weights, p.cfg.Tokenizer)
	if err != nil {
		return err
	}
	p.pipe = pipe
	return nil
}

// train fits the pipeline, or records the degenerate shortcut when the
// training targets carry fewer than two distinct values.
func (p *Predictor) train() error {
	p.isFitted = false
	p.hasShortcut = false
	p.singleLabel = ""

	distinct := make(map[string]bool, len(p.targets))
	for _, target := range p.targets {
		distinct[target] = true
	}

	switch len(distinct) {
	case 0:
		slog.Warn("Cannot train the model because there are no targets")
	case 1:
		p.isFitted = true
		p.hasShortcut = true
		p.singleLabel = p.targets[0]
		slog.Debug("Only one target possible")
	default:
		if err := p.pipe.Fit(p.trainingData, p.targets); err != nil {
			return fmt.Errorf("failed to fit pipeline: %w", err)
		}
		p.isFitted = true
		slog.Info("Trained the model", "distinct_targets", len(distinct))
	}
	return nil
}

// processEntries applies predictions to the transactions among the imported
// entries and merges the result back into the full entry sequence.
func (p *Predictor) processEntries(imported []model.Directive) ([]model.Directive, error) {
	enhanced, err := p.processTransactions(model.FilterTransactions(imported))
	if err != nil {
		return nil, err
	}
	return MergeNonTransactionEntries(imported, enhanced)
}

// processTransactions predicts and applies the attribute for a batch of
// transactions, preserving batch order.
func (p *Predictor) processTransactions(txns []*model.Transaction) ([]*model.Transaction, error) {
	if !p.isFitted || len(txns) == 0 || !p.cfg.Predict {
		return txns, nil
	}

	if p.hasShortcut {
		out := make([]*model.Transaction, len(txns))
		for i, txn := range txns {
			out[i] = p.applyPrediction(txn, p.singleLabel)
		}
		slog.Debug("Applied predictions without pipeline", "transactions", len(out))
		return out, nil
	}

	predictions, err := p.pipe.Predict(txns)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	out := make([]*model.Transaction, len(txns))
	for i, txn := range txns {
		out[i] = p.applyPrediction(txn, predictions[i])
	}
	slog.Debug("Applied predictions with pipeline", "transactions", len(out))
	return out, nil
}

// applyPrediction writes one predicted value onto a transaction, honoring
// the overwrite setting.
func (p *Predictor) applyPrediction(txn *model.Transaction, value string) *model.Transaction {
	return ApplyAttribute(txn, p.accessor, value, p.cfg.Overwrite)
}
