package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mescanne/smart-importer/internal/feature"
	"github.com/mescanne/smart-importer/internal/model"
	"github.com/mescanne/smart-importer/internal/ofx"
	"github.com/mescanne/smart-importer/internal/predictor"
	"github.com/mescanne/smart-importer/internal/storage"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [files...]",
		Short: "Import OFX files and predict missing transaction attributes",
		Long: `Import transactions from OFX/QFX files and predict their missing
attributes from the ledger history.

Examples:
  # Predict the balancing account for new checking transactions
  smartimport predict --account Assets:Bank:Checking ~/Downloads/checking.qfx

  # Predict payees instead, overwriting values already present
  smartimport predict --account Assets:Bank:Checking --attribute payee --overwrite file.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPredict,
	}

	cmd.Flags().String("account", "", "ledger account the imported files belong to (required)")
	cmd.Flags().String("attribute", model.AttrSecondPostingAccount, "attribute to predict (payee, narration, second_posting_account)")
	cmd.Flags().Bool("overwrite", false, "overwrite attribute values that are already present")
	cmd.Flags().Bool("no-predict", false, "import without applying predictions")
	cmd.Flags().StringSlice("deny-account", nil, "exclude transactions touching this account from training (repeatable)")
	cmd.Flags().StringSlice("anchor-account", nil, "account qualifying transactions for training (repeatable)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	account, _ := cmd.Flags().GetString("account")
	attribute, _ := cmd.Flags().GetString("attribute")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	noPredict, _ := cmd.Flags().GetBool("no-predict")
	denylist, _ := cmd.Flags().GetStringSlice("deny-account")
	anchors, _ := cmd.Flags().GetStringSlice("anchor-account")

	cfg := configForAttribute(attribute)
	cfg.Overwrite = overwrite
	cfg.Predict = !noPredict
	cfg.DenylistAccounts = denylist
	cfg.AnchorAccounts = anchors

	pred, err := predictor.New(cfg)
	if err != nil {
		return err
	}

	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	existing, err := store.LoadDirectives(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	slog.Info("Loaded history", "entries", len(existing))

	importer := ofx.NewImporter(account)
	for _, file := range args {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		imported, err := importer.ImportFile(ctx, f)
		_ = f.Close()
		if err != nil {
			return err
		}

		result, err := pred.Apply(ctx, importer, file, imported, existing)
		if err != nil {
			return fmt.Errorf("prediction failed for %s: %w", file, err)
		}

		printEntries(result)
	}
	return nil
}

// configForAttribute maps an attribute name to its stock predictor
// configuration, falling back to default weights for other attributes.
func configForAttribute(attribute string) predictor.Config {
	switch attribute {
	case model.AttrPayee:
		return predictor.PayeeConfig()
	case model.AttrSecondPostingAccount:
		return predictor.PostingConfig()
	default:
		return predictor.Config{
			Attribute: attribute,
			Predict:   true,
			Weights: map[string]float64{
				feature.Narration: 0.8,
				feature.Payee:     0.5,
			},
		}
	}
}

var (
	dateColor    = color.New(color.FgYellow)
	payeeColor   = color.New(color.FgCyan, color.Bold)
	accountColor = color.New(color.FgGreen)
)

// printEntries renders directives in a ledger-like layout.
func printEntries(entries []model.Directive) {
	for _, entry := range entries {
		switch d := entry.(type) {
		case *model.Open:
			fmt.Printf("%s open %s\n", dateColor.Sprint(d.On.Format("2006-01-02")), accountColor.Sprint(d.Account))
		case *model.Close:
			fmt.Printf("%s close %s\n", dateColor.Sprint(d.On.Format("2006-01-02")), accountColor.Sprint(d.Account))
		case *model.Transaction:
			header := []string{dateColor.Sprint(d.On.Format("2006-01-02")), "*"}
			if d.Payee != "" {
				header = append(header, payeeColor.Sprintf("%q", d.Payee))
			}
			if d.Narration != "" {
				header = append(header, fmt.Sprintf("%q", d.Narration))
			}
			fmt.Println(strings.Join(header, " "))
			for _, pos := range d.Postings {
				if pos.HasAmount {
					fmt.Printf("  %-40s %s\n", accountColor.Sprint(pos.Account), pos.Amount.StringFixed(2))
				} else {
					fmt.Printf("  %s\n", accountColor.Sprint(pos.Account))
				}
			}
			fmt.Println()
		}
	}
}
