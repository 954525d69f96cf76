package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mescanne/smart-importer/internal/model"
	"github.com/mescanne/smart-importer/internal/ofx"
	"github.com/mescanne/smart-importer/internal/storage"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Load OFX files into the history database",
		Long: `Parse OFX/QFX files and append their transactions to the history
database that predictions are trained on. The account is opened in the
history on first ingest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("account", "", "ledger account the files belong to (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	account, _ := cmd.Flags().GetString("account")

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

	importer := ofx.NewImporter(account)
	var entries []model.Directive

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
		entries = append(entries, imported...)
	}

	if len(entries) == 0 {
		slog.Warn("No transactions found in input files")
		return nil
	}

	// Make sure the account is open before its first transaction, otherwise
	// the training filter would reject the whole history.
	existing, err := store.LoadDirectives(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if !accountOpened(existing, account) {
		first := model.SortedByDate(entries)[0].Date()
		entries = append([]model.Directive{
			&model.Open{On: first.AddDate(0, 0, -1), Account: account},
		}, entries...)
	}

	if err := store.SaveDirectives(ctx, entries); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	slog.Info("Ingested files", "files", len(args), "entries", len(entries))
	return nil
}

func accountOpened(entries []model.Directive, account string) bool {
	for _, entry := range entries {
		if open, ok := entry.(*model.Open); ok && open.Account == account {
			return true
		}
	}
	return false
}
