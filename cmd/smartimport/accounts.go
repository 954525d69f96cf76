package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mescanne/smart-importer/internal/ledger"
	"github.com/mescanne/smart-importer/internal/storage"
)

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts currently open in the history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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

			entries, err := store.LoadDirectives(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			open := ledger.OpenAccounts(entries)
			names := make([]string, 0, len(open))
			for name := range open {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Printf("%s  (opened %s)\n", name, open[name].On.Format("2006-01-02"))
			}
			return nil
		},
	}
}
