// Package storage persists ledger directive history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mescanne/smart-importer/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore holds the directive history an importer trains against.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) a history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath must not be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to the expected version.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// SaveDirectives appends directives to the history in one transaction.
func (s *SQLiteStore) SaveDirectives(ctx context.Context, entries []model.Directive) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, entry := range entries {
		if err := saveDirective(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit directives: %w", err)
	}
	return nil
}

func saveDirective(ctx context.Context, tx *sql.Tx, entry model.Directive) error {
	switch d := entry.(type) {
	case *model.Open:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO directives (kind, date, account) VALUES (?, ?, ?)`,
			model.KindOpen, d.On.Format(time.RFC3339), d.Account)
		if err != nil {
			return fmt.Errorf("failed to save open directive: %w", err)
		}
	case *model.Close:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO directives (kind, date, account) VALUES (?, ?, ?)`,
			model.KindClose, d.On.Format(time.RFC3339), d.Account)
		if err != nil {
			return fmt.Errorf("failed to save close directive: %w", err)
		}
	case *model.Transaction:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO directives (kind, date, payee, narration) VALUES (?, ?, ?, ?)`,
			model.KindTransaction, d.On.Format(time.RFC3339), d.Payee, d.Narration)
		if err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get directive id: %w", err)
		}
		for i, pos := range d.Postings {
			amount := any(nil)
			if pos.HasAmount {
				amount = pos.Amount.String()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO postings (directive_id, idx, account, amount) VALUES (?, ?, ?, ?)`,
				id, i, pos.Account, amount)
			if err != nil {
				return fmt.Errorf("failed to save posting: %w", err)
			}
		}
	default:
		return fmt.Errorf("unsupported directive kind %q", entry.Kind())
	}
	return nil
}

// LoadDirectives returns the full history in chronological order.
func (s *SQLiteStore) LoadDirectives(ctx context.Context) ([]model.Directive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, date, account, payee, narration FROM directives ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query directives: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.Directive
	txnIDs := make(map[int64]*model.Transaction)

	for rows.Next() {
		var id int64
		var kind, date string
		var account, payee, narr sql.NullString
		if err := rows.Scan(&id, &kind, &date, &account, &payee, &narr); err != nil {
			return nil, fmt.Errorf("failed to scan directive: %w", err)
		}
		on, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse directive date: %w", err)
		}

		switch model.DirectiveKind(kind) {
		case model.KindOpen:
			entries = append(entries, &model.Open{On: on, Account: account.String})
		case model.KindClose:
			entries = append(entries, &model.Close{On: on, Account: account.String})
		case model.KindTransaction:
			txn := &model.Transaction{On: on, Payee: payee.String, Narration: narr.String}
			txnIDs[id] = txn
			entries = append(entries, txn)
		default:
			return nil, fmt.Errorf("unsupported directive kind %q in database", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate directives: %w", err)
	}

	if err := s.loadPostings(ctx, txnIDs); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *SQLiteStore) loadPostings(ctx context.Context, txns map[int64]*model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT directive_id, account, amount FROM postings ORDER BY directive_id, idx`)
	if err != nil {
		return fmt.Errorf("failed to query postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id      int64
			account string
			amount  sql.NullString
		)
		if err := rows.Scan(&id, &account, &amount); err != nil {
			return fmt.Errorf("failed to scan posting: %w", err)
		}
		txn, ok := txns[id]
		if !ok {
			continue
		}
		pos := model.Posting{Account: account}
		if amount.Valid {
			value, err := decimal.NewFromString(amount.String)
			if err != nil {
				return fmt.Errorf("failed to parse posting amount: %w", err)
			}
			pos.Amount = value
			pos.HasAmount = true
		}
		txn.Postings = append(txn.Postings, pos)
	}
	return rows.Err()
}
