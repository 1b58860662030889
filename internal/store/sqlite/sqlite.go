// Package sqlite is the SQLite storage driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
)

//go:embed schema.sql
var schema string

// timeFormat is fixed width so that stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// DB is a store.Store backed by a SQLite file.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps writers serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// RunInTransaction implements store.Store.
func (d *DB) RunInTransaction(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

const transactionColumns = `id, user_id, institution_id, posted_at, description_raw, amount_cents,
	category_path, currency, direction, source_type, source_file_name, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (model.Transaction, error) {
	var t model.Transaction
	var direction string
	var sourceType, sourceFile sql.NullString
	var created, updated string
	if err := s.Scan(&t.ID, &t.UserID, &t.InstitutionID, &t.PostedAt, &t.DescriptionRaw, &t.AmountCents,
		&t.CategoryPath, &t.Currency, &direction, &sourceType, &sourceFile, &created, &updated); err != nil {
		return t, err
	}
	t.Direction = model.Direction(direction)
	if sourceType.Valid {
		t.Source = &model.Source{Type: sourceType.String, FileName: sourceFile.String}
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return t, err
	}
	return t, nil
}

func (s *sqlTx) AllTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions ORDER BY posted_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *sqlTx) TransactionByID(ctx context.Context, id string) (model.Transaction, error) {
	row := s.tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return t, fmt.Errorf("query transaction %s: %w", id, err)
	}
	return t, nil
}

func (s *sqlTx) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	stmt, err := s.tx.PrepareContext(ctx, `INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert transaction: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		var sourceType, sourceFile sql.NullString
		if t.Source != nil {
			sourceType = sql.NullString{String: t.Source.Type, Valid: true}
			sourceFile = sql.NullString{String: t.Source.FileName, Valid: t.Source.FileName != ""}
		}
		path := t.CategoryPath
		if path == "" {
			path = model.UncategorizedPath
		}
		direction := t.Direction
		if direction == "" {
			direction = model.DirectionDebit
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.UserID, t.InstitutionID, t.PostedAt, t.DescriptionRaw,
			t.AmountCents, path, t.Currency, string(direction), sourceType, sourceFile,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *sqlTx) UpdateTransactionCategory(ctx context.Context, id, path string, updatedAt time.Time) error {
	res, err := s.tx.ExecContext(ctx, `UPDATE transactions SET category_path = ?, updated_at = ? WHERE id = ?`,
		path, formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *sqlTx) AllCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT id, name, COALESCE(parent_id, '') FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *sqlTx) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	stmt, err := s.tx.PrepareContext(ctx, `INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert category: %w", err)
	}
	defer stmt.Close()

	for _, c := range cats {
		parent := sql.NullString{String: c.ParentID, Valid: c.ParentID != ""}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, parent); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *sqlTx) AllAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT id, user_id, type, name, nickname, last4, switch_tokens,
		created_at, updated_at FROM accounts ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accts []model.Account
	for rows.Next() {
		var a model.Account
		var typ, tokens, created, updated string
		if err := rows.Scan(&a.ID, &a.UserID, &typ, &a.Name, &a.Aliases.Nickname, &a.Aliases.Last4,
			&tokens, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = model.AccountType(typ)
		if err := json.Unmarshal([]byte(tokens), &a.Aliases.SwitchTokens); err != nil {
			return nil, fmt.Errorf("account %s switch tokens: %w", a.ID, err)
		}
		if len(a.Aliases.SwitchTokens) == 0 {
			a.Aliases.SwitchTokens = nil
		}
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		accts = append(accts, a)
	}
	return accts, rows.Err()
}

func (s *sqlTx) UpsertAccount(ctx context.Context, a model.Account) error {
	tokens := a.Aliases.SwitchTokens
	if tokens == nil {
		tokens = []string{}
	}
	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal switch tokens: %w", err)
	}
	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, type, name, nickname, last4, switch_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id, type = excluded.type, name = excluded.name,
			nickname = excluded.nickname, last4 = excluded.last4,
			switch_tokens = excluded.switch_tokens, updated_at = excluded.updated_at
	`, a.ID, a.UserID, string(a.Type), a.Name, a.Aliases.Nickname, a.Aliases.Last4, string(tokensJSON),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (s *sqlTx) AppendActivity(ctx context.Context, a model.Activity) error {
	var metadata sql.NullString
	if a.Metadata != nil {
		b, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.tx.ExecContext(ctx, `INSERT INTO activity (id, user_id, datetime, type, message, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, formatTime(a.Datetime), string(a.Type), a.Message, metadata)
	if err != nil {
		return fmt.Errorf("insert activity %s: %w", a.ID, err)
	}
	return nil
}

func (s *sqlTx) Activity(ctx context.Context, userID string) ([]model.Activity, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT id, user_id, datetime, type, message, metadata
		FROM activity WHERE user_id = ? ORDER BY datetime DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var when, typ string
		var metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &when, &typ, &a.Message, &metadata); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = model.ActivityType(typ)
		if a.Datetime, err = parseTime(when); err != nil {
			return nil, err
		}
		if metadata.Valid {
			a.Metadata = &model.ImportMetadata{}
			if err := json.Unmarshal([]byte(metadata.String), a.Metadata); err != nil {
				return nil, fmt.Errorf("activity %s metadata: %w", a.ID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
