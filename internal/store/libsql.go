package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/txlens/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// SaveTransaction inserts or refreshes a cached transaction, keyed by hash.
func (s *LibSQLStore) SaveTransaction(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	traceLines, err := marshalLines(tx.TraceLines)
	if err != nil {
		return fmt.Errorf("marshal trace_lines: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, hash, network, operations, trace_lines, created_at, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET
		   operations=excluded.operations,
		   trace_lines=excluded.trace_lines,
		   fetched_at=excluded.fetched_at`,
		tx.ID, tx.Hash, nullStr(tx.Network), string(tx.Operations), traceLines,
		timeOrNow(tx.CreatedAt), timeOrNow(tx.FetchedAt),
	)
	return err
}

// GetTransaction loads a cached transaction by hash.
func (s *LibSQLStore) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	tx := &Transaction{}
	var network, traceLines sql.NullString
	var operations string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, hash, network, operations, trace_lines, created_at, fetched_at
		 FROM transactions WHERE hash = ?`, hash,
	).Scan(&tx.ID, &tx.Hash, &network, &operations, &traceLines, &tx.CreatedAt, &tx.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "transaction not found").WithTx(hash)
	}
	if err != nil {
		return nil, err
	}

	tx.Network = network.String
	tx.Operations = json.RawMessage(operations)
	if traceLines.Valid && traceLines.String != "" {
		if err := json.Unmarshal([]byte(traceLines.String), &tx.TraceLines); err != nil {
			return nil, fmt.Errorf("unmarshal trace_lines for %s: %w", hash, err)
		}
	}
	return tx, nil
}

// ListTransactions returns cached transactions matching the filter,
// newest first.
func (s *LibSQLStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error) {
	query := `SELECT id, hash, network, operations, trace_lines, created_at, fetched_at FROM transactions`
	var conds []string
	var args []any

	if filter.Network != "" {
		conds = append(conds, "network = ?")
		args = append(args, filter.Network)
	}
	if filter.Before != nil {
		conds = append(conds, "fetched_at < ?")
		args = append(args, filter.Before.UTC())
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY fetched_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		tx := &Transaction{}
		var network, traceLines sql.NullString
		var operations string
		if err := rows.Scan(&tx.ID, &tx.Hash, &network, &operations, &traceLines, &tx.CreatedAt, &tx.FetchedAt); err != nil {
			return nil, err
		}
		tx.Network = network.String
		tx.Operations = json.RawMessage(operations)
		if traceLines.Valid && traceLines.String != "" {
			if err := json.Unmarshal([]byte(traceLines.String), &tx.TraceLines); err != nil {
				return nil, fmt.Errorf("unmarshal trace_lines for %s: %w", tx.Hash, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// DeleteTransactionsBefore removes cached transactions fetched before the
// cutoff and returns the number of rows deleted.
func (s *LibSQLStore) DeleteTransactionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE fetched_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- helpers ---

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func marshalLines(lines []string) (any, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

var _ Store = (*LibSQLStore)(nil)
