package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// Ledger stores each user's transaction list. A write replaces the whole list.
type Ledger interface {
	// Transactions returns the stored list in insertion order, or nil if the
	// user has never stored one.
	Transactions(ctx context.Context, user string) ([]models.Transaction, error)
	ReplaceTransactions(ctx context.Context, user string, txs []models.Transaction) error
}

// LedgerRepository keeps ledgers in ClickHouse. Every replacement is written
// under a new revision; ledger_revisions points readers at the latest one, so
// a reader never observes a half-written list.
type LedgerRepository struct {
	db  *ClickHouseDB
	now func() time.Time
}

// NewLedgerRepository creates a ClickHouse ledger repository
func NewLedgerRepository(db *ClickHouseDB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

func (r *LedgerRepository) Transactions(ctx context.Context, user string) ([]models.Transaction, error) {
	var revision uint64
	row := r.db.Conn().QueryRow(ctx, `
		SELECT revision FROM ledger_revisions FINAL
		WHERE user_id = ?
	`, user)
	if err := row.Scan(&revision); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger revision: %w", err)
	}

	rows, err := r.db.Conn().Query(ctx, `
		SELECT id, date, hash, type, tokens, amount, usd, status, network
		FROM ledger_transactions
		WHERE user_id = ? AND revision = ?
		ORDER BY position
	`, user, revision)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var (
			tx     models.Transaction
			date   time.Time
			txType string
			status string
		)
		if err := rows.Scan(&tx.ID, &date, &tx.Hash, &txType, &tx.Tokens, &tx.Amount, &tx.USD, &status, &tx.Network); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		tx.Date = models.DateOf(date)
		tx.Type = types.TransactionType(txType)
		tx.Status = types.TransactionStatus(status)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}

	return txs, nil
}

func (r *LedgerRepository) ReplaceTransactions(ctx context.Context, user string, txs []models.Transaction) error {
	revision := uint64(r.now().UnixNano()) // #nosec G115 - wall clock is after 1970

	if len(txs) > 0 {
		batch, err := r.db.Conn().PrepareBatch(ctx, `
			INSERT INTO ledger_transactions (
				user_id, revision, position, id, date, hash, type, tokens, amount, usd, status, network
			)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare ledger batch: %w", err)
		}

		for i, tx := range txs {
			if err := batch.Append(
				user,
				revision,
				uint32(i), // #nosec G115 - ledgers are far below 2^32 rows
				tx.ID,
				tx.Date.Time(),
				tx.Hash,
				string(tx.Type),
				tx.Tokens,
				tx.Amount,
				tx.USD,
				string(tx.Status),
				tx.Network,
			); err != nil {
				_ = batch.Abort()
				return fmt.Errorf("failed to append ledger row %d: %w", i, err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send ledger batch: %w", err)
		}
	}

	if err := r.db.Exec(ctx, `
		INSERT INTO ledger_revisions (user_id, revision, row_count) VALUES (?, ?, ?)
	`, user, revision, uint32(len(txs))); err != nil { // #nosec G115
		return fmt.Errorf("failed to publish ledger revision: %w", err)
	}

	return nil
}

// KVLedger keeps ledgers as documents under transactions:{user}
type KVLedger struct {
	kv KV
}

// NewKVLedger creates a ledger over kv
func NewKVLedger(kv KV) *KVLedger {
	return &KVLedger{kv: kv}
}

func (l *KVLedger) Transactions(ctx context.Context, user string) ([]models.Transaction, error) {
	var txs []models.Transaction
	found, err := l.kv.Get(ctx, TransactionsKey(user), &txs)
	if err != nil || !found {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (l *KVLedger) ReplaceTransactions(ctx context.Context, user string, txs []models.Transaction) error {
	if txs == nil {
		txs = []models.Transaction{}
	}
	return l.kv.Put(ctx, TransactionsKey(user), txs)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
