package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictgate/predictgate/internal/domain"
)

// JournalStore implements domain.JournalStore using PostgreSQL.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

const journalColumns = `id, action, market_id, account, chain_id, amount_wei, tx_hash, status, error, created_at, updated_at`

// Insert appends a new journal entry.
func (s *JournalStore) Insert(ctx context.Context, e domain.JournalEntry) error {
	const query = `
		INSERT INTO tx_journal (id, action, market_id, account, chain_id, amount_wei, tx_hash, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.Action, e.MarketID, e.Account, e.ChainID,
		e.AmountWei, e.TxHash, e.Status, e.Error, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert journal entry %s: %w", e.ID, err)
	}
	return nil
}

// MarkConfirmed records a mined transaction against the entry.
func (s *JournalStore) MarkConfirmed(ctx context.Context, id, txHash string) error {
	const query = `
		UPDATE tx_journal
		SET status = $2, tx_hash = $3, error = '', updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, domain.JournalConfirmed, txHash)
	if err != nil {
		return fmt.Errorf("postgres: confirm journal entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: confirm journal entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkFailed records a submission or execution failure against the entry.
func (s *JournalStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	const query = `
		UPDATE tx_journal
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, domain.JournalFailed, errMsg)
	if err != nil {
		return fmt.Errorf("postgres: fail journal entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: fail journal entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest entries first, up to limit.
func (s *JournalStore) ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + journalColumns + ` FROM tx_journal ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent journal entries: %w", err)
	}
	defer rows.Close()

	return scanJournalRows(rows)
}

// ListByMarket returns all entries for one market, newest first.
func (s *JournalStore) ListByMarket(ctx context.Context, marketID string) ([]domain.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM tx_journal WHERE market_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal entries for market %s: %w", marketID, err)
	}
	defer rows.Close()

	return scanJournalRows(rows)
}

func scanJournalRows(rows pgx.Rows) ([]domain.JournalEntry, error) {
	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(
			&e.ID, &e.Action, &e.MarketID, &e.Account, &e.ChainID,
			&e.AmountWei, &e.TxHash, &e.Status, &e.Error, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: journal rows: %w", err)
	}
	return entries, nil
}
