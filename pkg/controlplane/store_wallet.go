package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by store lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// GetWalletByOrgQ locks and returns the wallet for an organization for update
// within the caller's transaction. Scoping the row lock to wallet_id is what
// makes the wallet section serializable with respect to concurrent
// authorize/settle/top-up calls on the same wallet.
func (s *Store) GetWalletByOrgQ(ctx context.Context, q querier, orgID uuid.UUID) (Wallet, error) {
	row := q.QueryRow(ctx, `SELECT id, org_id, balance, currency FROM wallets WHERE org_id = $1 FOR UPDATE`, orgID)
	var w Wallet
	if err := row.Scan(&w.ID, &w.OrgID, &w.Balance, &w.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("loading wallet: %w", err)
	}
	return w, nil
}

// GetWalletByIDQ locks and returns a wallet by id for update.
func (s *Store) GetWalletByIDQ(ctx context.Context, q querier, id uuid.UUID) (Wallet, error) {
	row := q.QueryRow(ctx, `SELECT id, org_id, balance, currency FROM wallets WHERE id = $1 FOR UPDATE`, id)
	var w Wallet
	if err := row.Scan(&w.ID, &w.OrgID, &w.Balance, &w.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("loading wallet: %w", err)
	}
	return w, nil
}

// CreateWalletQ inserts a wallet for an organization with the given starting balance.
func (s *Store) CreateWalletQ(ctx context.Context, q querier, orgID uuid.UUID, balance int64) (Wallet, error) {
	row := q.QueryRow(ctx, `INSERT INTO wallets (org_id, balance, currency) VALUES ($1, $2, 'credits') RETURNING id, org_id, balance, currency`, orgID, balance)
	var w Wallet
	if err := row.Scan(&w.ID, &w.OrgID, &w.Balance, &w.Currency); err != nil {
		return Wallet{}, fmt.Errorf("creating wallet: %w", err)
	}
	return w, nil
}

// PendingReservedQ sums the amount of all PENDING reservations for a wallet.
func (s *Store) PendingReservedQ(ctx context.Context, q querier, walletID uuid.UUID) (int64, error) {
	row := q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM reservations WHERE wallet_id = $1 AND status = 'PENDING'`, walletID)
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing pending reservations: %w", err)
	}
	return sum, nil
}

// CreateReservationQ inserts a reservation row.
func (s *Store) CreateReservationQ(ctx context.Context, q querier, walletID, instanceID uuid.UUID, amount int64, status string) (Reservation, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO reservations (wallet_id, instance_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, wallet_id, instance_id, amount, status, created_at, settled_at`,
		walletID, instanceID, amount, status,
	)
	var r Reservation
	if err := row.Scan(&r.ID, &r.WalletID, &r.InstanceID, &r.Amount, &r.Status, &r.CreatedAt, &r.SettledAt); err != nil {
		return Reservation{}, fmt.Errorf("creating reservation: %w", err)
	}
	return r, nil
}

// GetReservationQ locks and returns a reservation by id for update.
func (s *Store) GetReservationQ(ctx context.Context, q querier, id uuid.UUID) (Reservation, error) {
	row := q.QueryRow(ctx, `SELECT id, wallet_id, instance_id, amount, status, created_at, settled_at FROM reservations WHERE id = $1 FOR UPDATE`, id)
	var r Reservation
	if err := row.Scan(&r.ID, &r.WalletID, &r.InstanceID, &r.Amount, &r.Status, &r.CreatedAt, &r.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrNotFound
		}
		return Reservation{}, fmt.Errorf("loading reservation: %w", err)
	}
	return r, nil
}

// SettleReservationQ marks a PENDING reservation SETTLED, debits the wallet,
// and inserts the USAGE ledger entry, all within the caller's transaction.
// Returns the created ledger entry and the wallet's new balance.
func (s *Store) SettleReservationQ(ctx context.Context, q querier, r Reservation, debited int64, usage map[string]any) (LedgerEntry, int64, error) {
	row := q.QueryRow(ctx, `UPDATE wallets SET balance = balance - $1 WHERE id = $2 RETURNING balance`, debited, r.WalletID)
	var newBalance int64
	if err := row.Scan(&newBalance); err != nil {
		return LedgerEntry{}, 0, fmt.Errorf("debiting wallet: %w", err)
	}

	entry, err := s.insertLedgerEntryQ(ctx, q, r.WalletID, -debited, EntryUsage, r.ID.String(), &r.InstanceID, map[string]any{"usage": usage})
	if err != nil {
		return LedgerEntry{}, 0, err
	}

	tag, err := q.Exec(ctx, `UPDATE reservations SET status = 'SETTLED', settled_at = now() WHERE id = $1 AND status = 'PENDING'`, r.ID)
	if err != nil {
		return LedgerEntry{}, 0, fmt.Errorf("marking reservation settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return LedgerEntry{}, 0, fmt.Errorf("reservation %s was not PENDING at settle time", r.ID)
	}

	return entry, newBalance, nil
}

// LedgerEntryForReservationQ returns the USAGE ledger entry referencing a
// settled reservation, used to answer idempotent settle replays.
func (s *Store) LedgerEntryForReservationQ(ctx context.Context, q querier, reservationID uuid.UUID) (LedgerEntry, error) {
	row := q.QueryRow(ctx, `SELECT id, wallet_id, amount, entry_type, reference_id, instance_id, metadata, created_at
		FROM ledger_entries WHERE reference_id = $1 AND entry_type = 'USAGE'`, reservationID.String())
	var e LedgerEntry
	if err := row.Scan(&e.ID, &e.WalletID, &e.Amount, &e.EntryType, &e.ReferenceID, &e.InstanceID, &e.Metadata, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrNotFound
		}
		return LedgerEntry{}, fmt.Errorf("loading settlement ledger entry: %w", err)
	}
	return e, nil
}

// LedgerEntryByReferenceQ returns a ledger entry for a wallet by reference_id.
func (s *Store) LedgerEntryByReferenceQ(ctx context.Context, q querier, walletID uuid.UUID, referenceID string) (LedgerEntry, error) {
	row := q.QueryRow(ctx, `SELECT id, wallet_id, amount, entry_type, reference_id, instance_id, metadata, created_at
		FROM ledger_entries WHERE wallet_id = $1 AND reference_id = $2`, walletID, referenceID)
	var e LedgerEntry
	if err := row.Scan(&e.ID, &e.WalletID, &e.Amount, &e.EntryType, &e.ReferenceID, &e.InstanceID, &e.Metadata, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrNotFound
		}
		return LedgerEntry{}, fmt.Errorf("loading ledger entry by reference: %w", err)
	}
	return e, nil
}

// insertLedgerEntryQ inserts a ledger entry row.
func (s *Store) insertLedgerEntryQ(ctx context.Context, q querier, walletID uuid.UUID, amount int64, entryType, referenceID string, instanceID *uuid.UUID, metadata map[string]any) (LedgerEntry, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO ledger_entries (wallet_id, amount, entry_type, reference_id, instance_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, wallet_id, amount, entry_type, reference_id, instance_id, metadata, created_at`,
		walletID, amount, entryType, referenceID, instanceID, metadata,
	)
	var e LedgerEntry
	if err := row.Scan(&e.ID, &e.WalletID, &e.Amount, &e.EntryType, &e.ReferenceID, &e.InstanceID, &e.Metadata, &e.CreatedAt); err != nil {
		return LedgerEntry{}, fmt.Errorf("inserting ledger entry: %w", err)
	}
	return e, nil
}

// TopUpQ credits a wallet and writes the corresponding ledger entry within
// the caller's transaction. Returns the new balance.
func (s *Store) TopUpQ(ctx context.Context, q querier, walletID uuid.UUID, amount int64, entryType, referenceID string, metadata map[string]any) (int64, error) {
	row := q.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2 RETURNING balance`, amount, walletID)
	var newBalance int64
	if err := row.Scan(&newBalance); err != nil {
		return 0, fmt.Errorf("crediting wallet: %w", err)
	}
	if _, err := s.insertLedgerEntryQ(ctx, q, walletID, amount, entryType, referenceID, nil, metadata); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ListLedgerQ returns ledger entries for a wallet, newest first, paginated.
func (s *Store) ListLedgerQ(ctx context.Context, q querier, walletID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	rows, err := q.Query(ctx, `SELECT id, wallet_id, amount, entry_type, reference_id, instance_id, metadata, created_at
		FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Amount, &e.EntryType, &e.ReferenceID, &e.InstanceID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
