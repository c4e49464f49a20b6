package service

import (
	"context"
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Ledger — append-only record of observed payments plus the per-chain poll
// cursors and the manual review queue. The tx_hash primary key is the single
// de-duplication boundary for the whole system.
type Ledger struct {
	db *db.PgTxManager
}

func NewLedger(m *db.PgTxManager) *Ledger {
	return &Ledger{db: m}
}

// InsertIfNew appends the payment and reports whether this was the first
// observation. Duplicates are swallowed by the primary key, not by any
// application-level lock, so concurrent cycles (or a second worker during a
// deploy overlap) stay correct.
func (l *Ledger) InsertIfNew(ctx context.Context, p models.Payment) (fresh bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("ledger.InsertIfNew: %w", err)
		}
	}()

	err = l.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx,
			`INSERT INTO payments (tx_hash, chain, token, to_addr, from_addr, amount, observed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (tx_hash) DO NOTHING`,
			p.TxHash, string(p.Chain), p.Token, p.To, p.From, p.Amount, p.ObservedAt,
		)
		if err != nil {
			return err
		}
		fresh = tag.RowsAffected() == 1
		return nil
	})
	return fresh, err
}

// Cursor returns the persisted high-water-mark for the chain, empty string on
// first run.
func (l *Ledger) Cursor(ctx context.Context, chain models.Chain) (cursor string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("ledger.Cursor: %w", err)
		}
	}()

	row := l.db.Conn().QueryRow(ctx,
		`SELECT cursor FROM chain_cursors WHERE chain = $1`, string(chain))
	switch err = row.Scan(&cursor); err {
	case nil:
		return cursor, nil
	case pgx.ErrNoRows:
		return "", nil
	default:
		return "", err
	}
}

func (l *Ledger) SetCursor(ctx context.Context, chain models.Chain, cursor string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("ledger.SetCursor: %w", err)
		}
	}()

	return l.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO chain_cursors (chain, cursor, updated_at)
			 VALUES ($1, $2, now())
			 ON CONFLICT (chain) DO UPDATE SET cursor = EXCLUDED.cursor, updated_at = now()`,
			string(chain), cursor,
		)
		return err
	})
}

// EnqueueReview parks a payment that could not be attributed to exactly one
// pending subscription. Admins resolve these by hand.
func (l *Ledger) EnqueueReview(ctx context.Context, p models.Payment, reason string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("ledger.EnqueueReview: %w", err)
		}
	}()

	return l.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO payment_reviews (tx_hash, reason) VALUES ($1, $2)`,
			p.TxHash, reason,
		)
		return err
	})
}

// PendingReviews counts unresolved review items, for the health endpoint.
func (l *Ledger) PendingReviews(ctx context.Context) (n int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("ledger.PendingReviews: %w", err)
		}
	}()

	row := l.db.Conn().QueryRow(ctx,
		`SELECT count(*) FROM payment_reviews WHERE NOT resolved`)
	if err = row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
