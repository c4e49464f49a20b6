package pg

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Store implements the subscription store over Postgres. Status transitions
// are single guarded statements; the WHERE clause carries the state-machine
// precondition so the guarantee survives concurrent workers.
type Store struct {
	db *db.PgTxManager
}

func NewStore(m *db.PgTxManager) *Store {
	return &Store{db: m}
}

func (s *Store) Ensure(ctx context.Context, chatID string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Ensure: %w", err)
		}
	}()

	return s.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO subscriptions (chat_id, status) VALUES ($1, 'none')
			 ON CONFLICT (chat_id) DO NOTHING`,
			chatID,
		)
		return err
	})
}

func (s *Store) MarkPending(ctx context.Context, chatID string, plan models.Plan) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.MarkPending: %w", err)
		}
	}()

	return s.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO subscriptions (chat_id, plan, status, started_at, expires_at)
			 VALUES ($1, $2, 'pending', NULL, NULL)
			 ON CONFLICT (chat_id) DO UPDATE
			 SET plan = EXCLUDED.plan, status = 'pending', started_at = NULL, expires_at = NULL`,
			chatID, string(plan),
		)
		return err
	})
}

func (s *Store) Activate(ctx context.Context, chatID string, plan models.Plan, startedAt, expiresAt time.Time) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Activate: %w", err)
		}
	}()

	err = s.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx,
			`UPDATE subscriptions
			 SET status = 'active', plan = $2, started_at = $3, expires_at = $4
			 WHERE chat_id = $1 AND status = 'pending'`,
			chatID, string(plan), startedAt, expiresAt,
		)
		if err != nil {
			return err
		}
		ok = tag.RowsAffected() == 1
		return nil
	})
	return ok, err
}

func (s *Store) SweepExpirations(ctx context.Context, now time.Time) (n int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SweepExpirations: %w", err)
		}
	}()

	err = s.db.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx,
			`UPDATE subscriptions SET status = 'expired'
			 WHERE status = 'active' AND expires_at <= $1`,
			now,
		)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

func (s *Store) Active(ctx context.Context) (ids []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Active: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx,
		`SELECT chat_id FROM subscriptions WHERE status = 'active' ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Pending(ctx context.Context) (subs []models.Subscription, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Pending: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx,
		`SELECT chat_id, plan, status, started_at, expires_at
		 FROM subscriptions WHERE status = 'pending' ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *Store) Get(ctx context.Context, chatID string) (sub *models.Subscription, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Get: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx,
		`SELECT chat_id, plan, status, started_at, expires_at
		 FROM subscriptions WHERE chat_id = $1`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSubscription(rows)
}

func scanSubscription(rows pgx.Rows) (*models.Subscription, error) {
	var (
		sub                  models.Subscription
		plan, status         string
		startedAt, expiresAt *time.Time
	)
	if err := rows.Scan(&sub.ChatID, &plan, &status, &startedAt, &expiresAt); err != nil {
		return nil, err
	}
	sub.Plan = models.Plan(plan)
	sub.Status = models.Status(status)
	sub.StartedAt = startedAt
	sub.ExpiresAt = expiresAt
	return &sub, nil
}
