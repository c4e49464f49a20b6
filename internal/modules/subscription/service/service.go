package service

import (
	"context"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	"github.com/pkg/errors"
)

// ErrNotPending is returned when an activation hits a subscriber that is not
// awaiting payment. The caller logs it as an inconsistency; state is left
// untouched.
var ErrNotPending = errors.New("subscription is not pending")

// Store holds subscription rows. Activate and SweepExpirations must be atomic
// status-guarded updates so that two racing workers cannot double-credit one
// payment.
type Store interface {
	Ensure(ctx context.Context, chatID string) error
	MarkPending(ctx context.Context, chatID string, plan models.Plan) error
	Activate(ctx context.Context, chatID string, plan models.Plan, startedAt, expiresAt time.Time) (bool, error)
	SweepExpirations(ctx context.Context, now time.Time) (int, error)
	Active(ctx context.Context) ([]string, error)
	Pending(ctx context.Context) ([]models.Subscription, error)
	Get(ctx context.Context, chatID string) (*models.Subscription, error)
}

// Service — the subscription state machine:
//
//	none → pending → active → expired, with expired|active → pending
//	re-entry on a new plan selection.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Ensure registers the subscriber on first contact. Idempotent.
func (s *Service) Ensure(ctx context.Context, chatID string) error {
	return s.store.Ensure(ctx, chatID)
}

// MarkPending records a plan selection: any prior state moves to pending with
// cleared timestamps. Re-selecting while already pending just overwrites the
// plan.
func (s *Service) MarkPending(ctx context.Context, chatID string, plan models.Plan) error {
	if !plan.Valid() {
		return errors.Errorf("unknown plan %q", plan)
	}
	return s.store.MarkPending(ctx, chatID, plan)
}

// Activate moves a pending subscriber to active and stamps the validity
// window. A subscriber in any other state is rejected with ErrNotPending,
// which is what stops one payment from activating the same subscriber twice.
func (s *Service) Activate(ctx context.Context, chatID string, plan models.Plan, now time.Time) error {
	if !plan.Valid() {
		return errors.Errorf("unknown plan %q", plan)
	}
	ok, err := s.store.Activate(ctx, chatID, plan, now, now.Add(plan.Duration()))
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("activate rejected: chat %s is not pending", chatID)
		return ErrNotPending
	}
	return nil
}

// SweepExpirations marks every active subscription past its expiry as
// expired. Runs first in every cycle so the following broadcast never reaches
// lapsed subscribers.
func (s *Service) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.SweepExpirations(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("expired %d subscription(s)", n)
	}
	return n, nil
}

func (s *Service) Active(ctx context.Context) ([]string, error) {
	return s.store.Active(ctx)
}

func (s *Service) Pending(ctx context.Context) ([]models.Subscription, error) {
	return s.store.Pending(ctx)
}

func (s *Service) Get(ctx context.Context, chatID string) (*models.Subscription, error) {
	return s.store.Get(ctx, chatID)
}
