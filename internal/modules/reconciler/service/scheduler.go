package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/models"
	chainsvc "signal_bot/internal/modules/chains/service"
	"signal_bot/internal/modules/config"
	subscription "signal_bot/internal/modules/subscription/service"
	webstate "signal_bot/internal/modules/web/service"
	"signal_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// Ledger — what the scheduler needs from the payment ledger.
type Ledger interface {
	InsertIfNew(ctx context.Context, p models.Payment) (bool, error)
	Cursor(ctx context.Context, chain models.Chain) (string, error)
	SetCursor(ctx context.Context, chain models.Chain, cursor string) error
	EnqueueReview(ctx context.Context, p models.Payment, reason string) error
}

// Subscriptions — what the scheduler needs from the state machine.
type Subscriptions interface {
	SweepExpirations(ctx context.Context, now time.Time) (int, error)
	Active(ctx context.Context) ([]string, error)
	Pending(ctx context.Context) ([]models.Subscription, error)
	Activate(ctx context.Context, chatID string, plan models.Plan, now time.Time) error
}

type SignalSource interface {
	Build(ctx context.Context) (string, error)
}

type Notifier interface {
	Send(ctx context.Context, chatID string, text string) error
}

// Scheduler drives one reconciliation cycle per interval: sweep expirations,
// fetch the signal and poll both chains concurrently, broadcast, then commit
// new payments sequentially. No step failure ever stops the loop.
type Scheduler struct {
	cfg      *config.Config
	watchers []chainsvc.Watcher
	ledger   Ledger
	subs     Subscriptions
	signal   SignalSource
	notifier Notifier
	matcher  *Matcher
	state    *webstate.State

	inFlight atomic.Bool
}

func NewScheduler(
	cfg *config.Config,
	watchers []chainsvc.Watcher,
	ledger Ledger,
	subs Subscriptions,
	signal SignalSource,
	notifier Notifier,
	matcher *Matcher,
	state *webstate.State,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		watchers: watchers,
		ledger:   ledger,
		subs:     subs,
		signal:   signal,
		notifier: notifier,
		matcher:  matcher,
		state:    state,
	}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.state.SetReady(true)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick enforces the single-flight gate. The interval timer fires regardless
// of how long the previous cycle took, so overlap has to be excluded here
// rather than assumed away.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.Warn("previous cycle still running, skipping tick")
		return
	}
	defer s.inFlight.Store(false)
	s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) {
	span := opentracing.StartSpan("reconcile_cycle")
	defer span.Finish()

	cctx, cancel := context.WithTimeout(opentracing.ContextWithSpan(ctx, span), s.cfg.CycleTimeout)
	defer cancel()

	now := time.Now().UTC()

	// (a) expire lapsed subscribers before anything is broadcast
	_ = step(cctx, "sweep", func(ctx context.Context) error {
		if _, err := s.subs.SweepExpirations(ctx, now); err != nil {
			logger.Error("sweep: %v", err)
		}
		return nil
	})

	// (b)+(d) independent external reads, in parallel
	var (
		wg         sync.WaitGroup
		signalText string
		signalErr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = step(cctx, "signal", func(ctx context.Context) error {
			signalText, signalErr = s.signal.Build(ctx)
			return nil
		})
	}()

	results := make([]pollResult, len(s.watchers))
	for i, w := range s.watchers {
		if !w.Enabled() {
			results[i] = pollResult{chain: w.Chain(), skipped: true}
			continue
		}
		wg.Add(1)
		go func(i int, w chainsvc.Watcher) {
			defer wg.Done()
			_ = step(cctx, "poll_"+string(w.Chain()), func(ctx context.Context) error {
				results[i] = s.poll(ctx, w)
				return nil
			})
		}(i, w)
	}
	wg.Wait()

	// (c) fan out to active subscribers, mirror to admins
	if signalErr != nil {
		logger.Error("signal build failed, skipping broadcast: %v", signalErr)
	} else {
		_ = step(cctx, "broadcast", func(ctx context.Context) error {
			s.broadcast(ctx, signalText)
			return nil
		})
	}

	// (e) sequential commit phase: single-threaded so Activate's
	// "exactly one winner" stays trivially true
	_ = step(cctx, "commit", func(ctx context.Context) error {
		for _, res := range results {
			s.commit(ctx, now, res)
		}
		return nil
	})

	s.state.TouchCycle(now)
}

type pollResult struct {
	chain   models.Chain
	records []models.TransferRecord
	next    string
	skipped bool
	err     error
}

func (s *Scheduler) poll(ctx context.Context, w chainsvc.Watcher) pollResult {
	res := pollResult{chain: w.Chain()}

	cursor, err := s.ledger.Cursor(ctx, w.Chain())
	if err != nil {
		res.err = err
		return res
	}
	res.records, res.next, res.err = w.Poll(ctx, cursor)
	return res
}

func (s *Scheduler) broadcast(ctx context.Context, text string) {
	targets, err := s.subs.Active(ctx)
	if err != nil {
		logger.Error("broadcast: list active: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, chatID := range targets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.notifier.Send(ctx, id, text); err != nil {
				logger.Error("broadcast to %s: %v", id, err)
			}
		}(chatID)
	}
	wg.Wait()

	// admin mirror is independent of subscriber delivery
	s.notifyAdmins(ctx, fmt.Sprintf("📊 Signal sent to %d subscriber(s)\n\n%s", len(targets), text))
}

func (s *Scheduler) commit(ctx context.Context, now time.Time, res pollResult) {
	if res.skipped {
		return
	}
	if res.err != nil {
		// degraded poll counts as zero transfers this cycle; the cursor
		// stays put so nothing is skipped
		logger.Error("poll %s: %v", res.chain, res.err)
		return
	}

	advance := true
	for _, rec := range res.records {
		p := models.Payment{
			TxHash:     rec.TxID,
			Chain:      rec.Chain,
			Token:      rec.Token,
			From:       rec.From,
			To:         rec.To,
			Amount:     rec.Amount,
			ObservedAt: now,
		}

		fresh, err := s.ledger.InsertIfNew(ctx, p)
		if err != nil {
			logger.Error("record payment %s: %v", p.TxHash, err)
			advance = false // the transfer is not persisted yet, re-poll it next cycle
			break
		}
		if !fresh {
			// re-observed transfer, already settled
			continue
		}

		s.state.CountPayment()
		s.notifyAdmins(ctx, fmt.Sprintf(
			"✅ New %s payment: %s %s\nFrom: %s\nTx: %s",
			p.Chain, p.Amount.String(), p.Token, p.From, p.TxHash,
		))
		s.settle(ctx, p, now)
	}

	if advance && res.next != "" {
		if err := s.ledger.SetCursor(ctx, res.chain, res.next); err != nil {
			// replays after a lost cursor write are absorbed by InsertIfNew
			logger.Error("save cursor %s: %v", res.chain, err)
		}
	}
}

func (s *Scheduler) settle(ctx context.Context, p models.Payment, now time.Time) {
	pendings, err := s.subs.Pending(ctx)
	if err != nil {
		logger.Error("settle %s: list pending: %v", p.TxHash, err)
		s.review(ctx, p, "pending list unavailable at settlement time")
		return
	}

	chatID, plan, ok := s.matcher.Resolve(p, pendings)
	if !ok {
		s.review(ctx, p, fmt.Sprintf("no unambiguous pending subscription for amount %s", p.Amount.String()))
		return
	}

	if err := s.subs.Activate(ctx, chatID, plan, now); err != nil {
		if errors.Is(err, subscription.ErrNotPending) {
			s.review(ctx, p, fmt.Sprintf("chat %s was no longer pending at activation", chatID))
			return
		}
		// the payment is already recorded and will not be re-delivered, so a
		// failed activation has to surface through the review queue too
		logger.Error("activate %s for %s: %v", chatID, p.TxHash, err)
		s.review(ctx, p, fmt.Sprintf("activation of chat %s failed: %v", chatID, err))
		return
	}

	until := now.Add(plan.Duration()).Format("2006-01-02")
	if err := s.notifier.Send(ctx, chatID, fmt.Sprintf(
		"🎉 Subscription activated: %s plan, valid until %s.", plan, until,
	)); err != nil {
		logger.Error("notify %s: %v", chatID, err)
	}
	s.notifyAdmins(ctx, fmt.Sprintf("Activated %s (%s) via tx %s", chatID, plan, p.TxHash))
}

func (s *Scheduler) review(ctx context.Context, p models.Payment, reason string) {
	if err := s.ledger.EnqueueReview(ctx, p, reason); err != nil {
		logger.Error("enqueue review %s: %v", p.TxHash, err)
	}
	s.notifyAdmins(ctx, fmt.Sprintf(
		"⚠️ Payment needs manual review\nTx: %s\nChain: %s\nAmount: %s %s\nReason: %s",
		p.TxHash, p.Chain, p.Amount.String(), p.Token, reason,
	))
}

func (s *Scheduler) notifyAdmins(ctx context.Context, text string) {
	for _, admin := range s.cfg.Telegram.AdminChatIDs {
		if err := s.notifier.Send(ctx, admin, text); err != nil {
			logger.Error("notify admin %s: %v", admin, err)
		}
	}
}

func step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, name)
	defer span.Finish()
	return fn(ctx)
}
