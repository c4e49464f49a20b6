package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	subscription "signal_bot/internal/modules/subscription/service"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const planCallbackPrefix = "plan::"

// Feed long-polls bot updates and maps them onto the subscription state
// machine: /start registers the chat, a plan pick marks it pending. That is
// the whole conversation surface.
type Feed struct {
	cfg  *config.Config
	bot  *tgbot.BotAPI
	subs *subscription.Service
}

func NewFeed(cfg *config.Config, bot *tgbot.BotAPI, subs *subscription.Service) *Feed {
	return &Feed{cfg: cfg, bot: bot, subs: subs}
}

func (f *Feed) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := f.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				f.bot.StopReceivingUpdates()
				return
			case upd := <-updates:
				if upd.CallbackQuery != nil {
					f.handleCallback(ctx, upd.CallbackQuery)
				}
				if upd.Message != nil && upd.Message.Chat != nil && upd.Message.IsCommand() {
					f.handleCommand(ctx, upd.Message)
				}
			}
		}
	}()
}

func (f *Feed) handleCommand(ctx context.Context, msg *tgbot.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch msg.Command() {
	case "start":
		if err := f.subs.Ensure(ctx, chatID); err != nil {
			logger.Error("feed: ensure %s: %v", chatID, err)
			return
		}
		f.replyPlans(msg.Chat.ID)
	case "monthly":
		f.selectPlan(ctx, msg.Chat.ID, models.PlanMonthly)
	case "yearly":
		f.selectPlan(ctx, msg.Chat.ID, models.PlanYearly)
	case "status":
		f.replyStatus(ctx, msg.Chat.ID)
	}
}

func (f *Feed) handleCallback(ctx context.Context, cb *tgbot.CallbackQuery) {
	// stop the client spinner
	_, _ = f.bot.Request(tgbot.NewCallback(cb.ID, ""))

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if !strings.HasPrefix(cb.Data, planCallbackPrefix) {
		return
	}
	plan := models.Plan(strings.TrimPrefix(cb.Data, planCallbackPrefix))
	f.selectPlan(ctx, cb.Message.Chat.ID, plan)
}

func (f *Feed) selectPlan(ctx context.Context, chat int64, plan models.Plan) {
	if !plan.Valid() {
		return
	}
	chatID := strconv.FormatInt(chat, 10)
	if err := f.subs.MarkPending(ctx, chatID, plan); err != nil {
		logger.Error("feed: mark pending %s: %v", chatID, err)
		return
	}

	price := f.cfg.PriceMonthly
	if plan == models.PlanYearly {
		price = f.cfg.PriceYearly
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan %s selected. Send %s USDT to one of the deposit addresses:\n", plan, price.String())
	for _, c := range f.cfg.Chains {
		if c.Deposit == "" {
			continue
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", c.Name, c.Token, c.Deposit)
	}
	b.WriteString("Activation is automatic once the payment is confirmed on-chain.")

	_, _ = f.bot.Send(tgbot.NewMessage(chat, b.String()))
}

func (f *Feed) replyPlans(chat int64) {
	kb := tgbot.NewInlineKeyboardMarkup(
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData(
				fmt.Sprintf("Monthly — %s USDT", f.cfg.PriceMonthly.String()),
				planCallbackPrefix+string(models.PlanMonthly)),
			tgbot.NewInlineKeyboardButtonData(
				fmt.Sprintf("Yearly — %s USDT", f.cfg.PriceYearly.String()),
				planCallbackPrefix+string(models.PlanYearly)),
		),
	)
	msg := tgbot.NewMessage(chat, "Pick a subscription plan:")
	msg.ReplyMarkup = kb
	_, _ = f.bot.Send(msg)
}

func (f *Feed) replyStatus(ctx context.Context, chat int64) {
	chatID := strconv.FormatInt(chat, 10)
	sub, err := f.subs.Get(ctx, chatID)
	if err != nil {
		logger.Error("feed: status %s: %v", chatID, err)
		return
	}
	text := "No subscription yet. Use /start to pick a plan."
	if sub != nil {
		switch sub.Status {
		case models.StatusPending:
			text = fmt.Sprintf("Plan %s selected, awaiting payment.", sub.Plan)
		case models.StatusActive:
			text = fmt.Sprintf("Active (%s) until %s.", sub.Plan, sub.ExpiresAt.Format("2006-01-02 15:04 MST"))
		case models.StatusExpired:
			text = "Subscription expired. Use /start to renew."
		}
	}
	_, _ = f.bot.Send(tgbot.NewMessage(chat, text))
}
