package service

import (
	"context"
	"fmt"
	"net/http"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// Watcher polls one chain explorer for token transfers into the configured
// deposit address.
//
// Poll takes the persisted cursor (last seen position on that chain, empty on
// first run) and returns transfers strictly after it, oldest first, together
// with the advanced cursor. Adapters paginate until caught up, so a burst of
// transfers between cycles is never silently dropped.
type Watcher interface {
	Chain() models.Chain
	// Enabled is false when the deposit address or API key is missing;
	// a disabled watcher is skipped, never an error.
	Enabled() bool
	Poll(ctx context.Context, cursor string) ([]models.TransferRecord, string, error)
}

// maxPagesPerPoll bounds one poll so a cold start against a busy address
// cannot pin the cycle; the cursor makes the next poll resume where this one
// stopped.
const maxPagesPerPoll = 10

func New(cfg config.ChainConfig, client *http.Client) (Watcher, error) {
	switch models.Chain(cfg.Name) {
	case models.ChainTRC20:
		return NewTronWatcher(cfg, client), nil
	case models.ChainBEP20:
		return NewBscWatcher(cfg, client), nil
	default:
		return nil, fmt.Errorf("chains: unknown chain %q", cfg.Name)
	}
}
