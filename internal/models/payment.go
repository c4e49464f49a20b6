package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chain — token-transfer network we watch deposits on.
type Chain string

const (
	ChainTRC20 Chain = "TRC20"
	ChainBEP20 Chain = "BEP20"
)

// TransferRecord — one normalized token transfer as reported by a chain
// explorer, before it hits the ledger.
type TransferRecord struct {
	Chain     Chain
	TxID      string
	Token     string
	From      string
	To        string
	Amount    decimal.Decimal
	BlockTime time.Time
}

// Payment — one row per distinct transaction hash. TxHash uniqueness is the
// ledger's core guarantee: a transfer produces at most one Payment row no
// matter how often it is re-observed.
type Payment struct {
	TxHash     string
	Chain      Chain
	Token      string
	From       string
	To         string
	Amount     decimal.Decimal
	ObservedAt time.Time
}
