package models

import "time"

// Status — subscription lifecycle state.
type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription — one row per subscriber. ChatID is an opaque identity,
// created on first contact and never deleted.
//
// pending rows always carry nil timestamps; active rows always satisfy
// ExpiresAt > StartedAt.
type Subscription struct {
	ChatID    string
	Plan      Plan
	Status    Status
	StartedAt *time.Time
	ExpiresAt *time.Time
}
