package domain

import (
	"time"

	"github.com/google/uuid"
)

type PayoutKind string

const (
	PayoutReward PayoutKind = "reward"
	PayoutTest   PayoutKind = "test"
)

type PayoutStatus string

const (
	PayoutSent   PayoutStatus = "sent"
	PayoutDryRun PayoutStatus = "dry_run"
	PayoutFailed PayoutStatus = "failed"
)

// Payout is a single-party transfer signed by a server held key.
type Payout struct {
	Id        string
	Kind      PayoutKind
	Address   string
	Amount    int64
	Txid      string
	Status    PayoutStatus
	Error     string
	CreatedAt int64
}

func NewPayout(kind PayoutKind, address string, amount int64) Payout {
	return Payout{
		Id:        uuid.New().String(),
		Kind:      kind,
		Address:   address,
		Amount:    amount,
		CreatedAt: time.Now().Unix(),
	}
}
