package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ordlaunch/launchpad/internal/core/domain"
)

// UtxoLocker keeps coins handed out in a pending transaction away from
// concurrent coin selection until the lock expires.
type UtxoLocker interface {
	// Lock reserves all outpoints for owner or none of them, failing with
	// domain.ErrUtxoLocked if any is held by someone else.
	Lock(ctx context.Context, owner string, ttl time.Duration, outpoints ...domain.Outpoint) error
	Unlock(ctx context.Context, outpoints ...domain.Outpoint) error
	Locked(ctx context.Context, outpoints ...domain.Outpoint) (map[domain.Outpoint]string, error)
	Close()
}

var ErrPendingPsbtNotFound = errors.New("psbt request not found or expired")

// PendingPsbts holds psbts handed out for signing that have no record of
// their own, so a submission can be matched against what was issued.
// Entries expire after their ttl.
type PendingPsbts interface {
	Add(ctx context.Context, id, psbt string, ttl time.Duration) error
	Get(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	Close()
}

type TxJournal interface {
	Add(ctx context.Context, record domain.BroadcastRecord) error
	Get(ctx context.Context, txid string) (*domain.BroadcastRecord, error)
	ListByRef(ctx context.Context, refId string) ([]domain.BroadcastRecord, error)
	Close()
}
