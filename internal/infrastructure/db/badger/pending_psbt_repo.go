package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const (
	pendingPsbtStoreDir = "pending"
	pendingPsbtPrefix   = "pending-psbt:"
)

type pendingPsbtRepository struct {
	store *badgerhold.Store
}

// NewPendingPsbtRepository keeps issued psbts as raw badger entries whose
// TTL matches the reservation of their inputs.
func NewPendingPsbtRepository(config ...interface{}) (ports.PendingPsbts, error) {
	dir, logger, err := parseConfig(pendingPsbtStoreDir, config...)
	if err != nil {
		return nil, err
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open pending psbt store: %s", err)
	}

	return &pendingPsbtRepository{store}, nil
}

func (r *pendingPsbtRepository) Add(
	ctx context.Context, id, psbt string, ttl time.Duration,
) error {
	if len(id) <= 0 {
		return fmt.Errorf("missing psbt id")
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid psbt ttl %s", ttl)
	}
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(pendingPsbtKey(id), []byte(psbt)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (r *pendingPsbtRepository) Get(ctx context.Context, id string) (string, error) {
	var psbt []byte
	err := r.store.Badger().View(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingPsbtKey(id))
		if err != nil {
			return err
		}
		psbt, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", ports.ErrPendingPsbtNotFound
		}
		return "", err
	}
	return string(psbt), nil
}

func (r *pendingPsbtRepository) Delete(ctx context.Context, id string) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingPsbtKey(id))
	})
}

func (r *pendingPsbtRepository) Close() {
	// nolint:all
	r.store.Close()
}

func pendingPsbtKey(id string) []byte {
	return []byte(pendingPsbtPrefix + id)
}
