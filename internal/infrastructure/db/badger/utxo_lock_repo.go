package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const (
	utxoLockStoreDir = "locks"
	utxoLockPrefix   = "utxo-lock:"
)

type utxoLockRepository struct {
	store *badgerhold.Store
}

// NewUtxoLockRepository stores locks as raw badger entries whose TTL is the
// lock expiry, so an abandoned lock disappears without any sweeper.
func NewUtxoLockRepository(config ...interface{}) (ports.UtxoLocker, error) {
	dir, logger, err := parseConfig(utxoLockStoreDir, config...)
	if err != nil {
		return nil, err
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open utxo lock store: %s", err)
	}

	return &utxoLockRepository{store}, nil
}

func (r *utxoLockRepository) Lock(
	ctx context.Context, owner string, ttl time.Duration, outpoints ...domain.Outpoint,
) error {
	if len(owner) <= 0 {
		return fmt.Errorf("missing lock owner")
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid lock ttl %s", ttl)
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		err = r.store.Badger().Update(func(txn *badger.Txn) error {
			for _, outpoint := range outpoints {
				key := lockKey(outpoint)
				holder, err := getHolder(txn, key)
				if err != nil {
					return err
				}
				if len(holder) > 0 && holder != owner {
					return fmt.Errorf("%w: %s", domain.ErrUtxoLocked, outpoint)
				}
				entry := badger.NewEntry(key, []byte(owner)).WithTTL(ttl)
				if err := txn.SetEntry(entry); err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return err
}

func (r *utxoLockRepository) Unlock(ctx context.Context, outpoints ...domain.Outpoint) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		for _, outpoint := range outpoints {
			if err := txn.Delete(lockKey(outpoint)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *utxoLockRepository) Locked(
	ctx context.Context, outpoints ...domain.Outpoint,
) (map[domain.Outpoint]string, error) {
	locked := make(map[domain.Outpoint]string)
	err := r.store.Badger().View(func(txn *badger.Txn) error {
		for _, outpoint := range outpoints {
			holder, err := getHolder(txn, lockKey(outpoint))
			if err != nil {
				return err
			}
			if len(holder) > 0 {
				locked[outpoint] = holder
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

func (r *utxoLockRepository) Close() {
	// nolint:all
	r.store.Close()
}

func lockKey(outpoint domain.Outpoint) []byte {
	return []byte(utxoLockPrefix + outpoint.String())
}

func getHolder(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	holder, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(holder), nil
}
