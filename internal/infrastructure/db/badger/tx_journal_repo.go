package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const txJournalStoreDir = "journal"

type txJournalRepository struct {
	store *badgerhold.Store
}

func NewTxJournalRepository(config ...interface{}) (ports.TxJournal, error) {
	dir, logger, err := parseConfig(txJournalStoreDir, config...)
	if err != nil {
		return nil, err
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open tx journal store: %s", err)
	}

	return &txJournalRepository{store}, nil
}

func (r *txJournalRepository) Add(ctx context.Context, record domain.BroadcastRecord) error {
	if len(record.Txid) <= 0 {
		return fmt.Errorf("missing txid")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	upsertFn := func() error {
		return r.store.Upsert(record.Txid, record)
	}
	err := upsertFn()
	if errors.Is(err, badger.ErrConflict) {
		attempts := 1
		for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
			time.Sleep(100 * time.Millisecond)
			err = upsertFn()
			attempts++
		}
	}
	return err
}

func (r *txJournalRepository) Get(ctx context.Context, txid string) (*domain.BroadcastRecord, error) {
	var record domain.BroadcastRecord
	if err := r.store.Get(txid, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrBroadcastNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *txJournalRepository) ListByRef(
	ctx context.Context, refId string,
) ([]domain.BroadcastRecord, error) {
	var records []domain.BroadcastRecord
	if err := r.store.Find(&records, badgerhold.Where("RefId").Eq(refId)); err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt < records[j].CreatedAt
	})
	return records, nil
}

func (r *txJournalRepository) Close() {
	// nolint:all
	r.store.Close()
}
