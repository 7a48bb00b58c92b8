package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	badgerdb "github.com/ordlaunch/launchpad/internal/infrastructure/db/badger"
	sqlitedb "github.com/ordlaunch/launchpad/internal/infrastructure/db/sqlite"
)

var (
	mintPhaseStoreTypes = map[string]func(...interface{}) (domain.MintPhaseRepository, error){
		"sqlite": sqlitedb.NewMintPhaseRepository,
	}
	mintLedgerStoreTypes = map[string]func(...interface{}) (domain.MintLedger, error){
		"sqlite": sqlitedb.NewMintLedger,
	}
	listingStoreTypes = map[string]func(...interface{}) (domain.ListingRepository, error){
		"sqlite": sqlitedb.NewListingRepository,
	}
	payoutStoreTypes = map[string]func(...interface{}) (domain.PayoutRepository, error){
		"sqlite": sqlitedb.NewPayoutRepository,
	}
	utxoLockStoreTypes = map[string]func(...interface{}) (ports.UtxoLocker, error){
		"badger": badgerdb.NewUtxoLockRepository,
	}
	txJournalStoreTypes = map[string]func(...interface{}) (ports.TxJournal, error){
		"badger": badgerdb.NewTxJournalRepository,
	}
	pendingPsbtStoreTypes = map[string]func(...interface{}) (ports.PendingPsbts, error){
		"badger": badgerdb.NewPendingPsbtRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

// ServiceConfig selects the backends. DataStoreConfig holds the sqlite
// data directory, KVStoreConfig the badger base directory (empty for in
// memory) and an optional badger.Logger.
type ServiceConfig struct {
	DataStoreType string
	KVStoreType   string

	DataStoreConfig []interface{}
	KVStoreConfig   []interface{}
}

type service struct {
	db         *sql.DB
	mintPhases domain.MintPhaseRepository
	mintLedger domain.MintLedger
	listings   domain.ListingRepository
	payouts    domain.PayoutRepository
	utxoLocks  ports.UtxoLocker
	txJournal  ports.TxJournal
	pending    ports.PendingPsbts
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	mintPhaseFactory, ok := mintPhaseStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	mintLedgerFactory := mintLedgerStoreTypes[config.DataStoreType]
	listingFactory := listingStoreTypes[config.DataStoreType]
	payoutFactory := payoutStoreTypes[config.DataStoreType]

	utxoLockFactory, ok := utxoLockStoreTypes[config.KVStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid kv store type: %s", config.KVStoreType)
	}
	txJournalFactory := txJournalStoreTypes[config.KVStoreType]
	pendingFactory := pendingPsbtStoreTypes[config.KVStoreType]

	db, err := openSqlite(config.DataStoreConfig)
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	mintPhases, err := mintPhaseFactory(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create mint phase store: %w", err)
	}
	mintLedger, err := mintLedgerFactory(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create mint ledger: %w", err)
	}
	listings, err := listingFactory(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing store: %w", err)
	}
	payouts, err := payoutFactory(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout store: %w", err)
	}

	utxoLocks, err := utxoLockFactory(config.KVStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create utxo lock store: %w", err)
	}
	txJournal, err := txJournalFactory(config.KVStoreConfig...)
	if err != nil {
		utxoLocks.Close()
		return nil, fmt.Errorf("failed to create tx journal: %w", err)
	}
	pending, err := pendingFactory(config.KVStoreConfig...)
	if err != nil {
		utxoLocks.Close()
		txJournal.Close()
		return nil, fmt.Errorf("failed to create pending psbt store: %w", err)
	}

	return &service{
		db:         db,
		mintPhases: mintPhases,
		mintLedger: mintLedger,
		listings:   listings,
		payouts:    payouts,
		utxoLocks:  utxoLocks,
		txJournal:  txJournal,
		pending:    pending,
	}, nil
}

func (s *service) MintPhases() domain.MintPhaseRepository {
	return s.mintPhases
}

func (s *service) MintLedger() domain.MintLedger {
	return s.mintLedger
}

func (s *service) Listings() domain.ListingRepository {
	return s.listings
}

func (s *service) Payouts() domain.PayoutRepository {
	return s.payouts
}

func (s *service) UtxoLocks() ports.UtxoLocker {
	return s.utxoLocks
}

func (s *service) TxJournal() ports.TxJournal {
	return s.txJournal
}

func (s *service) PendingPsbts() ports.PendingPsbts {
	return s.pending
}

// Close shuts down every store. The sqlite repositories share one handle,
// closing it once is enough.
func (s *service) Close() {
	_ = s.db.Close()
	s.utxoLocks.Close()
	s.txJournal.Close()
	s.pending.Close()
}

func openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, errors.New("invalid data store config")
	}
	dataDir, ok := config[0].(string)
	if !ok {
		return nil, errors.New("invalid data store config")
	}

	db, err := sqlitedb.OpenDb(filepath.Join(dataDir, sqliteDbFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	return db, nil
}
