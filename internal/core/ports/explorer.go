package ports

import (
	"context"
	"errors"

	"github.com/ordlaunch/launchpad/internal/core/domain"
)

// Explorer is the public mempool indexer the server reads chain state from
// and pushes transactions to.
type Explorer interface {
	GetUtxos(ctx context.Context, address string) ([]domain.Utxo, error)
	GetTxHex(ctx context.Context, txid string) (string, error)
	Broadcast(ctx context.Context, txHex string) (string, error)
	GetFeeRates(ctx context.Context) (*domain.FeeRates, error)
	GetTipHeight(ctx context.Context) (int64, error)
}

var (
	// ErrTxRejected is returned when the indexer refuses a transaction.
	ErrTxRejected = errors.New("transaction rejected by the network")
	ErrTxNotFound = errors.New("transaction not found")
)
