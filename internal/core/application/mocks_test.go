package application_test

import (
	"context"

	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type mockedExplorer struct {
	mock.Mock
}

func (m *mockedExplorer) GetUtxos(ctx context.Context, address string) ([]domain.Utxo, error) {
	args := m.Called(ctx, address)

	var res []domain.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]domain.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockedExplorer) GetTxHex(ctx context.Context, txid string) (string, error) {
	args := m.Called(ctx, txid)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

// Broadcast answers with the hash of the pushed transaction unless an
// error is configured.
func (m *mockedExplorer) Broadcast(ctx context.Context, txHex string) (string, error) {
	args := m.Called(ctx, txHex)
	if err := args.Error(0); err != nil {
		return "", err
	}
	tx, err := common.DecodeTx(txHex)
	if err != nil {
		return "", err
	}
	return tx.TxHash().String(), nil
}

func (m *mockedExplorer) GetFeeRates(ctx context.Context) (*domain.FeeRates, error) {
	args := m.Called(ctx)

	var res *domain.FeeRates
	if a := args.Get(0); a != nil {
		res = a.(*domain.FeeRates)
	}
	return res, args.Error(1)
}

func (m *mockedExplorer) GetTipHeight(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	var res int64
	if a := args.Get(0); a != nil {
		res = a.(int64)
	}
	return res, args.Error(1)
}
