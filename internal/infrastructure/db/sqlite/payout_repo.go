package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db/sqlite/sqlc/queries"
)

type payoutRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewPayoutRepository(config ...interface{}) (domain.PayoutRepository, error) {
	db, err := dbFromConfig("payout", config...)
	if err != nil {
		return nil, err
	}

	return &payoutRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *payoutRepository) Close() {
	_ = r.db.Close()
}

func (r *payoutRepository) AddPayout(ctx context.Context, payout domain.Payout) error {
	if err := r.querier.InsertPayout(ctx, queries.InsertPayoutParams{
		ID:        payout.Id,
		Kind:      string(payout.Kind),
		Address:   payout.Address,
		Amount:    payout.Amount,
		Txid:      payout.Txid,
		Status:    string(payout.Status),
		Error:     payout.Error,
		CreatedAt: payout.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}
	return nil
}

func (r *payoutRepository) ListPayouts(
	ctx context.Context, kind domain.PayoutKind,
) ([]domain.Payout, error) {
	var (
		rows []queries.Payout
		err  error
	)
	if len(kind) > 0 {
		rows, err = r.querier.SelectPayoutsByKind(ctx, string(kind))
	} else {
		rows, err = r.querier.SelectPayouts(ctx)
	}
	if err != nil {
		return nil, err
	}

	payouts := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		payouts = append(payouts, domain.Payout{
			Id:        row.ID,
			Kind:      domain.PayoutKind(row.Kind),
			Address:   row.Address,
			Amount:    row.Amount,
			Txid:      row.Txid,
			Status:    domain.PayoutStatus(row.Status),
			Error:     row.Error,
			CreatedAt: row.CreatedAt,
		})
	}
	return payouts, nil
}
