package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db/sqlite/sqlc/queries"
)

type mintPhaseRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewMintPhaseRepository(config ...interface{}) (domain.MintPhaseRepository, error) {
	db, err := dbFromConfig("mint phase", config...)
	if err != nil {
		return nil, err
	}

	return &mintPhaseRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *mintPhaseRepository) Close() {
	_ = r.db.Close()
}

func (r *mintPhaseRepository) AddMintPhase(ctx context.Context, phase domain.MintPhase) error {
	if err := r.querier.InsertMintPhase(ctx, queries.InsertMintPhaseParams{
		ID:              phase.Id,
		CollectionID:    phase.CollectionId,
		Name:            phase.Name,
		PriceSats:       phase.PriceSats,
		PayoutAddress:   phase.PayoutAddress,
		PhaseAllocation: phase.Allocation,
		PerWalletLimit:  phase.PerWalletLimit,
		StartsAt:        phase.StartsAt,
		EndsAt:          phase.EndsAt,
		CreatedAt:       phase.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to insert mint phase: %w", err)
	}
	return nil
}

func (r *mintPhaseRepository) GetMintPhase(ctx context.Context, id string) (*domain.MintPhase, error) {
	row, err := r.querier.SelectMintPhase(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMintPhaseNotFound
		}
		return nil, err
	}
	phase := rowToMintPhase(row)
	return &phase, nil
}

func (r *mintPhaseRepository) ListMintPhases(
	ctx context.Context, collectionId string,
) ([]domain.MintPhase, error) {
	var (
		rows []queries.MintPhase
		err  error
	)
	if len(collectionId) > 0 {
		rows, err = r.querier.SelectMintPhasesByCollection(ctx, collectionId)
	} else {
		rows, err = r.querier.SelectMintPhases(ctx)
	}
	if err != nil {
		return nil, err
	}

	phases := make([]domain.MintPhase, 0, len(rows))
	for _, row := range rows {
		phases = append(phases, rowToMintPhase(row))
	}
	return phases, nil
}

func rowToMintPhase(row queries.MintPhase) domain.MintPhase {
	return domain.MintPhase{
		Id:             row.ID,
		CollectionId:   row.CollectionID,
		Name:           row.Name,
		PriceSats:      row.PriceSats,
		PayoutAddress:  row.PayoutAddress,
		Allocation:     row.PhaseAllocation,
		Minted:         row.PhaseMinted,
		PerWalletLimit: row.PerWalletLimit,
		StartsAt:       row.StartsAt,
		EndsAt:         row.EndsAt,
		CreatedAt:      row.CreatedAt,
	}
}
