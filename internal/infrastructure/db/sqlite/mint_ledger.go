package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db/sqlite/sqlc/queries"
)

type mintLedger struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewMintLedger(config ...interface{}) (domain.MintLedger, error) {
	db, err := dbFromConfig("mint ledger", config...)
	if err != nil {
		return nil, err
	}

	return &mintLedger{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (l *mintLedger) Close() {
	_ = l.db.Close()
}

// Claim takes one unit of the phase allocation and one of the wallet quota
// and stores the pending record. Every step is a conditional update, so a
// failing guard rolls back whatever the previous steps moved.
func (l *mintLedger) Claim(
	ctx context.Context, record domain.MintRecord, walletLimit int64,
) (int64, error) {
	var minted int64
	txBody := func(querierWithTx *queries.Queries) error {
		var err error
		minted, err = querierWithTx.ClaimPhaseSlot(ctx, record.PhaseId)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to claim phase slot: %w", err)
			}
			if _, err := querierWithTx.SelectMintPhase(ctx, record.PhaseId); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.ErrMintPhaseNotFound
				}
				return err
			}
			return domain.ErrMintPhaseExhausted
		}

		if _, err := querierWithTx.ClaimWalletQuota(ctx, queries.ClaimWalletQuotaParams{
			PhaseID:       record.PhaseId,
			WalletAddress: record.WalletAddress,
			WalletLimit:   walletLimit,
		}); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrWalletLimitReached
			}
			return fmt.Errorf("failed to claim wallet quota: %w", err)
		}

		return querierWithTx.InsertMintRecord(ctx, queries.InsertMintRecordParams{
			ID:            record.Id,
			PhaseID:       record.PhaseId,
			WalletAddress: record.WalletAddress,
			Status:        string(domain.MintPending),
			Psbt:          record.Psbt,
			Txid:          record.Txid,
			Error:         record.Error,
			CreatedAt:     record.CreatedAt,
			UpdatedAt:     record.UpdatedAt,
		})
	}

	if err := execTx(ctx, l.db, txBody); err != nil {
		return -1, err
	}
	return minted, nil
}

func (l *mintLedger) Release(ctx context.Context, id, reason string) (bool, error) {
	return l.release(ctx, id, func(querierWithTx *queries.Queries) (string, string, error) {
		row, err := querierWithTx.CancelMintRecord(ctx, queries.CancelMintRecordParams{
			Error:     reason,
			UpdatedAt: time.Now().Unix(),
			ID:        id,
		})
		return row.PhaseID, row.WalletAddress, err
	})
}

func (l *mintLedger) ReleaseRejected(ctx context.Context, id, reason string) (bool, error) {
	return l.release(ctx, id, func(querierWithTx *queries.Queries) (string, string, error) {
		row, err := querierWithTx.CancelBroadcastingMintRecord(
			ctx, queries.CancelBroadcastingMintRecordParams{
				Error:     reason,
				UpdatedAt: time.Now().Unix(),
				ID:        id,
			},
		)
		return row.PhaseID, row.WalletAddress, err
	})
}

// release runs cancel and, if it matched the record, gives back the phase
// slot and the wallet quota in the same transaction.
func (l *mintLedger) release(
	ctx context.Context, id string,
	cancel func(*queries.Queries) (phaseId, walletAddress string, err error),
) (bool, error) {
	released := false
	txBody := func(querierWithTx *queries.Queries) error {
		phaseId, walletAddress, err := cancel(querierWithTx)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to cancel mint record: %w", err)
			}
			if _, err := querierWithTx.SelectMintRecord(ctx, id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.ErrMintRecordNotFound
				}
				return err
			}
			// not in a releasable status
			return nil
		}

		count, err := querierWithTx.ReleasePhaseSlot(ctx, phaseId)
		if err != nil {
			return fmt.Errorf("failed to release phase slot: %w", err)
		}
		if count != 1 {
			return fmt.Errorf("phase %s has no slot to release", phaseId)
		}

		count, err = querierWithTx.ReleaseWalletQuota(ctx, queries.ReleaseWalletQuotaParams{
			PhaseID:       phaseId,
			WalletAddress: walletAddress,
		})
		if err != nil {
			return fmt.Errorf("failed to release wallet quota: %w", err)
		}
		if count != 1 {
			return fmt.Errorf(
				"wallet %s has no quota to release in phase %s", walletAddress, phaseId,
			)
		}

		released = true
		return nil
	}

	if err := execTx(ctx, l.db, txBody); err != nil {
		return false, err
	}
	return released, nil
}

func (l *mintLedger) MarkAwaitingSignature(ctx context.Context, id, psbt string) error {
	count, err := l.querier.UpdateMintRecordAwaitingSignature(
		ctx, queries.UpdateMintRecordAwaitingSignatureParams{
			Psbt:      psbt,
			UpdatedAt: time.Now().Unix(),
			ID:        id,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update mint record: %w", err)
	}
	return l.checkTransition(ctx, id, count, domain.MintAwaitingSignature)
}

func (l *mintLedger) MarkBroadcasting(ctx context.Context, id string) error {
	count, err := l.querier.UpdateMintRecordBroadcasting(
		ctx, queries.UpdateMintRecordBroadcastingParams{
			UpdatedAt: time.Now().Unix(),
			ID:        id,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update mint record: %w", err)
	}
	return l.checkTransition(ctx, id, count, domain.MintBroadcasting)
}

func (l *mintLedger) RevertBroadcasting(ctx context.Context, id string) error {
	count, err := l.querier.RevertMintRecordBroadcasting(
		ctx, queries.RevertMintRecordBroadcastingParams{
			UpdatedAt: time.Now().Unix(),
			ID:        id,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update mint record: %w", err)
	}
	return l.checkTransition(ctx, id, count, domain.MintAwaitingSignature)
}

func (l *mintLedger) MarkConfirmed(ctx context.Context, id, txid string) error {
	count, err := l.querier.UpdateMintRecordConfirmed(ctx, queries.UpdateMintRecordConfirmedParams{
		Txid:      txid,
		UpdatedAt: time.Now().Unix(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("failed to update mint record: %w", err)
	}
	return l.checkTransition(ctx, id, count, domain.MintConfirmed)
}

func (l *mintLedger) checkTransition(
	ctx context.Context, id string, count int64, next domain.MintStatus,
) error {
	if count > 0 {
		return nil
	}
	record, err := l.GetMintRecord(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, record.Status, next)
}

func (l *mintLedger) GetMintRecord(ctx context.Context, id string) (*domain.MintRecord, error) {
	row, err := l.querier.SelectMintRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMintRecordNotFound
		}
		return nil, err
	}
	record := rowToMintRecord(row)
	return &record, nil
}

func (l *mintLedger) ListStaleMintRecords(
	ctx context.Context, updatedBefore int64,
) ([]domain.MintRecord, error) {
	rows, err := l.querier.SelectStaleMintRecords(ctx, updatedBefore)
	if err != nil {
		return nil, err
	}
	records := make([]domain.MintRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToMintRecord(row))
	}
	return records, nil
}

func (l *mintLedger) GetWalletMints(
	ctx context.Context, phaseId, walletAddress string,
) (int64, error) {
	minted, err := l.querier.SelectWalletMints(ctx, queries.SelectWalletMintsParams{
		PhaseID:       phaseId,
		WalletAddress: walletAddress,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return minted, nil
}

func rowToMintRecord(row queries.MintRecord) domain.MintRecord {
	return domain.MintRecord{
		Id:            row.ID,
		PhaseId:       row.PhaseID,
		WalletAddress: row.WalletAddress,
		Status:        domain.MintStatus(row.Status),
		Psbt:          row.Psbt,
		Txid:          row.Txid,
		Error:         row.Error,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
