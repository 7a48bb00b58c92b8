package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Mint claims one slot of the phase for the receive address and returns the
// payment transaction the user must sign. Anything reserved along the way
// is given back if a later step fails.
func (s *service) Mint(ctx context.Context, req MintRequest) (result *MintResult, err error) {
	phase, err := s.repoManager.MintPhases().GetMintPhase(ctx, req.PhaseId)
	if err != nil {
		return nil, err
	}
	if !phase.IsOpen(time.Now().Unix()) {
		return nil, domain.ErrMintPhaseNotOpen
	}
	if _, err := s.outputScript(req.ReceiveAddress); err != nil {
		return nil, err
	}
	payer, err := s.parsePayer(req.Payment)
	if err != nil {
		return nil, err
	}

	outputs, err := s.mintOutputs(phase)
	if err != nil {
		return nil, err
	}

	record, err := domain.NewMintRecord(phase.Id, req.ReceiveAddress)
	if err != nil {
		return nil, err
	}

	sg := newSaga("mint", log.Fields{"phase": phase.Id, "record": record.Id})
	defer sg.finish(ctx, &err)

	minted, err := s.repoManager.MintLedger().Claim(ctx, *record, phase.PerWalletLimit)
	if err != nil {
		return nil, err
	}
	sg.onFailure("release allocation", func(ctx context.Context) error {
		_, err := s.releaseMint(ctx, *record, "mint preparation failed")
		return err
	})

	utxos, tip, err := s.spendableUtxos(ctx, payer.address)
	if err != nil {
		return nil, err
	}
	target := int64(0)
	scripts := make([][]byte, 0, len(outputs))
	for _, out := range outputs {
		target += out.Value
		scripts = append(scripts, out.PkScript)
	}
	funds, err := s.fund(ctx, fundingRequest{
		payer:   payer,
		target:  target,
		outputs: scripts,
	}, utxos, tip)
	if err != nil {
		return nil, err
	}
	if err := s.lock(ctx, sg, record.Id, funds.outpoints); err != nil {
		return nil, err
	}

	packet, err := psbtutil.NewPacket(funds.inputs, append(outputs, funds.changeOutput(payer)...))
	if err != nil {
		return nil, fmt.Errorf("failed to build mint psbt: %w", err)
	}
	b64, err := psbtutil.Encode(packet)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.MintLedger().MarkAwaitingSignature(ctx, record.Id, b64); err != nil {
		return nil, err
	}
	if err := record.AwaitSignature(b64); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"phase":  phase.Id,
		"record": record.Id,
		"minted": minted,
		"fee":    funds.fee,
	}).Info("mint slot claimed")

	return &MintResult{
		Record:       record,
		Psbt:         b64,
		Fee:          funds.fee,
		InputsToSign: inputsOwnedBy(packet, payer.pkScript),
	}, nil
}

// mintOutputs lists what a mint pays: the phase price to the creator and
// the flat platform fee.
func (s *service) mintOutputs(phase *domain.MintPhase) ([]*wire.TxOut, error) {
	outputs := make([]*wire.TxOut, 0, 2)
	if phase.PriceSats > 0 {
		script, err := s.outputScript(phase.PayoutAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid phase payout address: %w", err)
		}
		if coinselect.IsDust(phase.PriceSats, script) {
			return nil, fmt.Errorf("%w: phase price %d is below the dust limit", domain.ErrInvalidInput, phase.PriceSats)
		}
		outputs = append(outputs, wire.NewTxOut(phase.PriceSats, script))
	}
	if s.cfg.MintPlatformFee > 0 {
		script, err := s.outputScript(s.cfg.PlatformFeeAddress)
		if err != nil {
			return nil, err
		}
		if !coinselect.IsDust(s.cfg.MintPlatformFee, script) {
			outputs = append(outputs, wire.NewTxOut(s.cfg.MintPlatformFee, script))
		}
	}
	if len(outputs) <= 0 {
		return nil, domain.ErrNothingToPay
	}
	return outputs, nil
}

// ConfirmMint broadcasts the signed mint transaction. The record is moved
// to broadcasting first so that a concurrent cancel or expiry cannot give
// the slot back while the transaction is in flight. The slot is released
// only if the network rejects the transaction; any other failure puts the
// record back to awaiting_signature for a new attempt.
func (s *service) ConfirmMint(
	ctx context.Context, recordId, signedPsbt string,
) (*domain.MintRecord, error) {
	ledger := s.repoManager.MintLedger()
	record, err := ledger.GetMintRecord(ctx, recordId)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.MintAwaitingSignature {
		return nil, fmt.Errorf("%w: mint is %s", domain.ErrInvalidTransition, record.Status)
	}

	issued, err := psbtutil.Decode(record.Psbt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored psbt: %w", err)
	}
	signed, err := psbtutil.Decode(signedPsbt)
	if err != nil {
		return nil, err
	}
	if !psbtutil.SameUnsignedTx(issued, signed) {
		return nil, domain.ErrPsbtMismatch
	}

	if err := ledger.MarkBroadcasting(ctx, record.Id); err != nil {
		return nil, err
	}

	sg := newSaga("confirm mint", log.Fields{"record": record.Id})
	sg.onFailure("settle record", func(ctx context.Context) error {
		if errors.Is(err, ports.ErrTxRejected) {
			_, err := s.releaseRejectedMint(ctx, *record, "transaction rejected")
			return err
		}
		return ledger.RevertBroadcasting(ctx, record.Id)
	})

	txid, _, err := s.broadcast(ctx, signed, domain.TxKindMint, record.Id)
	if err != nil {
		_ = sg.rollback(ctx, err)
		return nil, err
	}
	sg.commit()

	if err := ledger.MarkConfirmed(ctx, record.Id, txid); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"record": record.Id, "txid": txid,
		}).Error("mint broadcasted but record not confirmed")
		return nil, err
	}
	s.unlockInputs(ctx, "", signed)

	return ledger.GetMintRecord(ctx, record.Id)
}

func (s *service) CancelMint(
	ctx context.Context, recordId, reason string,
) (*domain.MintRecord, error) {
	record, err := s.repoManager.MintLedger().GetMintRecord(ctx, recordId)
	if err != nil {
		return nil, err
	}
	if len(reason) <= 0 {
		reason = "cancelled by user"
	}
	released, err := s.releaseMint(ctx, *record, reason)
	if err != nil {
		return nil, err
	}
	if !released {
		return nil, fmt.Errorf("%w: mint is %s", domain.ErrInvalidTransition, record.Status)
	}
	return s.repoManager.MintLedger().GetMintRecord(ctx, record.Id)
}

// releaseMint is the single way a claimed slot is given back outside of a
// broadcast, shared by failed preparation, cancellation and expiry. It
// reports false when the record is broadcasting or already final.
func (s *service) releaseMint(
	ctx context.Context, record domain.MintRecord, reason string,
) (bool, error) {
	return s.giveBackMint(ctx, s.repoManager.MintLedger().Release, record, reason)
}

// releaseRejectedMint gives back the slot of a record whose transaction
// the network refused.
func (s *service) releaseRejectedMint(
	ctx context.Context, record domain.MintRecord, reason string,
) (bool, error) {
	return s.giveBackMint(ctx, s.repoManager.MintLedger().ReleaseRejected, record, reason)
}

func (s *service) giveBackMint(
	ctx context.Context,
	release func(ctx context.Context, id, reason string) (bool, error),
	record domain.MintRecord, reason string,
) (bool, error) {
	released, err := release(ctx, record.Id, reason)
	if err != nil {
		return false, err
	}
	if !released {
		return false, nil
	}

	if len(record.Psbt) > 0 {
		packet, err := psbtutil.Decode(record.Psbt)
		if err != nil {
			log.WithError(err).WithField("record", record.Id).Warn("failed to decode mint psbt")
		} else {
			s.unlockInputs(ctx, record.Id, packet)
		}
	}

	log.WithFields(log.Fields{"record": record.Id, "reason": reason}).Info("mint slot released")
	return true, nil
}
