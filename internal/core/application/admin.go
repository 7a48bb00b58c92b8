package application

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type adminService struct {
	funder
	repoManager ports.RepoManager
	wallet      ports.WalletService
}

func NewAdminService(
	cfg Config,
	repoManager ports.RepoManager,
	explorer ports.Explorer,
	wallet ports.WalletService,
) (AdminService, error) {
	if cfg.Network.Params == nil {
		return nil, fmt.Errorf("missing network params")
	}
	if wallet == nil {
		return nil, fmt.Errorf("missing platform wallet")
	}
	return &adminService{
		funder: funder{
			cfg:       cfg,
			explorer:  explorer,
			utxoLocks: repoManager.UtxoLocks(),
			txJournal: repoManager.TxJournal(),
		},
		repoManager: repoManager,
		wallet:      wallet,
	}, nil
}

func (a *adminService) CreateMintPhase(
	ctx context.Context, req MintPhaseRequest,
) (*domain.MintPhase, error) {
	if len(req.PayoutAddress) > 0 {
		if _, err := a.outputScript(req.PayoutAddress); err != nil {
			return nil, err
		}
	}
	phase, err := domain.NewMintPhase(
		req.CollectionId, req.Name, req.PayoutAddress,
		req.PriceSats, req.Allocation, req.PerWalletLimit, req.StartsAt, req.EndsAt,
	)
	if err != nil {
		return nil, err
	}
	if err := a.repoManager.MintPhases().AddMintPhase(ctx, *phase); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"phase":      phase.Id,
		"collection": phase.CollectionId,
		"allocation": phase.Allocation,
	}).Info("mint phase created")
	return phase, nil
}

func (a *adminService) ListMintPhases(
	ctx context.Context, collectionId string,
) ([]domain.MintPhase, error) {
	return a.repoManager.MintPhases().ListMintPhases(ctx, collectionId)
}

func (a *adminService) ListPayouts(
	ctx context.Context, kind domain.PayoutKind,
) ([]domain.Payout, error) {
	return a.repoManager.Payouts().ListPayouts(ctx, kind)
}

// GetBroadcast returns the journaled transaction with the given txid, for
// rebroadcasting or reconciliation.
func (a *adminService) GetBroadcast(
	ctx context.Context, txid string,
) (*domain.BroadcastRecord, error) {
	return a.repoManager.TxJournal().Get(ctx, txid)
}

// ListBroadcasts returns every transaction journaled for a mint record,
// listing, payout or padding request, oldest first.
func (a *adminService) ListBroadcasts(
	ctx context.Context, refId string,
) ([]domain.BroadcastRecord, error) {
	if len(refId) <= 0 {
		return nil, fmt.Errorf("%w: missing ref id", domain.ErrInvalidInput)
	}
	return a.repoManager.TxJournal().ListByRef(ctx, refId)
}

func (a *adminService) PayReward(
	ctx context.Context, address string, amount int64,
) (*PayoutResult, error) {
	return a.pay(ctx, domain.PayoutReward, address, amount, false)
}

// TestPayout exercises the whole payout path. With dryRun the signed
// transaction is returned without being broadcasted.
func (a *adminService) TestPayout(
	ctx context.Context, address string, amount int64, dryRun bool,
) (*PayoutResult, error) {
	return a.pay(ctx, domain.PayoutTest, address, amount, dryRun)
}

func (a *adminService) WalletInfo(ctx context.Context) (*WalletInfo, error) {
	utxos, err := a.explorer.GetUtxos(ctx, a.wallet.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet utxos: %w", err)
	}
	info := &WalletInfo{
		Address:     a.wallet.Address(),
		AddressType: a.wallet.AddressType(),
		Network:     a.cfg.Network.Name,
		UtxoCount:   len(utxos),
	}
	for _, u := range utxos {
		info.Balance += u.Value
		if u.Confirmed {
			info.Confirmed += u.Value
		}
	}
	return info, nil
}

func (a *adminService) pay(
	ctx context.Context, kind domain.PayoutKind, address string, amount int64, dryRun bool,
) (result *PayoutResult, err error) {
	script, err := a.outputScript(address)
	if err != nil {
		return nil, err
	}
	if amount <= 0 || coinselect.IsDust(amount, script) {
		return nil, fmt.Errorf("%w: invalid payout amount %d", domain.ErrInvalidInput, amount)
	}

	key := a.wallet.Key()
	platform := &payer{
		address:  a.wallet.Address(),
		pkScript: key.PkScript,
		addrType: key.Type,
		pubKey:   key.PublicKey,
	}
	payout := domain.NewPayout(kind, address, amount)

	utxos, tip, err := a.spendableUtxos(ctx, platform.address)
	if err != nil {
		return nil, err
	}
	funds, err := a.fund(ctx, fundingRequest{
		payer:   platform,
		target:  amount,
		outputs: [][]byte{script},
	}, utxos, tip)
	if err != nil {
		return nil, err
	}

	sg := newSaga("payout", log.Fields{"payout": payout.Id, "kind": kind})
	defer sg.finish(ctx, &err)

	if err := a.lock(ctx, sg, "payout:"+payout.Id, funds.outpoints); err != nil {
		return nil, err
	}
	packet, err := psbtutil.NewPacket(
		funds.inputs, append([]*wire.TxOut{wire.NewTxOut(amount, script)}, funds.changeOutput(platform)...),
	)
	if err != nil {
		return nil, err
	}
	if _, err := a.wallet.SignPsbt(ctx, packet); err != nil {
		return nil, fmt.Errorf("failed to sign payout: %w", err)
	}

	if dryRun {
		txHex, err := a.dryRun(packet)
		if err != nil {
			return nil, err
		}
		a.unlockInputs(ctx, "", packet)
		payout.Status = domain.PayoutDryRun
		if err := a.repoManager.Payouts().AddPayout(ctx, payout); err != nil {
			return nil, err
		}
		return &PayoutResult{Payout: payout, TxHex: txHex}, nil
	}

	txid, txHex, err := a.broadcast(ctx, packet, domain.TxKindPayout, payout.Id)
	if err != nil {
		payout.Status = domain.PayoutFailed
		payout.Error = err.Error()
		if rerr := a.repoManager.Payouts().AddPayout(ctx, payout); rerr != nil {
			log.WithError(rerr).WithField("payout", payout.Id).Warn("failed to store failed payout")
		}
		return nil, err
	}
	a.unlockInputs(ctx, "", packet)

	payout.Status = domain.PayoutSent
	payout.Txid = txid
	if err := a.repoManager.Payouts().AddPayout(ctx, payout); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"payout": payout.Id, "txid": txid,
		}).Error("payout broadcasted but not stored")
		return nil, err
	}

	log.WithFields(log.Fields{
		"payout": payout.Id, "txid": txid, "amount": amount,
	}).Info("payout sent")
	return &PayoutResult{Payout: payout, TxHex: txHex}, nil
}

func (a *adminService) dryRun(packet *psbt.Packet) (string, error) {
	fetcher, err := psbtutil.PrevOutFetcher(packet)
	if err != nil {
		return "", err
	}
	tx, txHex, err := psbtutil.Extract(packet)
	if err != nil {
		return "", err
	}
	if err := psbtutil.VerifyTx(tx, fetcher); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}
	return txHex, nil
}
