package application

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type payer struct {
	address  string
	pkScript []byte
	addrType keychain.AddressType
	pubKey   *btcec.PublicKey
}

type fundingRequest struct {
	payer *payer
	// target is the sum of every non change output.
	target      int64
	fixedInputs []common.InputWeight
	fixedValue  int64
	outputs     [][]byte
	exclude     map[wire.OutPoint]struct{}
}

type funding struct {
	inputs    []psbtutil.Input
	fee       int64
	change    int64
	outpoints []domain.Outpoint
}

// changeOutput returns the change output paying back to p, if any.
func (f *funding) changeOutput(p *payer) []*wire.TxOut {
	if f.change <= 0 {
		return nil
	}
	return []*wire.TxOut{wire.NewTxOut(f.change, p.pkScript)}
}

// funder selects and reserves the coins paying for a transaction. It is
// shared by the user facing and the admin services.
type funder struct {
	cfg       Config
	explorer  ports.Explorer
	utxoLocks ports.UtxoLocker
	txJournal ports.TxJournal
}

func (f *funder) params() *chaincfg.Params {
	return f.cfg.Network.Params
}

func (f *funder) parsePayer(p Payer) (*payer, error) {
	_, pkScript, addrType, err := keychain.DecodeAddress(p.Address, f.params())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAddress, err)
	}
	if addrType == keychain.AddressTypeUnknown {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAddress, p.Address)
	}

	var pubKey *btcec.PublicKey
	if len(p.PubKey) > 0 {
		buf, err := hex.DecodeString(p.PubKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid public key format", domain.ErrInvalidInput)
		}
		if pubKey, err = btcec.ParsePubKey(buf); err != nil {
			return nil, fmt.Errorf("%w: invalid public key: %s", domain.ErrInvalidInput, err)
		}
	}
	if addrType == keychain.AddressTypeP2SHP2WPKH && pubKey == nil {
		return nil, fmt.Errorf(
			"%w: nested segwit address %s requires a public key",
			domain.ErrUnsupportedAddress, p.Address,
		)
	}

	return &payer{
		address:  p.Address,
		pkScript: pkScript,
		addrType: addrType,
		pubKey:   pubKey,
	}, nil
}

func (f *funder) outputScript(address string) ([]byte, error) {
	_, pkScript, _, err := keychain.DecodeAddress(address, f.params())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAddress, err)
	}
	return pkScript, nil
}

func (f *funder) feeRate(ctx context.Context) (chainfee.SatPerKVByte, error) {
	rates, err := f.explorer.GetFeeRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get fee rates: %w", err)
	}
	rate := rates.For(f.cfg.FeePriority)
	if rate < rates.Minimum {
		rate = rates.Minimum
	}
	if rate < 1 {
		rate = 1
	}
	return common.FeeRateFromSatPerVByte(rate), nil
}

// spendableUtxos returns the coins of address that no pending transaction
// holds, together with the current tip height.
func (f *funder) spendableUtxos(ctx context.Context, address string) ([]domain.Utxo, int64, error) {
	utxos, err := f.explorer.GetUtxos(ctx, address)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get utxos: %w", err)
	}
	tip, err := f.explorer.GetTipHeight(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get tip height: %w", err)
	}
	if len(utxos) <= 0 {
		return nil, tip, nil
	}

	outpoints := make([]domain.Outpoint, 0, len(utxos))
	for _, u := range utxos {
		outpoints = append(outpoints, u.Outpoint)
	}
	locked, err := f.utxoLocks.Locked(ctx, outpoints...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get utxo locks: %w", err)
	}

	spendable := make([]domain.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := locked[u.Outpoint]; ok {
			continue
		}
		spendable = append(spendable, u)
	}
	return spendable, tip, nil
}

func (f *funder) fund(
	ctx context.Context, req fundingRequest, utxos []domain.Utxo, tip int64,
) (*funding, error) {
	feeRate, err := f.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	coins := make([]coinselect.Coin, 0, len(utxos))
	for _, u := range utxos {
		op, err := u.ToWire()
		if err != nil {
			return nil, err
		}
		coins = append(coins, coinselect.Coin{
			Outpoint:      op,
			Value:         u.Value,
			Confirmations: u.Confirmations(tip),
			PkScript:      req.payer.pkScript,
		})
	}

	selection, err := coinselect.Select(coins, coinselect.Request{
		Target:          req.target,
		FixedInputs:     req.fixedInputs,
		FixedInputValue: req.fixedValue,
		FeeRate:         feeRate,
		InputType:       req.payer.addrType,
		Outputs:         req.outputs,
		ChangeScript:    req.payer.pkScript,
		MinCoinValue:    f.cfg.MinUtxoValue,
		Exclude:         req.exclude,
	})
	if err != nil {
		return nil, err
	}

	inputs, err := f.payerInputs(ctx, req.payer, selection.Coins)
	if err != nil {
		return nil, err
	}

	outpoints := make([]domain.Outpoint, 0, len(selection.Coins))
	for _, c := range selection.Coins {
		outpoints = append(outpoints, domain.OutpointFromWire(c.Outpoint))
	}

	log.WithFields(log.Fields{
		"address": req.payer.address,
		"inputs":  len(inputs),
		"fee":     selection.Fee,
		"change":  selection.Change,
	}).Debug("funded transaction")

	return &funding{
		inputs:    inputs,
		fee:       selection.Fee,
		change:    selection.Change,
		outpoints: outpoints,
	}, nil
}

// payerInputs describes coins owned by p. Legacy inputs need the whole
// previous transaction, which is fetched concurrently.
func (f *funder) payerInputs(
	ctx context.Context, p *payer, coins []coinselect.Coin,
) ([]psbtutil.Input, error) {
	inputs := make([]psbtutil.Input, len(coins))
	for i, c := range coins {
		inputs[i] = psbtutil.Input{
			Outpoint:    c.Outpoint,
			PrevOut:     wire.NewTxOut(c.Value, p.pkScript),
			AddressType: p.addrType,
			PubKey:      p.pubKey,
			Sequence:    wire.MaxTxInSequenceNum,
		}
	}
	if p.addrType != keychain.AddressTypeP2PKH {
		return inputs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		i := i
		g.Go(func() error {
			prevTx, err := f.getTx(gctx, inputs[i].Outpoint.Hash.String())
			if err != nil {
				return err
			}
			inputs[i].PrevTx = prevTx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (f *funder) getTx(ctx context.Context, txid string) (*wire.MsgTx, error) {
	txHex, err := f.explorer.GetTxHex(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("failed to get tx %s: %w", txid, err)
	}
	return common.DecodeTx(txHex)
}

// prevOut resolves the output spent by outpoint through the explorer.
func (f *funder) prevOut(ctx context.Context, outpoint domain.Outpoint) (*wire.MsgTx, *wire.TxOut, error) {
	tx, err := f.getTx(ctx, outpoint.Txid)
	if err != nil {
		return nil, nil, err
	}
	if int(outpoint.VOut) >= len(tx.TxOut) {
		return nil, nil, fmt.Errorf("output %s does not exist", outpoint)
	}
	return tx, tx.TxOut[outpoint.VOut], nil
}

func (f *funder) lock(
	ctx context.Context, sg *saga, owner string, outpoints []domain.Outpoint,
) error {
	if len(outpoints) <= 0 {
		return nil
	}
	if err := f.utxoLocks.Lock(ctx, owner, f.cfg.UtxoLockTTL, outpoints...); err != nil {
		return err
	}
	sg.onFailure("unlock utxos", func(ctx context.Context) error {
		return f.utxoLocks.Unlock(ctx, outpoints...)
	})
	return nil
}

// unlockInputs drops the locks on the inputs of packet. With a non empty
// owner only the locks it holds are dropped.
func (f *funder) unlockInputs(ctx context.Context, owner string, packet *psbt.Packet) {
	outpoints := make([]domain.Outpoint, 0, len(packet.UnsignedTx.TxIn))
	for _, in := range packet.UnsignedTx.TxIn {
		outpoints = append(outpoints, domain.OutpointFromWire(in.PreviousOutPoint))
	}

	if len(owner) > 0 {
		locked, err := f.utxoLocks.Locked(ctx, outpoints...)
		if err != nil {
			log.WithError(err).Warn("failed to get utxo locks")
			return
		}
		outpoints = outpoints[:0]
		for outpoint, holder := range locked {
			if holder == owner {
				outpoints = append(outpoints, outpoint)
			}
		}
	}

	if len(outpoints) <= 0 {
		return
	}
	if err := f.utxoLocks.Unlock(ctx, outpoints...); err != nil {
		log.WithError(err).Warn("failed to unlock utxos")
	}
}

// broadcast finalizes packet, checks every input against the script engine
// and pushes the transaction, journaling it on success.
func (f *funder) broadcast(
	ctx context.Context, packet *psbt.Packet, kind domain.TxKind, refId string,
) (string, string, error) {
	fetcher, err := psbtutil.PrevOutFetcher(packet)
	if err != nil {
		return "", "", err
	}
	tx, txHex, err := psbtutil.Extract(packet)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}
	if err := psbtutil.VerifyTx(tx, fetcher); err != nil {
		return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}

	txid, err := f.explorer.Broadcast(ctx, txHex)
	if err != nil {
		return "", "", err
	}
	if expected := tx.TxHash().String(); txid != expected {
		log.Warnf("explorer returned txid %s for tx %s", txid, expected)
		txid = expected
	}

	if err := f.txJournal.Add(ctx, domain.BroadcastRecord{
		Txid:      txid,
		Hex:       txHex,
		Kind:      kind,
		RefId:     refId,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		log.WithError(err).WithField("txid", txid).Warn("failed to journal broadcast")
	}

	log.WithFields(log.Fields{"txid": txid, "kind": kind, "ref": refId}).Info("transaction broadcasted")
	return txid, txHex, nil
}

// inputsOwnedBy lists the inputs of packet spending pkScript.
func inputsOwnedBy(packet *psbt.Packet, pkScript []byte) []int {
	fetcher, err := psbtutil.PrevOutFetcher(packet)
	if err != nil {
		return nil
	}
	indexes := make([]int, 0)
	for i, in := range packet.UnsignedTx.TxIn {
		prevOut := fetcher.FetchPrevOutput(in.PreviousOutPoint)
		if prevOut != nil && string(prevOut.PkScript) == string(pkScript) {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

func inputWeight(addrType keychain.AddressType, sighash txscript.SigHashType) common.InputWeight {
	return common.InputWeight{Type: addrType, Sighash: sighash}
}
