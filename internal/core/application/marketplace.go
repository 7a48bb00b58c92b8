package application

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// paddingInputs is the number of buyer coins spent ahead of the listed one.
// Together with the merged padding output and the inscription output they
// keep the seller pair at index 2 and the inscription sats at output 1.
const paddingInputs = 2

func (s *service) CreateListing(ctx context.Context, req ListingRequest) (*domain.Listing, error) {
	seller, err := s.parsePayer(req.Seller)
	if err != nil {
		return nil, err
	}
	outpoint, err := domain.ParseOutpoint(req.Outpoint)
	if err != nil {
		return nil, err
	}
	payoutScript, err := s.outputScript(req.PayoutAddress)
	if err != nil {
		return nil, err
	}
	if coinselect.IsDust(req.PriceSats, payoutScript) {
		return nil, fmt.Errorf("%w: price %d is below the dust limit", domain.ErrInvalidInput, req.PriceSats)
	}

	utxos, err := s.explorer.GetUtxos(ctx, seller.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller utxos: %w", err)
	}
	unspent := false
	for _, u := range utxos {
		if u.Outpoint == outpoint {
			unspent = true
			break
		}
	}
	if !unspent {
		return nil, fmt.Errorf("%w: %s", domain.ErrOutputNotOwned, outpoint)
	}

	prevTx, prevOut, err := s.prevOut(ctx, outpoint)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(prevOut.PkScript, seller.pkScript) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOutputNotOwned, outpoint)
	}

	op, err := outpoint.ToWire()
	if err != nil {
		return nil, err
	}
	packet, err := psbtutil.NewListing(psbtutil.Input{
		Outpoint:    op,
		PrevOut:     prevOut,
		PrevTx:      prevTx,
		AddressType: seller.addrType,
		PubKey:      seller.pubKey,
		Sequence:    wire.MaxTxInSequenceNum,
	}, wire.NewTxOut(req.PriceSats, payoutScript))
	if err != nil {
		return nil, err
	}
	b64, err := psbtutil.Encode(packet)
	if err != nil {
		return nil, err
	}

	listing, err := domain.NewListing(
		req.InscriptionId, seller.address, req.PayoutAddress,
		outpoint, prevOut.Value, req.PriceSats,
	)
	if err != nil {
		return nil, err
	}
	listing.Psbt = b64

	if err := s.repoManager.Listings().AddListing(ctx, *listing); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"listing":  listing.Id,
		"outpoint": outpoint,
		"price":    req.PriceSats,
	}).Info("listing created")
	return listing, nil
}

// SubmitListingSignature activates a listing once the seller signed its
// input with SIGHASH_SINGLE|ANYONECANPAY.
func (s *service) SubmitListingSignature(
	ctx context.Context, listingId, signedPsbt string,
) (*domain.Listing, error) {
	listing, err := s.repoManager.Listings().GetListing(ctx, listingId)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingPendingSignature {
		return nil, fmt.Errorf("%w: listing is %s", domain.ErrInvalidTransition, listing.Status)
	}

	issued, err := psbtutil.Decode(listing.Psbt)
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
	if err := psbtutil.VerifyListingSignature(signed, 0); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}

	b64, err := psbtutil.Encode(signed)
	if err != nil {
		return nil, err
	}
	if err := listing.Activate(b64); err != nil {
		return nil, err
	}
	if err := s.repoManager.Listings().UpdateListing(
		ctx, *listing, domain.ListingPendingSignature,
	); err != nil {
		return nil, err
	}

	log.WithField("listing", listing.Id).Info("listing activated")
	return listing, nil
}

func (s *service) CancelListing(
	ctx context.Context, listingId, sellerAddress string,
) (*domain.Listing, error) {
	listing, err := s.repoManager.Listings().GetListing(ctx, listingId)
	if err != nil {
		return nil, err
	}
	if listing.SellerAddress != sellerAddress {
		return nil, domain.ErrNotListingOwner
	}
	from := listing.Status
	if err := listing.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repoManager.Listings().UpdateListing(ctx, *listing, from); err != nil {
		return nil, err
	}

	log.WithField("listing", listing.Id).Info("listing cancelled")
	return listing, nil
}

// PreparePurchase builds the buyer side of a sale around the signed
// listing. Inputs are [pad, pad, seller, funding...] and outputs are
// [merged padding, inscription, seller price, platform fee?, new pads,
// change?], so the seller pair stays index aligned.
func (s *service) PreparePurchase(ctx context.Context, req PurchaseRequest) (result *PsbtResult, err error) {
	listing, err := s.repoManager.Listings().GetListing(ctx, req.ListingId)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingActive {
		return nil, fmt.Errorf("%w: listing is %s", domain.ErrListingNotActive, listing.Status)
	}
	listingPacket, err := psbtutil.Decode(listing.Psbt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode listing psbt: %w", err)
	}

	buyer, err := s.parsePayer(req.Payment)
	if err != nil {
		return nil, err
	}
	receiveScript, err := s.outputScript(req.ReceiveAddress)
	if err != nil {
		return nil, err
	}

	utxos, tip, err := s.spendableUtxos(ctx, buyer.address)
	if err != nil {
		return nil, err
	}
	pads := s.paddingCoins(utxos, tip, buyer.pkScript)
	if len(pads) < paddingInputs {
		return nil, fmt.Errorf(
			"%w: found %d, need %d", domain.ErrInsufficientPadding, len(pads), paddingInputs,
		)
	}
	pads = pads[:paddingInputs]
	padInputs, err := s.payerInputs(ctx, buyer, pads)
	if err != nil {
		return nil, err
	}

	padValue := int64(0)
	exclude := make(map[wire.OutPoint]struct{})
	for _, c := range pads {
		padValue += c.Value
		exclude[c.Outpoint] = struct{}{}
	}
	exclude[listingPacket.UnsignedTx.TxIn[0].PreviousOutPoint] = struct{}{}

	sellerOut := listingPacket.UnsignedTx.TxOut[0]
	prefixOutputs := []*wire.TxOut{
		wire.NewTxOut(padValue, buyer.pkScript),
		wire.NewTxOut(listing.Value, receiveScript),
	}
	suffixOutputs, err := s.purchaseSuffix(listing.PriceSats, buyer.pkScript)
	if err != nil {
		return nil, err
	}

	target := sellerOut.Value
	scripts := [][]byte{sellerOut.PkScript}
	for _, out := range append(append([]*wire.TxOut{}, prefixOutputs...), suffixOutputs...) {
		target += out.Value
		scripts = append(scripts, out.PkScript)
	}

	if listingPacket.Inputs[0].WitnessUtxo == nil {
		return nil, psbtutil.ErrUnsupportedListingInput
	}
	sellerScript := listingPacket.Inputs[0].WitnessUtxo.PkScript
	fixedInputs := append(
		common.InputWeights(buyer.addrType, paddingInputs),
		inputWeight(keychain.AddressTypeFromScript(sellerScript), psbtutil.ListingSighash),
	)
	funds, err := s.fund(ctx, fundingRequest{
		payer:       buyer,
		target:      target,
		fixedInputs: fixedInputs,
		fixedValue:  padValue + listing.Value,
		outputs:     scripts,
		exclude:     exclude,
	}, utxos, tip)
	if err != nil {
		return nil, err
	}

	sg := newSaga("prepare purchase", log.Fields{"listing": listing.Id})
	defer sg.finish(ctx, &err)

	outpoints := append([]domain.Outpoint{}, funds.outpoints...)
	for _, c := range pads {
		outpoints = append(outpoints, domain.OutpointFromWire(c.Outpoint))
	}
	if err := s.lock(ctx, sg, "purchase:"+listing.Id, outpoints); err != nil {
		return nil, err
	}

	packet, err := psbtutil.CompleteListing(
		listingPacket, padInputs, prefixOutputs,
		funds.inputs, append(suffixOutputs, funds.changeOutput(buyer)...),
	)
	if err != nil {
		return nil, err
	}
	b64, err := psbtutil.Encode(packet)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"listing": listing.Id,
		"buyer":   buyer.address,
		"fee":     funds.fee,
	}).Info("purchase prepared")

	return &PsbtResult{
		Psbt:         b64,
		Fee:          funds.fee,
		InputsToSign: inputsOwnedBy(packet, buyer.pkScript),
	}, nil
}

// purchaseSuffix returns the outputs following the seller pair: the
// marketplace fee, if any, and fresh padding coins for the next purchase.
func (s *service) purchaseSuffix(price int64, buyerScript []byte) ([]*wire.TxOut, error) {
	outputs := make([]*wire.TxOut, 0, 1+paddingInputs)
	if fee := s.marketplaceFee(price); fee > 0 {
		script, err := s.outputScript(s.cfg.PlatformFeeAddress)
		if err != nil {
			return nil, err
		}
		if !coinselect.IsDust(fee, script) {
			outputs = append(outputs, wire.NewTxOut(fee, script))
		}
	}
	for i := 0; i < paddingInputs; i++ {
		outputs = append(outputs, wire.NewTxOut(s.cfg.PaddingValue, buyerScript))
	}
	return outputs, nil
}

func (s *service) marketplaceFee(price int64) int64 {
	return price * s.cfg.MarketplaceFeeBps / basisPoints
}

// paddingCoins returns the buyer coins fit to pad a purchase, smallest
// first. Coins at or above MinUtxoValue are left to funding.
func (s *service) paddingCoins(utxos []domain.Utxo, tip int64, pkScript []byte) []coinselect.Coin {
	coins := make([]coinselect.Coin, 0)
	for _, u := range utxos {
		if u.Value < s.cfg.PaddingValue || u.Value >= s.cfg.MinUtxoValue {
			continue
		}
		op, err := u.ToWire()
		if err != nil {
			continue
		}
		coins = append(coins, coinselect.Coin{
			Outpoint:      op,
			Value:         u.Value,
			Confirmations: u.Confirmations(tip),
			PkScript:      pkScript,
		})
	}
	sort.SliceStable(coins, func(i, j int) bool {
		return coins[i].Value < coins[j].Value
	})
	return coins
}

// CompletePurchase checks the buyer signed transaction still honors the
// listing and broadcasts it.
func (s *service) CompletePurchase(
	ctx context.Context, listingId, signedPsbt string,
) (*domain.Listing, error) {
	listing, err := s.repoManager.Listings().GetListing(ctx, listingId)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingActive {
		return nil, fmt.Errorf("%w: listing is %s", domain.ErrListingNotActive, listing.Status)
	}
	listingPacket, err := psbtutil.Decode(listing.Psbt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode listing psbt: %w", err)
	}
	purchase, err := psbtutil.Decode(signedPsbt)
	if err != nil {
		return nil, err
	}

	idx, err := psbtutil.FindListingInput(listingPacket, purchase)
	if err != nil {
		return nil, err
	}
	if idx < 1 {
		return nil, fmt.Errorf("%w: no inscription output before the seller pair", psbtutil.ErrListingMisaligned)
	}
	if err := psbtutil.VerifyListingAlignment(listingPacket, purchase, idx); err != nil {
		return nil, err
	}
	if err := psbtutil.VerifyListingSignature(purchase, idx); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}
	if err := s.checkMarketplaceFee(purchase, listing.PriceSats); err != nil {
		return nil, err
	}

	buyer, err := s.scriptAddress(purchase.UnsignedTx.TxOut[idx-1].PkScript)
	if err != nil {
		return nil, err
	}

	txid, _, err := s.broadcast(ctx, purchase, domain.TxKindPurchase, listing.Id)
	if err != nil {
		return nil, err
	}
	s.unlockInputs(ctx, "", purchase)

	if err := listing.Sell(buyer, txid); err != nil {
		return nil, err
	}
	if err := s.repoManager.Listings().UpdateListing(ctx, *listing, domain.ListingActive); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"listing": listing.Id, "txid": txid,
		}).Error("purchase broadcasted but listing not updated")
		return nil, err
	}

	log.WithFields(log.Fields{"listing": listing.Id, "txid": txid}).Info("listing sold")
	return listing, nil
}

func (s *service) checkMarketplaceFee(purchase *psbt.Packet, price int64) error {
	fee := s.marketplaceFee(price)
	if fee <= 0 {
		return nil
	}
	script, err := s.outputScript(s.cfg.PlatformFeeAddress)
	if err != nil {
		return err
	}
	if coinselect.IsDust(fee, script) {
		return nil
	}
	for _, out := range purchase.UnsignedTx.TxOut {
		if bytes.Equal(out.PkScript, script) && out.Value >= fee {
			return nil
		}
	}
	return fmt.Errorf("%w: expected %d sats", domain.ErrMissingPlatformFee, fee)
}

func (s *service) scriptAddress(pkScript []byte) (string, error) {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, s.params())
	if err != nil {
		return "", err
	}
	if len(addrs) != 1 {
		return "", fmt.Errorf("%w: non standard output script", domain.ErrUnsupportedAddress)
	}
	return addrs[0].EncodeAddress(), nil
}

// PreparePadding builds a transaction creating Count padding coins for the
// payer, so they can buy listed inscriptions. The returned Id must come
// back with the signed transaction.
func (s *service) PreparePadding(ctx context.Context, req PaddingRequest) (result *PsbtResult, err error) {
	count := req.Count
	if count == 0 {
		count = defaultPaddingCount
	}
	if count < 0 || count > maxPaddingCount {
		return nil, fmt.Errorf("%w: padding count must be between 1 and %d", domain.ErrInvalidInput, maxPaddingCount)
	}

	payer, err := s.parsePayer(req.Payment)
	if err != nil {
		return nil, err
	}
	utxos, tip, err := s.spendableUtxos(ctx, payer.address)
	if err != nil {
		return nil, err
	}

	outputs := make([]*wire.TxOut, 0, count)
	scripts := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		outputs = append(outputs, wire.NewTxOut(s.cfg.PaddingValue, payer.pkScript))
		scripts = append(scripts, payer.pkScript)
	}
	funds, err := s.fund(ctx, fundingRequest{
		payer:   payer,
		target:  int64(count) * s.cfg.PaddingValue,
		outputs: scripts,
	}, utxos, tip)
	if err != nil {
		return nil, err
	}

	id := "padding:" + uuid.New().String()
	sg := newSaga("prepare padding", log.Fields{"address": payer.address, "padding": id})
	defer sg.finish(ctx, &err)

	if err := s.lock(ctx, sg, id, funds.outpoints); err != nil {
		return nil, err
	}
	packet, err := psbtutil.NewPacket(funds.inputs, append(outputs, funds.changeOutput(payer)...))
	if err != nil {
		return nil, err
	}
	b64, err := psbtutil.Encode(packet)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.PendingPsbts().Add(ctx, id, b64, s.cfg.UtxoLockTTL); err != nil {
		return nil, fmt.Errorf("failed to store padding psbt: %w", err)
	}

	return &PsbtResult{
		Id:           id,
		Psbt:         b64,
		Fee:          funds.fee,
		InputsToSign: inputsOwnedBy(packet, payer.pkScript),
	}, nil
}

// SubmitPadding broadcasts the signed version of a transaction issued by
// PreparePadding.
func (s *service) SubmitPadding(ctx context.Context, paddingId, signedPsbt string) (string, error) {
	pending := s.repoManager.PendingPsbts()
	issuedPsbt, err := pending.Get(ctx, paddingId)
	if err != nil {
		return "", err
	}
	issued, err := psbtutil.Decode(issuedPsbt)
	if err != nil {
		return "", fmt.Errorf("failed to decode stored psbt: %w", err)
	}
	packet, err := psbtutil.Decode(signedPsbt)
	if err != nil {
		return "", err
	}
	if !psbtutil.SameUnsignedTx(issued, packet) {
		return "", domain.ErrPsbtMismatch
	}

	txid, _, err := s.broadcast(ctx, packet, domain.TxKindPadding, paddingId)
	if err != nil {
		return "", err
	}
	if err := pending.Delete(ctx, paddingId); err != nil {
		log.WithError(err).WithField("padding", paddingId).Warn("failed to drop padding psbt")
	}
	s.unlockInputs(ctx, paddingId, packet)
	return txid, nil
}
