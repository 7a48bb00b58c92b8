package psbtutil

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common/keychain"
)

// ListingSighash commits a seller signature to its own input and to the
// output at the same index only.
const ListingSighash = txscript.SigHashSingle | txscript.SigHashAnyOneCanPay

var (
	// ErrUnsupportedListingInput is returned for legacy inputs: their
	// SIGHASH_SINGLE digest covers every output before the signed index, so
	// the signature breaks as soon as the buyer prepends outputs.
	ErrUnsupportedListingInput = errors.New("listing input must be segwit")
	ErrListingMisaligned       = errors.New("listing input and output are not index aligned")
	ErrInvalidListingSighash   = errors.New("seller signature does not use SIGHASH_SINGLE|ANYONECANPAY")
	ErrListingNotSigned        = errors.New("listing is not signed")
	ErrMalformedListing        = errors.New("listing must have exactly one input and one output")
)

// NewListing builds the seller half of a sale: the inscription coin as
// input 0 and the asking price as output 0.
func NewListing(seller Input, payout *wire.TxOut) (*psbt.Packet, error) {
	addrType := seller.AddressType
	if addrType == keychain.AddressTypeUnknown && seller.PrevOut != nil {
		addrType = keychain.AddressTypeFromScript(seller.PrevOut.PkScript)
	}
	if !addrType.IsSegwit() {
		return nil, ErrUnsupportedListingInput
	}
	seller.AddressType = addrType
	seller.Sighash = ListingSighash
	return NewPacket([]Input{seller}, []*wire.TxOut{payout})
}

// CompleteListing assembles a purchase around a signed listing. The seller
// pair lands at index len(prefixInputs), so prefixInputs and prefixOutputs
// must have the same length. The seller input is carried over as is,
// signatures included.
func CompleteListing(
	listing *psbt.Packet,
	prefixInputs []Input, prefixOutputs []*wire.TxOut,
	suffixInputs []Input, suffixOutputs []*wire.TxOut,
) (*psbt.Packet, error) {
	if err := checkListingShape(listing); err != nil {
		return nil, err
	}
	if len(prefixInputs) != len(prefixOutputs) {
		return nil, fmt.Errorf(
			"%w: %d inputs but %d outputs before the seller pair",
			ErrListingMisaligned, len(prefixInputs), len(prefixOutputs),
		)
	}

	listing, err := Copy(listing)
	if err != nil {
		return nil, err
	}
	sellerTxIn := listing.UnsignedTx.TxIn[0]
	sellerTxOut := listing.UnsignedTx.TxOut[0]

	outputs := make([]*wire.TxOut, 0, len(prefixOutputs)+1+len(suffixOutputs))
	outputs = append(outputs, prefixOutputs...)
	outputs = append(outputs, wire.NewTxOut(sellerTxOut.Value, sellerTxOut.PkScript))
	outputs = append(outputs, suffixOutputs...)

	packet, err := NewPacket(prefixInputs, outputs)
	if err != nil {
		return nil, err
	}

	sellerIndex := len(prefixInputs)
	packet.UnsignedTx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: sellerTxIn.PreviousOutPoint,
		Sequence:         sellerTxIn.Sequence,
	})
	packet.Inputs = append(packet.Inputs, listing.Inputs[0])

	if err := AddInputs(packet, suffixInputs); err != nil {
		return nil, err
	}

	if err := VerifyListingAlignment(listing, packet, sellerIndex); err != nil {
		return nil, err
	}
	return packet, nil
}

// FindListingInput returns the index at which purchase spends the listed
// coin.
func FindListingInput(listing, purchase *psbt.Packet) (int, error) {
	if err := checkListingShape(listing); err != nil {
		return -1, err
	}
	outpoint := listing.UnsignedTx.TxIn[0].PreviousOutPoint
	for i, txIn := range purchase.UnsignedTx.TxIn {
		if txIn.PreviousOutPoint == outpoint {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: purchase does not spend %s", ErrListingMisaligned, outpoint)
}

// VerifyListingAlignment checks that purchase spends the listed coin at
// sellerIndex and pays the asking price at the same index.
func VerifyListingAlignment(listing, purchase *psbt.Packet, sellerIndex int) error {
	if err := checkListingShape(listing); err != nil {
		return err
	}
	if sellerIndex < 0 ||
		sellerIndex >= len(purchase.UnsignedTx.TxIn) ||
		sellerIndex >= len(purchase.UnsignedTx.TxOut) {
		return fmt.Errorf("%w: seller index %d out of range", ErrListingMisaligned, sellerIndex)
	}

	listedIn := listing.UnsignedTx.TxIn[0]
	purchaseIn := purchase.UnsignedTx.TxIn[sellerIndex]
	if listedIn.PreviousOutPoint != purchaseIn.PreviousOutPoint ||
		listedIn.Sequence != purchaseIn.Sequence {
		return fmt.Errorf("%w: input %d is not the listed coin", ErrListingMisaligned, sellerIndex)
	}
	if !psbt.TxOutsEqual(listing.UnsignedTx.TxOut[0], purchase.UnsignedTx.TxOut[sellerIndex]) {
		return fmt.Errorf("%w: output %d does not pay the seller", ErrListingMisaligned, sellerIndex)
	}
	return nil
}

// VerifyListingSignature checks that input idx carries a seller signature
// made with ListingSighash and that it is valid for packet.
func VerifyListingSignature(packet *psbt.Packet, idx int) error {
	if idx < 0 || idx >= len(packet.Inputs) {
		return fmt.Errorf("input %d out of range", idx)
	}
	sighash, err := signatureSighash(&packet.Inputs[idx])
	if err != nil {
		return err
	}
	if sighash != ListingSighash {
		return ErrInvalidListingSighash
	}
	return VerifyInput(packet, idx)
}

// signatureSighash reads the sighash type out of the signature carried by
// in, whether still partial or already finalized.
func signatureSighash(in *psbt.PInput) (txscript.SigHashType, error) {
	switch {
	case len(in.TaprootKeySpendSig) == 65:
		return txscript.SigHashType(in.TaprootKeySpendSig[64]), nil
	case len(in.TaprootKeySpendSig) == 64:
		return txscript.SigHashDefault, nil
	case len(in.PartialSigs) > 0:
		sig := in.PartialSigs[0].Signature
		return txscript.SigHashType(sig[len(sig)-1]), nil
	case len(in.FinalScriptWitness) > 0:
		witness, err := ParseWitness(in.FinalScriptWitness)
		if err != nil {
			return 0, err
		}
		if len(witness) == 0 || len(witness[0]) == 0 {
			return 0, ErrListingNotSigned
		}
		sig := witness[0]
		if len(sig) == 64 {
			return txscript.SigHashDefault, nil
		}
		return txscript.SigHashType(sig[len(sig)-1]), nil
	default:
		return 0, ErrListingNotSigned
	}
}

func checkListingShape(listing *psbt.Packet) error {
	if len(listing.UnsignedTx.TxIn) != 1 || len(listing.UnsignedTx.TxOut) != 1 {
		return ErrMalformedListing
	}
	return nil
}
