// Package psbtutil builds, signs and finalizes the partially signed
// transactions exchanged between the launchpad and its users.
package psbtutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common/keychain"
)

const txVersion = 2

var (
	ErrMissingPrevTx     = errors.New("legacy input requires the full previous transaction")
	ErrMissingPubKey     = errors.New("input requires the owner public key")
	ErrPubKeyMismatch    = errors.New("public key does not match the spent output")
	ErrUnsupportedScript = errors.New("unsupported output script")
	ErrInvalidPsbt       = errors.New("invalid psbt")
)

// Input describes a coin to spend together with the metadata its address
// type needs to be signed by a third party.
type Input struct {
	Outpoint    wire.OutPoint
	PrevOut     *wire.TxOut
	PrevTx      *wire.MsgTx
	AddressType keychain.AddressType
	PubKey      *btcec.PublicKey
	Sequence    uint32
	Sighash     txscript.SigHashType
}

// InputFromKey describes a coin owned by key.
func InputFromKey(
	outpoint wire.OutPoint, value int64, key *keychain.KeyRecord,
) Input {
	return Input{
		Outpoint:    outpoint,
		PrevOut:     wire.NewTxOut(value, key.PkScript),
		AddressType: key.Type,
		PubKey:      key.PublicKey,
		Sequence:    wire.MaxTxInSequenceNum,
	}
}

// NewPacket creates a version 2 packet spending inputs into outputs and
// attaches the per-input signing metadata.
func NewPacket(inputs []Input, outputs []*wire.TxOut) (*psbt.Packet, error) {
	outpoints := make([]*wire.OutPoint, 0, len(inputs))
	sequences := make([]uint32, 0, len(inputs))
	for i := range inputs {
		outpoints = append(outpoints, &inputs[i].Outpoint)
		sequences = append(sequences, sequence(inputs[i]))
	}

	packet, err := psbt.New(outpoints, outputs, txVersion, 0, sequences)
	if err != nil {
		return nil, err
	}

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, err
	}
	for i, in := range inputs {
		if err := decorateInput(updater, i, in); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	return packet, nil
}

// AddInputs appends inputs to an existing packet.
func AddInputs(packet *psbt.Packet, inputs []Input) error {
	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		packet.UnsignedTx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: in.Outpoint,
			Sequence:         sequence(in),
		})
		packet.Inputs = append(packet.Inputs, psbt.PInput{})
		idx := len(packet.Inputs) - 1
		if err := decorateInput(updater, idx, in); err != nil {
			return fmt.Errorf("input %d: %w", idx, err)
		}
	}
	return nil
}

func AddOutputs(packet *psbt.Packet, outputs ...*wire.TxOut) {
	for _, out := range outputs {
		packet.UnsignedTx.AddTxOut(out)
		packet.Outputs = append(packet.Outputs, psbt.POutput{})
	}
}

func decorateInput(updater *psbt.Updater, idx int, in Input) error {
	if in.PrevOut == nil {
		return fmt.Errorf("missing previous output")
	}
	addrType := in.AddressType
	if addrType == keychain.AddressTypeUnknown {
		addrType = keychain.AddressTypeFromScript(in.PrevOut.PkScript)
	}

	switch addrType {
	case keychain.AddressTypeP2PKH:
		if in.PrevTx == nil {
			return ErrMissingPrevTx
		}
		if in.PrevTx.TxHash() != in.Outpoint.Hash {
			return fmt.Errorf("previous transaction does not match outpoint %s", in.Outpoint)
		}
		if err := updater.AddInNonWitnessUtxo(in.PrevTx, idx); err != nil {
			return err
		}

	case keychain.AddressTypeP2WPKH:
		if err := updater.AddInWitnessUtxo(in.PrevOut, idx); err != nil {
			return err
		}

	case keychain.AddressTypeP2SHP2WPKH:
		if in.PubKey == nil {
			return ErrMissingPubKey
		}
		redeemScript, err := NestedRedeemScript(in.PubKey)
		if err != nil {
			return err
		}
		p2sh, err := scriptHashScript(redeemScript)
		if err != nil {
			return err
		}
		if !bytes.Equal(p2sh, in.PrevOut.PkScript) {
			return ErrPubKeyMismatch
		}
		if err := updater.AddInWitnessUtxo(in.PrevOut, idx); err != nil {
			return err
		}
		if err := updater.AddInRedeemScript(redeemScript, idx); err != nil {
			return err
		}

	case keychain.AddressTypeP2TR:
		if err := updater.AddInWitnessUtxo(in.PrevOut, idx); err != nil {
			return err
		}
		if in.PubKey != nil {
			outputKey := txscript.ComputeTaprootKeyNoScript(in.PubKey)
			if !bytes.Equal(schnorr.SerializePubKey(outputKey), in.PrevOut.PkScript[2:]) {
				return ErrPubKeyMismatch
			}
			updater.Upsbt.Inputs[idx].TaprootInternalKey = schnorr.SerializePubKey(in.PubKey)
		}

	default:
		return fmt.Errorf("%w: %x", ErrUnsupportedScript, in.PrevOut.PkScript)
	}

	if in.Sighash != txscript.SigHashDefault {
		if err := updater.AddInSighashType(in.Sighash, idx); err != nil {
			return err
		}
	}
	return nil
}

// NestedRedeemScript returns the P2WPKH witness program wrapped by a
// P2SH-P2WPKH output of pubKey.
func NestedRedeemScript(pubKey *btcec.PublicKey) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(pubKey.SerializeCompressed())).
		Script()
}

func scriptHashScript(redeemScript []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(redeemScript)).
		AddOp(txscript.OP_EQUAL).
		Script()
}

func sequence(in Input) uint32 {
	if in.Sequence == 0 {
		return wire.MaxTxInSequenceNum
	}
	return in.Sequence
}

func Decode(b64 string) (*psbt.Packet, error) {
	packet, err := psbt.NewFromRawBytes(strings.NewReader(strings.TrimSpace(b64)), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPsbt, err)
	}
	return packet, nil
}

func Encode(packet *psbt.Packet) (string, error) {
	return packet.B64Encode()
}

// Copy returns a deep copy of packet.
func Copy(packet *psbt.Packet) (*psbt.Packet, error) {
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return nil, err
	}
	return psbt.NewFromRawBytes(&buf, false)
}

// SameUnsignedTx reports whether both packets spend the same inputs into the
// same outputs.
func SameUnsignedTx(a, b *psbt.Packet) bool {
	return a.UnsignedTx.TxHash() == b.UnsignedTx.TxHash()
}

// PrevOutFetcher collects the spent outputs of every input of packet.
func PrevOutFetcher(packet *psbt.Packet) (*txscript.MultiPrevOutFetcher, error) {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range packet.UnsignedTx.TxIn {
		prevOut, err := prevOutput(packet, i)
		if err != nil {
			return nil, err
		}
		fetcher.AddPrevOut(txIn.PreviousOutPoint, prevOut)
	}
	return fetcher, nil
}

func prevOutput(packet *psbt.Packet, idx int) (*wire.TxOut, error) {
	in := packet.Inputs[idx]
	switch {
	case in.WitnessUtxo != nil:
		return in.WitnessUtxo, nil
	case in.NonWitnessUtxo != nil:
		vout := packet.UnsignedTx.TxIn[idx].PreviousOutPoint.Index
		if int(vout) >= len(in.NonWitnessUtxo.TxOut) {
			return nil, fmt.Errorf("input %d: previous output index out of range", idx)
		}
		return in.NonWitnessUtxo.TxOut[vout], nil
	default:
		return nil, fmt.Errorf("input %d: missing utxo information", idx)
	}
}

// InputValue sums the values spent by packet.
func InputValue(packet *psbt.Packet) (int64, error) {
	total := int64(0)
	for i := range packet.Inputs {
		prevOut, err := prevOutput(packet, i)
		if err != nil {
			return 0, err
		}
		total += prevOut.Value
	}
	return total, nil
}
