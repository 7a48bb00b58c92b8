package psbtutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common"
)

var ErrNotFinalized = errors.New("psbt is not fully signed")

// Finalize turns the partial signatures of every input into final script
// data.
func Finalize(packet *psbt.Packet) error {
	for i := range packet.Inputs {
		if err := FinalizeInput(packet, i); err != nil {
			return fmt.Errorf("failed to finalize input %d: %w", i, err)
		}
	}
	return nil
}

// FinalizeInput finalizes input idx. A P2WPKH input the library refuses to
// finalize, typically because the signer did not record the sighash type it
// used, gets its [signature, pubkey] witness written directly.
func FinalizeInput(packet *psbt.Packet, idx int) error {
	ok, err := psbt.MaybeFinalize(packet, idx)
	if err == nil && ok {
		return nil
	}

	in := packet.Inputs[idx]
	if in.WitnessUtxo == nil ||
		!txscript.IsPayToWitnessPubKeyHash(in.WitnessUtxo.PkScript) ||
		len(in.PartialSigs) != 1 {
		if err == nil {
			err = psbt.ErrNotFinalizable
		}
		return err
	}

	witness, werr := SerializeWitness(wire.TxWitness{
		in.PartialSigs[0].Signature, in.PartialSigs[0].PubKey,
	})
	if werr != nil {
		return werr
	}

	finalized := psbt.NewPsbtInput(nil, in.WitnessUtxo)
	finalized.FinalScriptWitness = witness
	packet.Inputs[idx] = *finalized
	return nil
}

// Extract finalizes any input still pending and returns the network
// serialized transaction and its hex encoding.
func Extract(packet *psbt.Packet) (*wire.MsgTx, string, error) {
	if !packet.IsComplete() {
		if err := Finalize(packet); err != nil {
			return nil, "", err
		}
	}
	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, "", err
	}
	txHex, err := common.EncodeTx(tx)
	if err != nil {
		return nil, "", err
	}
	return tx, txHex, nil
}

// VerifyInput runs the script engine over input idx of a finalized copy of
// packet. The packet itself is left untouched.
func VerifyInput(packet *psbt.Packet, idx int) error {
	if idx < 0 || idx >= len(packet.Inputs) {
		return fmt.Errorf("input %d out of range", idx)
	}

	fetcher, err := PrevOutFetcher(packet)
	if err != nil {
		return err
	}

	finalized, err := Copy(packet)
	if err != nil {
		return err
	}
	if err := FinalizeInput(finalized, idx); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFinalized, err)
	}

	tx := finalized.UnsignedTx.Copy()
	in := finalized.Inputs[idx]
	tx.TxIn[idx].SignatureScript = in.FinalScriptSig
	if len(in.FinalScriptWitness) > 0 {
		witness, err := ParseWitness(in.FinalScriptWitness)
		if err != nil {
			return err
		}
		tx.TxIn[idx].Witness = witness
	}

	prevOut := fetcher.FetchPrevOutput(tx.TxIn[idx].PreviousOutPoint)
	engine, err := txscript.NewEngine(
		prevOut.PkScript, tx, idx, txscript.StandardVerifyFlags, nil,
		txscript.NewTxSigHashes(tx, fetcher), prevOut.Value, fetcher,
	)
	if err != nil {
		return err
	}
	return engine.Execute()
}

// VerifyTx checks every input of a fully signed transaction against the
// outputs it spends.
func VerifyTx(tx *wire.MsgTx, fetcher txscript.PrevOutputFetcher) error {
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, txIn := range tx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		if prevOut == nil {
			return fmt.Errorf("input %d: unknown previous output", i)
		}
		engine, err := txscript.NewEngine(
			prevOut.PkScript, tx, i, txscript.StandardVerifyFlags, nil,
			sigHashes, prevOut.Value, fetcher,
		)
		if err != nil {
			return err
		}
		if err := engine.Execute(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

func SerializeWitness(witness wire.TxWitness) ([]byte, error) {
	var buf bytes.Buffer
	if err := psbt.WriteTxWitness(&buf, witness); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ParseWitness(serialized []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(serialized)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	// every item takes at least its one byte length prefix
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("witness declares %d items in %d bytes", count, r.Len())
	}
	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, txscript.MaxScriptSize, "witness")
		if err != nil {
			return nil, err
		}
		witness = append(witness, item)
	}
	return witness, nil
}
