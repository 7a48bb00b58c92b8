package psbtutil

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/ordlaunch/launchpad/common/keychain"
)

// Sign signs every unfinalized input of packet spending an output owned by
// one of keys, using the sighash type recorded on the input. It returns the
// indexes of the signed inputs.
func Sign(packet *psbt.Packet, keys ...*keychain.KeyRecord) ([]int, error) {
	fetcher, err := PrevOutFetcher(packet)
	if err != nil {
		return nil, err
	}
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, err
	}

	signed := make([]int, 0)
	for i, txIn := range packet.UnsignedTx.TxIn {
		in := &packet.Inputs[i]
		if len(in.FinalScriptSig) > 0 || len(in.FinalScriptWitness) > 0 {
			continue
		}

		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		key := findKey(keys, prevOut.PkScript)
		if key == nil {
			continue
		}

		switch key.Type {
		case keychain.AddressTypeP2PKH:
			if in.NonWitnessUtxo == nil {
				return nil, fmt.Errorf("input %d: %w", i, ErrMissingPrevTx)
			}
			sig, err := txscript.RawTxInSignature(
				packet.UnsignedTx, i, prevOut.PkScript, legacySighash(in), key.PrivateKey,
			)
			if err != nil {
				return nil, err
			}
			if _, err := updater.Sign(
				i, sig, key.PublicKey.SerializeCompressed(), nil, nil,
			); err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}

		case keychain.AddressTypeP2WPKH, keychain.AddressTypeP2SHP2WPKH:
			witnessProgram := prevOut.PkScript
			if key.Type == keychain.AddressTypeP2SHP2WPKH {
				witnessProgram = key.RedeemScript
			}
			sig, err := txscript.RawTxInWitnessSignature(
				packet.UnsignedTx, sigHashes, i, prevOut.Value, witnessProgram,
				legacySighash(in), key.PrivateKey,
			)
			if err != nil {
				return nil, err
			}
			if _, err := updater.Sign(
				i, sig, key.PublicKey.SerializeCompressed(), key.RedeemScript, nil,
			); err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}

		case keychain.AddressTypeP2TR:
			sig, err := SignTaprootKeySpend(packet, i, sigHashes, fetcher, key)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
			in.TaprootKeySpendSig = sig
			if len(in.TaprootInternalKey) == 0 {
				in.TaprootInternalKey = key.InternalKey
			}

		default:
			return nil, fmt.Errorf("input %d: unsupported key type %s", i, key.Type)
		}

		signed = append(signed, i)
	}

	return signed, nil
}

// SignTaprootKeySpend produces a BIP341 key-path signature for input idx.
// The internal key is tweaked with an empty script root so that the
// resulting key equals the output key committed in the address. A
// non-default sighash type is appended to the signature.
func SignTaprootKeySpend(
	packet *psbt.Packet, idx int, sigHashes *txscript.TxSigHashes,
	fetcher txscript.PrevOutputFetcher, key *keychain.KeyRecord,
) ([]byte, error) {
	hashType := packet.Inputs[idx].SighashType

	preimage, err := txscript.CalcTaprootSignatureHash(
		sigHashes, hashType, packet.UnsignedTx, idx, fetcher,
	)
	if err != nil {
		return nil, err
	}

	tweaked := txscript.TweakTaprootPrivKey(*key.PrivateKey, nil)
	sig, err := schnorr.Sign(tweaked, preimage)
	if err != nil {
		return nil, err
	}

	serialized := sig.Serialize()
	if hashType != txscript.SigHashDefault {
		serialized = append(serialized, byte(hashType))
	}
	return serialized, nil
}

func legacySighash(in *psbt.PInput) txscript.SigHashType {
	if in.SighashType == txscript.SigHashDefault {
		return txscript.SigHashAll
	}
	return in.SighashType
}

func findKey(keys []*keychain.KeyRecord, pkScript []byte) *keychain.KeyRecord {
	for _, key := range keys {
		if key != nil && bytes.Equal(key.PkScript, pkScript) {
			return key
		}
	}
	return nil
}
