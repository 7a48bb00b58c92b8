package common

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/input"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/ordlaunch/launchpad/common/keychain"
)

// InputWeight describes an input for weight estimation. Taproot key-spend
// inputs signed with a non-default sighash carry an extra witness byte.
type InputWeight struct {
	Type    keychain.AddressType
	Sighash txscript.SigHashType
}

func FeeRateFromSatPerVByte(satPerVByte float64) chainfee.SatPerKVByte {
	return chainfee.SatPerKVByte(satPerVByte * 1000)
}

func EstimateVSize(inputs []InputWeight, outputs [][]byte) (int, error) {
	estimator := &input.TxWeightEstimator{}

	for _, in := range inputs {
		switch in.Type {
		case keychain.AddressTypeP2PKH:
			estimator.AddP2PKHInput()
		case keychain.AddressTypeP2SHP2WPKH:
			estimator.AddNestedP2WKHInput()
		case keychain.AddressTypeP2WPKH:
			estimator.AddP2WKHInput()
		case keychain.AddressTypeP2TR:
			estimator.AddTaprootKeySpendInput(in.Sighash)
		default:
			return 0, fmt.Errorf("unsupported input type %s", in.Type)
		}
	}

	for _, pkScript := range outputs {
		estimator.AddOutput(pkScript)
	}

	return estimator.VSize(), nil
}

// EstimateFee prices the given shape at feeRate, in satoshis.
func EstimateFee(
	feeRate chainfee.SatPerKVByte, inputs []InputWeight, outputs [][]byte,
) (int64, error) {
	vsize, err := EstimateVSize(inputs, outputs)
	if err != nil {
		return 0, err
	}
	return int64(feeRate.FeeForVSize(lntypes.VByte(vsize))), nil
}

// InputWeights repeats the same input description n times.
func InputWeights(t keychain.AddressType, n int) []InputWeight {
	weights := make([]InputWeight, n)
	for i := range weights {
		weights[i] = InputWeight{Type: t, Sighash: txscript.SigHashDefault}
	}
	return weights
}

