// Package coinselect implements the greedy, confirmation-ordered coin
// selection used to fund launchpad transactions.
package coinselect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/keychain"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type Coin struct {
	Outpoint      wire.OutPoint
	Value         int64
	Confirmations int64
	PkScript      []byte
}

type Request struct {
	// Target is the sum of the non-change outputs.
	Target int64
	// FixedInputs are inputs already part of the transaction, funded by
	// FixedInputValue.
	FixedInputs     []common.InputWeight
	FixedInputValue int64
	FeeRate         chainfee.SatPerKVByte
	InputType       keychain.AddressType
	Outputs         [][]byte
	ChangeScript    []byte
	// MinCoinValue excludes small outputs, which on an ordinals wallet
	// are likely to carry inscriptions.
	MinCoinValue int64
	Exclude      map[wire.OutPoint]struct{}
}

type Result struct {
	Coins  []Coin
	Total  int64
	Fee    int64
	Change int64
}

func (r *Result) Outpoints() []wire.OutPoint {
	outpoints := make([]wire.OutPoint, 0, len(r.Coins))
	for _, c := range r.Coins {
		outpoints = append(outpoints, c.Outpoint)
	}
	return outpoints
}

// Select sorts candidates by confirmations, then value, both descending, and
// accumulates them until target plus fee is covered. The fee is estimated
// with a single selected input first and re-estimated once the final input
// count is known. Change under the dust threshold is left to the miner.
func Select(coins []Coin, req Request) (*Result, error) {
	if req.Target < 0 {
		return nil, fmt.Errorf("invalid target %d", req.Target)
	}

	candidates := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if _, ok := req.Exclude[c.Outpoint]; ok {
			continue
		}
		if c.Value < req.MinCoinValue {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confirmations != candidates[j].Confirmations {
			return candidates[i].Confirmations > candidates[j].Confirmations
		}
		return candidates[i].Value > candidates[j].Value
	})

	outputs := req.Outputs
	if len(req.ChangeScript) > 0 {
		outputs = append(append([][]byte{}, req.Outputs...), req.ChangeScript)
	}

	estimate := func(numCoins int) (int64, error) {
		inputs := append(
			append([]common.InputWeight{}, req.FixedInputs...),
			common.InputWeights(req.InputType, numCoins)...,
		)
		return common.EstimateFee(req.FeeRate, inputs, outputs)
	}

	fee, err := estimate(1)
	if err != nil {
		return nil, err
	}

	selected := make([]Coin, 0)
	total := int64(0)
	next := 0
	for ; next < len(candidates); next++ {
		if len(selected) > 0 && req.FixedInputValue+total >= req.Target+fee {
			break
		}
		selected = append(selected, candidates[next])
		total += candidates[next].Value
	}

	fee, err = estimate(len(selected))
	if err != nil {
		return nil, err
	}
	for req.FixedInputValue+total < req.Target+fee {
		if next >= len(candidates) {
			return nil, fmt.Errorf(
				"%w: need %d sats, have %d", ErrInsufficientFunds,
				req.Target+fee, req.FixedInputValue+total,
			)
		}
		selected = append(selected, candidates[next])
		total += candidates[next].Value
		next++
		if fee, err = estimate(len(selected)); err != nil {
			return nil, err
		}
	}

	change := req.FixedInputValue + total - req.Target - fee
	if len(req.ChangeScript) == 0 || IsDust(change, req.ChangeScript) {
		fee += change
		change = 0
	}

	return &Result{
		Coins:  selected,
		Total:  total,
		Fee:    fee,
		Change: change,
	}, nil
}

// IsDust reports whether an output of amount paying to pkScript would be
// rejected by relay policy.
func IsDust(amount int64, pkScript []byte) bool {
	return txrules.IsDustOutput(wire.NewTxOut(amount, pkScript), txrules.DefaultRelayFeePerKb)
}
