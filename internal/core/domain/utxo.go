package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

type Outpoint struct {
	Txid string
	VOut uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid, o.VOut)
}

func (o Outpoint) ToWire() (wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(o.Txid)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("invalid txid %s: %w", o.Txid, err)
	}
	return wire.OutPoint{Hash: *hash, Index: o.VOut}, nil
}

func OutpointFromWire(op wire.OutPoint) Outpoint {
	return Outpoint{Txid: op.Hash.String(), VOut: op.Index}
}

// ParseOutpoint accepts the txid:vout notation and the txidivout notation
// used by inscription ids.
func ParseOutpoint(s string) (Outpoint, error) {
	sep := strings.LastIndex(s, ":")
	if sep < 0 && len(s) > 65 && s[64] == 'i' {
		sep = 64
	}
	if sep != 64 {
		return Outpoint{}, fmt.Errorf("invalid outpoint %s", s)
	}
	vout, err := strconv.ParseUint(s[sep+1:], 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("invalid outpoint index: %w", err)
	}
	op := Outpoint{Txid: s[:sep], VOut: uint32(vout)}
	if _, err := op.ToWire(); err != nil {
		return Outpoint{}, err
	}
	return op, nil
}

type Utxo struct {
	Outpoint
	Value       int64
	Confirmed   bool
	BlockHeight int64
}

// Confirmations returns the depth of the utxo given the current tip.
func (u Utxo) Confirmations(tipHeight int64) int64 {
	if !u.Confirmed || u.BlockHeight <= 0 || tipHeight < u.BlockHeight {
		return 0
	}
	return tipHeight - u.BlockHeight + 1
}

// FeeRates are the indexer recommendations in sat/vbyte.
type FeeRates struct {
	Fastest  float64
	HalfHour float64
	Hour     float64
	Economy  float64
	Minimum  float64
}

type FeePriority string

const (
	FeePriorityFastest  FeePriority = "fastest"
	FeePriorityHalfHour FeePriority = "halfhour"
	FeePriorityHour     FeePriority = "hour"
	FeePriorityEconomy  FeePriority = "economy"
	FeePriorityMinimum  FeePriority = "minimum"
)

func (f FeeRates) For(priority FeePriority) float64 {
	switch priority {
	case FeePriorityFastest:
		return f.Fastest
	case FeePriorityHour:
		return f.Hour
	case FeePriorityEconomy:
		return f.Economy
	case FeePriorityMinimum:
		return f.Minimum
	default:
		return f.HalfHour
	}
}

type TxKind string

const (
	TxKindMint     TxKind = "mint"
	TxKindPurchase TxKind = "purchase"
	TxKindPadding  TxKind = "padding"
	TxKindPayout   TxKind = "payout"
)

// BroadcastRecord journals a transaction pushed to the network.
type BroadcastRecord struct {
	Txid      string
	Hex       string
	Kind      TxKind
	RefId     string
	CreatedAt int64
}
