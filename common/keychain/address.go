package keychain

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

type AddressType uint8

const (
	AddressTypeUnknown AddressType = iota
	AddressTypeP2PKH
	AddressTypeP2SHP2WPKH
	AddressTypeP2WPKH
	AddressTypeP2TR
)

// AllAddressTypes lists the derivable types in purpose order (44, 49, 84, 86).
var AllAddressTypes = []AddressType{
	AddressTypeP2PKH, AddressTypeP2SHP2WPKH, AddressTypeP2WPKH, AddressTypeP2TR,
}

func (t AddressType) String() string {
	switch t {
	case AddressTypeP2PKH:
		return "p2pkh"
	case AddressTypeP2SHP2WPKH:
		return "p2sh-p2wpkh"
	case AddressTypeP2WPKH:
		return "p2wpkh"
	case AddressTypeP2TR:
		return "p2tr"
	default:
		return "unknown"
	}
}

// Purpose returns the BIP43 purpose field of the derivation path.
func (t AddressType) Purpose() uint32 {
	switch t {
	case AddressTypeP2PKH:
		return 44
	case AddressTypeP2SHP2WPKH:
		return 49
	case AddressTypeP2WPKH:
		return 84
	case AddressTypeP2TR:
		return 86
	default:
		return 0
	}
}

func (t AddressType) IsSegwit() bool {
	return t == AddressTypeP2SHP2WPKH || t == AddressTypeP2WPKH || t == AddressTypeP2TR
}

func (t AddressType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *AddressType) UnmarshalText(b []byte) error {
	parsed, err := ParseAddressType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseAddressType(s string) (AddressType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p2pkh", "legacy":
		return AddressTypeP2PKH, nil
	case "p2sh-p2wpkh", "p2sh", "nested-segwit":
		return AddressTypeP2SHP2WPKH, nil
	case "p2wpkh", "segwit":
		return AddressTypeP2WPKH, nil
	case "p2tr", "taproot":
		return AddressTypeP2TR, nil
	default:
		return AddressTypeUnknown, fmt.Errorf("unknown address type %q", s)
	}
}

// AddressTypeFromScript classifies an output script. P2SH outputs are
// assumed to wrap a P2WPKH program since that is the only P2SH form a
// wallet of this package produces.
func AddressTypeFromScript(pkScript []byte) AddressType {
	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyHashTy:
		return AddressTypeP2PKH
	case txscript.ScriptHashTy:
		return AddressTypeP2SHP2WPKH
	case txscript.WitnessV0PubKeyHashTy:
		return AddressTypeP2WPKH
	case txscript.WitnessV1TaprootTy:
		return AddressTypeP2TR
	default:
		return AddressTypeUnknown
	}
}

// DecodeAddress parses addr for the given network and returns it together
// with its output script and address type.
func DecodeAddress(
	addr string, params *chaincfg.Params,
) (btcutil.Address, []byte, AddressType, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, nil, AddressTypeUnknown, fmt.Errorf("invalid address %s: %w", addr, err)
	}
	if !decoded.IsForNet(params) {
		return nil, nil, AddressTypeUnknown, fmt.Errorf(
			"address %s is not valid for network %s", addr, params.Name,
		)
	}
	pkScript, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, nil, AddressTypeUnknown, err
	}
	return decoded, pkScript, AddressTypeFromScript(pkScript), nil
}
