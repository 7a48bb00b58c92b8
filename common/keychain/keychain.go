// Package keychain derives the four single-key wallet variants used by the
// launchpad from a BIP39 mnemonic.
package keychain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/tyler-smith/go-bip39"
)

const mnemonicEntropyBits = 256

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// KeyRecord is one derived address variant. PublicKey is always the
// compressed 33-byte key; for taproot InternalKey holds its x-only form
// and PkScript commits to the tweaked output key.
type KeyRecord struct {
	Type         AddressType
	Path         string
	Address      btcutil.Address
	PrivateKey   *btcec.PrivateKey
	PublicKey    *btcec.PublicKey
	PkScript     []byte
	RedeemScript []byte
	InternalKey  []byte
}

func (k *KeyRecord) PubKeyHex() string {
	return hex.EncodeToString(k.PublicKey.SerializeCompressed())
}

func (k *KeyRecord) EncodeAddress() string {
	return k.Address.EncodeAddress()
}

// OutputKey returns the BIP86 tweaked key committed to by a taproot record.
func (k *KeyRecord) OutputKey() *btcec.PublicKey {
	return txscript.ComputeTaprootKeyNoScript(k.PublicKey)
}

// Wallet holds every address variant derived from a single mnemonic.
type Wallet struct {
	params *chaincfg.Params
	keys   map[AddressType]*KeyRecord
}

func (w *Wallet) Key(t AddressType) (*KeyRecord, error) {
	key, ok := w.keys[t]
	if !ok {
		return nil, fmt.Errorf("no key for address type %s", t)
	}
	return key, nil
}

func (w *Wallet) Keys() []*KeyRecord {
	keys := make([]*KeyRecord, 0, len(w.keys))
	for _, t := range AllAddressTypes {
		keys = append(keys, w.keys[t])
	}
	return keys
}

func (w *Wallet) Params() *chaincfg.Params {
	return w.params
}

// KeyForScript finds the record owning pkScript.
func (w *Wallet) KeyForScript(pkScript []byte) (*KeyRecord, bool) {
	for _, key := range w.keys {
		if string(key.PkScript) == string(pkScript) {
			return key, true
		}
	}
	return nil, false
}

func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// Derive validates the mnemonic checksum and derives the first receive key
// of account 0 for every address type. The coin type follows params, so
// mainnet keys live under 0' and test networks under 1'.
func Derive(mnemonic, passphrase string, params *chaincfg.Params) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMnemonic, err)
	}

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}

	keys := make(map[AddressType]*KeyRecord, len(AllAddressTypes))
	for _, t := range AllAddressTypes {
		key, err := deriveKey(master, t, params)
		if err != nil {
			return nil, err
		}
		keys[t] = key
	}
	return &Wallet{params, keys}, nil
}

func deriveKey(
	master *hdkeychain.ExtendedKey, t AddressType, params *chaincfg.Params,
) (*KeyRecord, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + t.Purpose(),
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart,
		0,
		0,
	}

	child := master
	for _, index := range path {
		next, err := child.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s key: %w", t, err)
		}
		child = next
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}

	key, err := NewKeyRecord(privKey, t, params)
	if err != nil {
		return nil, err
	}
	key.Path = fmt.Sprintf("m/%d'/%d'/0'/0/0", t.Purpose(), params.HDCoinType)
	return key, nil
}

// NewKeyRecord builds the address of type t for privKey.
func NewKeyRecord(
	privKey *btcec.PrivateKey, t AddressType, params *chaincfg.Params,
) (*KeyRecord, error) {
	pubKey := privKey.PubKey()
	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())

	key := &KeyRecord{
		Type:       t,
		PrivateKey: privKey,
		PublicKey:  pubKey,
	}

	var (
		addr btcutil.Address
		err  error
	)
	switch t {
	case AddressTypeP2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(pubKeyHash, params)
	case AddressTypeP2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
	case AddressTypeP2SHP2WPKH:
		var witnessAddr *btcutil.AddressWitnessPubKeyHash
		witnessAddr, err = btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
		if err != nil {
			return nil, err
		}
		key.RedeemScript, err = txscript.PayToAddrScript(witnessAddr)
		if err != nil {
			return nil, err
		}
		addr, err = btcutil.NewAddressScriptHash(key.RedeemScript, params)
	case AddressTypeP2TR:
		key.InternalKey = schnorr.SerializePubKey(pubKey)
		outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)
		addr, err = btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	default:
		return nil, fmt.Errorf("unsupported address type %s", t)
	}
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}
	key.Address = addr
	key.PkScript = pkScript
	return key, nil
}
