package walletsvc

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type service struct {
	key *keychain.KeyRecord
}

// NewService derives the platform key of type addrType from mnemonic.
func NewService(
	mnemonic, passphrase string, addrType keychain.AddressType, params *chaincfg.Params,
) (ports.WalletService, error) {
	wallet, err := keychain.Derive(mnemonic, passphrase, params)
	if err != nil {
		return nil, err
	}
	key, err := wallet.Key(addrType)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"address": key.EncodeAddress(),
		"path":    key.Path,
	}).Debug("platform wallet loaded")

	return &service{key}, nil
}

// NewServiceFromPrivateKey loads the platform key from a raw hex encoded
// secp256k1 scalar.
func NewServiceFromPrivateKey(
	privKeyHex string, addrType keychain.AddressType, params *chaincfg.Params,
) (ports.WalletService, error) {
	buf, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key format: %w", err)
	}
	if len(buf) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key length %d", len(buf))
	}
	privKey := secp256k1.PrivKeyFromBytes(buf)
	if privKey.Key.IsZero() {
		return nil, fmt.Errorf("invalid private key")
	}

	key, err := keychain.NewKeyRecord(privKey, addrType, params)
	if err != nil {
		return nil, err
	}
	return &service{key}, nil
}

func (s *service) Address() string {
	return s.key.EncodeAddress()
}

func (s *service) AddressType() keychain.AddressType {
	return s.key.Type
}

func (s *service) Key() *keychain.KeyRecord {
	return s.key
}

func (s *service) SignPsbt(ctx context.Context, packet *psbt.Packet) ([]int, error) {
	signed, err := psbtutil.Sign(packet, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with platform key: %w", err)
	}
	return signed, nil
}
