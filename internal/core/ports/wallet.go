package ports

import (
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/ordlaunch/launchpad/common/keychain"
)

// WalletService is the platform hot wallet paying rewards.
type WalletService interface {
	Address() string
	AddressType() keychain.AddressType
	Key() *keychain.KeyRecord
	SignPsbt(ctx context.Context, packet *psbt.Packet) ([]int, error)
}
