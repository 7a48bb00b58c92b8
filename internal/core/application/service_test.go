package application_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/application"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db"
	walletsvc "github.com/ordlaunch/launchpad/internal/infrastructure/wallet"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	buyerMnemonic    = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	sellerMnemonic   = "legal winner thank year wave sausage worth useful legal winner thank yellow"
	creatorMnemonic  = "letter advice cage absurd amount doctor acoustic avoid letter advice cage above"
	platformMnemonic = "zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong"

	tipHeight       = int64(200)
	mintPrice       = int64(20000)
	mintPlatformFee = int64(1000)
	listingPrice    = int64(50000)
	inscriptionSats = int64(546)
)

var (
	params = common.RegTest.Params
	ctx    = context.Background()

	buyerPayment, buyerOrdinals   *keychain.KeyRecord
	sellerPayment, sellerOrdinals *keychain.KeyRecord
	creatorKey                    *keychain.KeyRecord
)

func init() {
	buyerPayment, buyerOrdinals = mustKeys(buyerMnemonic)
	sellerPayment, sellerOrdinals = mustKeys(sellerMnemonic)
	creatorKey, _ = mustKeys(creatorMnemonic)
}

func mustKeys(mnemonic string) (*keychain.KeyRecord, *keychain.KeyRecord) {
	wallet, err := keychain.Derive(mnemonic, "", params)
	if err != nil {
		panic(err)
	}
	payment, err := wallet.Key(keychain.AddressTypeP2WPKH)
	if err != nil {
		panic(err)
	}
	ordinals, err := wallet.Key(keychain.AddressTypeP2TR)
	if err != nil {
		panic(err)
	}
	return payment, ordinals
}

type testEnv struct {
	svc         application.Service
	admin       application.AdminService
	repoManager ports.RepoManager
	explorer    *mockedExplorer
	platform    ports.WalletService
}

func testConfig(platformAddress string) application.Config {
	return application.Config{
		Network:              common.RegTest,
		FeePriority:          domain.FeePriorityHalfHour,
		MinUtxoValue:         10000,
		PaddingValue:         600,
		UtxoLockTTL:          time.Minute,
		MintSignatureTimeout: time.Minute,
		PlatformFeeAddress:   platformAddress,
		MintPlatformFee:      mintPlatformFee,
		MarketplaceFeeBps:    200,
	}
}

func newTestEnv(t *testing.T, update ...func(*application.Config)) *testEnv {
	platform, err := walletsvc.NewService(platformMnemonic, "", keychain.AddressTypeP2WPKH, params)
	require.NoError(t, err)

	cfg := testConfig(platform.Address())
	for _, fn := range update {
		fn(&cfg)
	}

	repoManager, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "sqlite",
		KVStoreType:     "badger",
		DataStoreConfig: []interface{}{t.TempDir()},
		KVStoreConfig:   []interface{}{"", nil},
	})
	require.NoError(t, err)

	explorer := &mockedExplorer{}
	explorer.On("GetFeeRates", mock.Anything).Return(&domain.FeeRates{
		Fastest: 10, HalfHour: 5, Hour: 3, Economy: 2, Minimum: 1,
	}, nil).Maybe()
	explorer.On("GetTipHeight", mock.Anything).Return(tipHeight, nil).Maybe()

	svc, err := application.NewService(cfg, repoManager, explorer, nil)
	require.NoError(t, err)
	admin, err := application.NewAdminService(cfg, repoManager, explorer, platform)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	return &testEnv{
		svc:         svc,
		admin:       admin,
		repoManager: repoManager,
		explorer:    explorer,
		platform:    platform,
	}
}

func (e *testEnv) createPhase(t *testing.T, allocation, walletLimit int64) *domain.MintPhase {
	phase, err := e.admin.CreateMintPhase(ctx, application.MintPhaseRequest{
		CollectionId:   "collection",
		Name:           "public",
		PriceSats:      mintPrice,
		PayoutAddress:  creatorKey.EncodeAddress(),
		Allocation:     allocation,
		PerWalletLimit: walletLimit,
		StartsAt:       time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)
	return phase
}

func (e *testEnv) minted(t *testing.T, phaseId string) int64 {
	phase, err := e.svc.GetMintPhase(ctx, phaseId)
	require.NoError(t, err)
	return phase.Minted
}

func coins(seed string, values ...int64) []domain.Utxo {
	utxos := make([]domain.Utxo, 0, len(values))
	for i, v := range values {
		hash := chainhash.DoubleHashH([]byte(fmt.Sprintf("%s-%d", seed, i)))
		utxos = append(utxos, domain.Utxo{
			Outpoint:    domain.Outpoint{Txid: hash.String(), VOut: uint32(i)},
			Value:       v,
			Confirmed:   true,
			BlockHeight: tipHeight - 10,
		})
	}
	return utxos
}

func payer(key *keychain.KeyRecord) application.Payer {
	return application.Payer{Address: key.EncodeAddress(), PubKey: key.PubKeyHex()}
}

func sign(t *testing.T, b64 string, keys ...*keychain.KeyRecord) (*psbt.Packet, string) {
	packet, err := psbtutil.Decode(b64)
	require.NoError(t, err)
	_, err = psbtutil.Sign(packet, keys...)
	require.NoError(t, err)
	signed, err := psbtutil.Encode(packet)
	require.NoError(t, err)
	return packet, signed
}

func TestNewService(t *testing.T) {
	repoManager, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "sqlite",
		KVStoreType:     "badger",
		DataStoreConfig: []interface{}{t.TempDir()},
		KVStoreConfig:   []interface{}{"", nil},
	})
	require.NoError(t, err)
	defer repoManager.Close()

	fixtures := []struct {
		name   string
		update func(*application.Config)
	}{
		{"missing network", func(c *application.Config) { c.Network = common.Network{} }},
		{"invalid fee address", func(c *application.Config) { c.PlatformFeeAddress = "bc1qinvalid" }},
		{"missing fee address", func(c *application.Config) { c.PlatformFeeAddress = "" }},
		{"fee too high", func(c *application.Config) { c.MarketplaceFeeBps = 10000 }},
		{"negative fee", func(c *application.Config) { c.MarketplaceFeeBps = -1 }},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			cfg := testConfig(creatorKey.EncodeAddress())
			f.update(&cfg)
			svc, err := application.NewService(cfg, repoManager, &mockedExplorer{}, nil)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestMint(t *testing.T) {
	env := newTestEnv(t)
	phase := env.createPhase(t, 10, 1)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(coins("buyer", 100000, 100000), nil)
	env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := env.svc.Mint(ctx, application.MintRequest{
		PhaseId:        phase.Id,
		ReceiveAddress: buyerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.NoError(t, err)
	require.Equal(t, domain.MintAwaitingSignature, res.Record.Status)
	require.Equal(t, []int{0}, res.InputsToSign)
	require.Positive(t, res.Fee)
	require.Equal(t, int64(1), env.minted(t, phase.Id))

	packet, err := psbtutil.Decode(res.Psbt)
	require.NoError(t, err)
	require.Len(t, packet.UnsignedTx.TxIn, 1)
	require.Equal(t, mintPrice, packet.UnsignedTx.TxOut[0].Value)
	require.Equal(t, creatorKey.PkScript, packet.UnsignedTx.TxOut[0].PkScript)
	require.Equal(t, mintPlatformFee, packet.UnsignedTx.TxOut[1].Value)
	require.Equal(t, env.platform.Key().PkScript, packet.UnsignedTx.TxOut[1].PkScript)

	// the coin stays reserved for this mint
	locked, err := env.repoManager.UtxoLocks().Locked(
		ctx, domain.OutpointFromWire(packet.UnsignedTx.TxIn[0].PreviousOutPoint),
	)
	require.NoError(t, err)
	require.Len(t, locked, 1)

	t.Run("wallet limit", func(t *testing.T) {
		_, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrWalletLimitReached)
		require.Equal(t, int64(1), env.minted(t, phase.Id))
	})

	t.Run("mismatching psbt", func(t *testing.T) {
		other, err := psbtutil.Decode(res.Psbt)
		require.NoError(t, err)
		other.UnsignedTx.LockTime = 100
		b64, err := psbtutil.Encode(other)
		require.NoError(t, err)

		_, err = env.svc.ConfirmMint(ctx, res.Record.Id, b64)
		require.ErrorIs(t, err, domain.ErrPsbtMismatch)

		record, err := env.svc.GetMintRecord(ctx, res.Record.Id)
		require.NoError(t, err)
		require.Equal(t, domain.MintAwaitingSignature, record.Status)
	})

	t.Run("unsigned psbt", func(t *testing.T) {
		_, err := env.svc.ConfirmMint(ctx, res.Record.Id, res.Psbt)
		require.Error(t, err)

		record, err := env.svc.GetMintRecord(ctx, res.Record.Id)
		require.NoError(t, err)
		require.Equal(t, domain.MintAwaitingSignature, record.Status)
		require.Equal(t, int64(1), env.minted(t, phase.Id))
	})

	t.Run("confirm", func(t *testing.T) {
		signedPacket, signed := sign(t, res.Psbt, buyerPayment)

		record, err := env.svc.ConfirmMint(ctx, res.Record.Id, signed)
		require.NoError(t, err)
		require.Equal(t, domain.MintConfirmed, record.Status)
		require.Equal(t, signedPacket.UnsignedTx.TxHash().String(), record.Txid)
		require.Equal(t, int64(1), env.minted(t, phase.Id))

		journal, err := env.admin.ListBroadcasts(ctx, record.Id)
		require.NoError(t, err)
		require.Len(t, journal, 1)
		require.Equal(t, domain.TxKindMint, journal[0].Kind)
		broadcast, err := env.admin.GetBroadcast(ctx, record.Txid)
		require.NoError(t, err)
		require.Equal(t, record.Id, broadcast.RefId)
		require.NotEmpty(t, broadcast.Hex)

		_, err = env.admin.ListBroadcasts(ctx, "")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = env.admin.GetBroadcast(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrBroadcastNotFound)

		_, err = env.svc.ConfirmMint(ctx, res.Record.Id, signed)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		_, err = env.svc.CancelMint(ctx, res.Record.Id, "")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	env.explorer.AssertNumberOfCalls(t, "Broadcast", 1)
}

func TestMintInvalid(t *testing.T) {
	env := newTestEnv(t)
	phase := env.createPhase(t, 10, 0)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return([]domain.Utxo{}, nil)

	t.Run("unknown phase", func(t *testing.T) {
		_, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        "unknown",
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrMintPhaseNotFound)
	})

	t.Run("phase not open", func(t *testing.T) {
		future, err := env.admin.CreateMintPhase(ctx, application.MintPhaseRequest{
			CollectionId:  "collection",
			Name:          "later",
			PriceSats:     mintPrice,
			PayoutAddress: creatorKey.EncodeAddress(),
			Allocation:    10,
			StartsAt:      time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		_, err = env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        future.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrMintPhaseNotOpen)
	})

	t.Run("invalid address", func(t *testing.T) {
		_, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: "not an address",
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrUnsupportedAddress)
	})

	t.Run("insufficient funds releases the slot", func(t *testing.T) {
		_, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)
		require.Zero(t, env.minted(t, phase.Id))

		count, err := env.repoManager.MintLedger().GetWalletMints(
			ctx, phase.Id, buyerOrdinals.EncodeAddress(),
		)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("nothing to pay", func(t *testing.T) {
		free := newTestEnv(t, func(c *application.Config) { c.MintPlatformFee = 0 })
		phase, err := free.admin.CreateMintPhase(ctx, application.MintPhaseRequest{
			CollectionId: "collection",
			Name:         "free",
			Allocation:   10,
		})
		require.NoError(t, err)

		_, err = free.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrNothingToPay)
		require.Zero(t, free.minted(t, phase.Id))
	})
}

func TestMintAllocation(t *testing.T) {
	env := newTestEnv(t)
	phase := env.createPhase(t, 2, 0)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(coins("buyer", 100000, 100000, 100000), nil)

	mint := func(receiver *keychain.KeyRecord) (*application.MintResult, error) {
		return env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: receiver.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
	}

	first, err := mint(buyerOrdinals)
	require.NoError(t, err)
	second, err := mint(sellerOrdinals)
	require.NoError(t, err)
	require.NotEqual(t,
		first.Record.Id, second.Record.Id,
	)

	_, err = mint(creatorKey)
	require.ErrorIs(t, err, domain.ErrMintPhaseExhausted)
	require.Equal(t, int64(2), env.minted(t, phase.Id))

	record, err := env.svc.CancelMint(ctx, first.Record.Id, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, domain.MintCancelled, record.Status)
	require.Equal(t, "changed my mind", record.Error)
	require.Equal(t, int64(1), env.minted(t, phase.Id))

	_, err = env.svc.CancelMint(ctx, first.Record.Id, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, int64(1), env.minted(t, phase.Id))

	// the released slot and the unlocked coin are available again
	third, err := mint(creatorKey)
	require.NoError(t, err)
	require.Equal(t, int64(2), env.minted(t, phase.Id))

	firstPacket, err := psbtutil.Decode(first.Psbt)
	require.NoError(t, err)
	thirdPacket, err := psbtutil.Decode(third.Psbt)
	require.NoError(t, err)
	require.Equal(t,
		firstPacket.UnsignedTx.TxIn[0].PreviousOutPoint,
		thirdPacket.UnsignedTx.TxIn[0].PreviousOutPoint,
	)
}

func TestConfirmMintRejected(t *testing.T) {
	env := newTestEnv(t)
	phase := env.createPhase(t, 10, 1)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(coins("buyer", 100000), nil)
	env.explorer.On("Broadcast", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: bad-txns-inputs-missingorspent", ports.ErrTxRejected))

	res, err := env.svc.Mint(ctx, application.MintRequest{
		PhaseId:        phase.Id,
		ReceiveAddress: buyerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.NoError(t, err)

	packet, signed := sign(t, res.Psbt, buyerPayment)
	_, err = env.svc.ConfirmMint(ctx, res.Record.Id, signed)
	require.ErrorIs(t, err, ports.ErrTxRejected)

	record, err := env.svc.GetMintRecord(ctx, res.Record.Id)
	require.NoError(t, err)
	require.Equal(t, domain.MintCancelled, record.Status)
	require.Zero(t, env.minted(t, phase.Id))

	locked, err := env.repoManager.UtxoLocks().Locked(
		ctx, domain.OutpointFromWire(packet.UnsignedTx.TxIn[0].PreviousOutPoint),
	)
	require.NoError(t, err)
	require.Empty(t, locked)
}

func TestConfirmMintInFlight(t *testing.T) {
	t.Run("cancel and expiry keep the slot", func(t *testing.T) {
		env := newTestEnv(t, func(c *application.Config) {
			c.MintSignatureTimeout = time.Second
		})
		phase := env.createPhase(t, 1, 0)
		env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
			Return(coins("buyer", 100000, 100000), nil)

		res, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.NoError(t, err)

		// the record is past its signature timeout when the user confirms
		time.Sleep(2 * time.Second)

		var cancelErr error
		var expired int
		env.explorer.On("Broadcast", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				_, cancelErr = env.svc.CancelMint(ctx, res.Record.Id, "")
				expired, _ = env.svc.ExpireStaleMints(ctx)
			}).
			Return(nil).Once()

		_, signed := sign(t, res.Psbt, buyerPayment)
		record, err := env.svc.ConfirmMint(ctx, res.Record.Id, signed)
		require.NoError(t, err)
		require.Equal(t, domain.MintConfirmed, record.Status)
		require.ErrorIs(t, cancelErr, domain.ErrInvalidTransition)
		require.Zero(t, expired)
		require.Equal(t, int64(1), env.minted(t, phase.Id))

		_, err = env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: sellerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.ErrorIs(t, err, domain.ErrMintPhaseExhausted)
	})

	t.Run("failed attempt can be retried", func(t *testing.T) {
		env := newTestEnv(t)
		phase := env.createPhase(t, 1, 0)
		env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
			Return(coins("buyer", 100000), nil)
		env.explorer.On("Broadcast", mock.Anything, mock.Anything).
			Return(fmt.Errorf("explorer unavailable")).Once()
		env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := env.svc.Mint(ctx, application.MintRequest{
			PhaseId:        phase.Id,
			ReceiveAddress: buyerOrdinals.EncodeAddress(),
			Payment:        payer(buyerPayment),
		})
		require.NoError(t, err)

		_, signed := sign(t, res.Psbt, buyerPayment)
		_, err = env.svc.ConfirmMint(ctx, res.Record.Id, signed)
		require.Error(t, err)
		require.NotErrorIs(t, err, ports.ErrTxRejected)

		record, err := env.svc.GetMintRecord(ctx, res.Record.Id)
		require.NoError(t, err)
		require.Equal(t, domain.MintAwaitingSignature, record.Status)
		require.Equal(t, int64(1), env.minted(t, phase.Id))

		record, err = env.svc.ConfirmMint(ctx, res.Record.Id, signed)
		require.NoError(t, err)
		require.Equal(t, domain.MintConfirmed, record.Status)
	})
}

func TestExpireStaleMints(t *testing.T) {
	env := newTestEnv(t, func(c *application.Config) {
		c.MintSignatureTimeout = time.Second
	})
	phase := env.createPhase(t, 10, 0)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(coins("buyer", 100000, 100000), nil)
	env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil)

	stale, err := env.svc.Mint(ctx, application.MintRequest{
		PhaseId:        phase.Id,
		ReceiveAddress: buyerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.NoError(t, err)
	confirmed, err := env.svc.Mint(ctx, application.MintRequest{
		PhaseId:        phase.Id,
		ReceiveAddress: sellerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.NoError(t, err)
	_, signed := sign(t, confirmed.Psbt, buyerPayment)
	_, err = env.svc.ConfirmMint(ctx, confirmed.Record.Id, signed)
	require.NoError(t, err)

	expired, err := env.svc.ExpireStaleMints(ctx)
	require.NoError(t, err)
	require.Zero(t, expired)

	time.Sleep(2 * time.Second)

	expired, err = env.svc.ExpireStaleMints(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	record, err := env.svc.GetMintRecord(ctx, stale.Record.Id)
	require.NoError(t, err)
	require.Equal(t, domain.MintCancelled, record.Status)
	record, err = env.svc.GetMintRecord(ctx, confirmed.Record.Id)
	require.NoError(t, err)
	require.Equal(t, domain.MintConfirmed, record.Status)
	require.Equal(t, int64(1), env.minted(t, phase.Id))

	expired, err = env.svc.ExpireStaleMints(ctx)
	require.NoError(t, err)
	require.Zero(t, expired)
}

// inscriptionCoin returns a transaction holding an inscription for owner at
// output 0, as served by the explorer.
func inscriptionCoin(t *testing.T, env *testEnv, owner *keychain.KeyRecord) domain.Outpoint {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{
		Hash: chainhash.DoubleHashH([]byte(owner.EncodeAddress())),
	}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(inscriptionSats, owner.PkScript))
	txHex, err := common.EncodeTx(tx)
	require.NoError(t, err)

	outpoint := domain.Outpoint{Txid: tx.TxHash().String(), VOut: 0}
	env.explorer.On("GetUtxos", mock.Anything, owner.EncodeAddress()).Return([]domain.Utxo{{
		Outpoint: outpoint, Value: inscriptionSats, Confirmed: true, BlockHeight: tipHeight - 100,
	}}, nil)
	env.explorer.On("GetTxHex", mock.Anything, outpoint.Txid).Return(txHex, nil)
	return outpoint
}

func TestListing(t *testing.T) {
	env := newTestEnv(t)
	outpoint := inscriptionCoin(t, env, sellerOrdinals)

	req := application.ListingRequest{
		InscriptionId: outpoint.Txid + "i0",
		Outpoint:      outpoint.String(),
		Seller:        payer(sellerOrdinals),
		PayoutAddress: sellerPayment.EncodeAddress(),
		PriceSats:     listingPrice,
	}

	t.Run("invalid", func(t *testing.T) {
		invalid := req
		invalid.Seller = payer(buyerOrdinals)
		env.explorer.On("GetUtxos", mock.Anything, buyerOrdinals.EncodeAddress()).
			Return([]domain.Utxo{}, nil)
		_, err := env.svc.CreateListing(ctx, invalid)
		require.ErrorIs(t, err, domain.ErrOutputNotOwned)

		invalid = req
		invalid.PriceSats = 10
		_, err = env.svc.CreateListing(ctx, invalid)
		require.Error(t, err)

		invalid = req
		invalid.Outpoint = "abc:0"
		_, err = env.svc.CreateListing(ctx, invalid)
		require.Error(t, err)
	})

	listing, err := env.svc.CreateListing(ctx, req)
	require.NoError(t, err)
	require.Equal(t, domain.ListingPendingSignature, listing.Status)
	require.Equal(t, inscriptionSats, listing.Value)

	_, err = env.svc.CreateListing(ctx, req)
	require.ErrorIs(t, err, domain.ErrListingExists)

	t.Run("unsigned", func(t *testing.T) {
		_, err := env.svc.SubmitListingSignature(ctx, listing.Id, listing.Psbt)
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("wrong sighash", func(t *testing.T) {
		packet, err := psbtutil.Decode(listing.Psbt)
		require.NoError(t, err)
		packet.Inputs[0].SighashType = 0
		_, err = psbtutil.Sign(packet, sellerOrdinals)
		require.NoError(t, err)
		b64, err := psbtutil.Encode(packet)
		require.NoError(t, err)

		_, err = env.svc.SubmitListingSignature(ctx, listing.Id, b64)
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	_, signed := sign(t, listing.Psbt, sellerOrdinals)
	active, err := env.svc.SubmitListingSignature(ctx, listing.Id, signed)
	require.NoError(t, err)
	require.Equal(t, domain.ListingActive, active.Status)

	_, err = env.svc.SubmitListingSignature(ctx, listing.Id, signed)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	listings, err := env.svc.ListListings(ctx, domain.ListingActive)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	_, err = env.svc.CancelListing(ctx, listing.Id, buyerOrdinals.EncodeAddress())
	require.ErrorIs(t, err, domain.ErrNotListingOwner)

	cancelled, err := env.svc.CancelListing(ctx, listing.Id, sellerOrdinals.EncodeAddress())
	require.NoError(t, err)
	require.Equal(t, domain.ListingCancelled, cancelled.Status)

	_, err = env.svc.CancelListing(ctx, listing.Id, sellerOrdinals.EncodeAddress())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// a cancelled listing frees the coin for a new one
	_, err = env.svc.CreateListing(ctx, req)
	require.NoError(t, err)
}

func TestPurchase(t *testing.T) {
	env := newTestEnv(t)
	outpoint := inscriptionCoin(t, env, sellerOrdinals)

	listing, err := env.svc.CreateListing(ctx, application.ListingRequest{
		InscriptionId: outpoint.Txid + "i0",
		Outpoint:      outpoint.String(),
		Seller:        payer(sellerOrdinals),
		PayoutAddress: sellerPayment.EncodeAddress(),
		PriceSats:     listingPrice,
	})
	require.NoError(t, err)
	_, signedListing := sign(t, listing.Psbt, sellerOrdinals)
	_, err = env.svc.SubmitListingSignature(ctx, listing.Id, signedListing)
	require.NoError(t, err)

	buyerCoins := coins("buyer", 600, 600, 200000)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(buyerCoins, nil)

	t.Run("no padding", func(t *testing.T) {
		env.explorer.On("GetUtxos", mock.Anything, sellerPayment.EncodeAddress()).
			Return(coins("seller", 200000), nil)
		_, err := env.svc.PreparePurchase(ctx, application.PurchaseRequest{
			ListingId:      listing.Id,
			ReceiveAddress: sellerPayment.EncodeAddress(),
			Payment:        payer(sellerPayment),
		})
		require.ErrorIs(t, err, domain.ErrInsufficientPadding)
	})

	res, err := env.svc.PreparePurchase(ctx, application.PurchaseRequest{
		ListingId:      listing.Id,
		ReceiveAddress: buyerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 3}, res.InputsToSign)

	packet, err := psbtutil.Decode(res.Psbt)
	require.NoError(t, err)
	tx := packet.UnsignedTx
	require.Len(t, tx.TxIn, 4)
	sellerOutpoint, err := outpoint.ToWire()
	require.NoError(t, err)
	require.Equal(t, sellerOutpoint, tx.TxIn[2].PreviousOutPoint)

	require.Equal(t, int64(1200), tx.TxOut[0].Value)
	require.Equal(t, buyerPayment.PkScript, tx.TxOut[0].PkScript)
	require.Equal(t, inscriptionSats, tx.TxOut[1].Value)
	require.Equal(t, buyerOrdinals.PkScript, tx.TxOut[1].PkScript)
	require.Equal(t, listingPrice, tx.TxOut[2].Value)
	require.Equal(t, sellerPayment.PkScript, tx.TxOut[2].PkScript)
	require.Equal(t, listingPrice*200/10000, tx.TxOut[3].Value)
	require.Equal(t, env.platform.Key().PkScript, tx.TxOut[3].PkScript)
	require.Equal(t, int64(600), tx.TxOut[4].Value)
	require.Equal(t, int64(600), tx.TxOut[5].Value)
	require.Len(t, tx.TxOut, 7)

	in, err := psbtutil.InputValue(packet)
	require.NoError(t, err)
	out := int64(0)
	for _, o := range tx.TxOut {
		out += o.Value
	}
	require.Equal(t, res.Fee, in-out)

	signedPacket, signed := sign(t, res.Psbt, buyerPayment)

	t.Run("misaligned", func(t *testing.T) {
		tampered, err := psbtutil.Copy(signedPacket)
		require.NoError(t, err)
		tampered.UnsignedTx.TxOut[2].Value = listingPrice - 1
		b64, err := psbtutil.Encode(tampered)
		require.NoError(t, err)

		_, err = env.svc.CompletePurchase(ctx, listing.Id, b64)
		require.ErrorIs(t, err, psbtutil.ErrListingMisaligned)
	})

	t.Run("missing platform fee", func(t *testing.T) {
		tampered, err := psbtutil.Copy(signedPacket)
		require.NoError(t, err)
		tampered.UnsignedTx.TxOut[3].Value = 1
		b64, err := psbtutil.Encode(tampered)
		require.NoError(t, err)

		_, err = env.svc.CompletePurchase(ctx, listing.Id, b64)
		require.ErrorIs(t, err, domain.ErrMissingPlatformFee)
	})

	env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Once()

	sold, err := env.svc.CompletePurchase(ctx, listing.Id, signed)
	require.NoError(t, err)
	require.Equal(t, domain.ListingSold, sold.Status)
	require.Equal(t, buyerOrdinals.EncodeAddress(), sold.BuyerAddress)
	require.Equal(t, signedPacket.UnsignedTx.TxHash().String(), sold.Txid)

	got, err := env.svc.GetListing(ctx, listing.Id)
	require.NoError(t, err)
	require.Equal(t, domain.ListingSold, got.Status)

	_, err = env.svc.PreparePurchase(ctx, application.PurchaseRequest{
		ListingId:      listing.Id,
		ReceiveAddress: buyerOrdinals.EncodeAddress(),
		Payment:        payer(buyerPayment),
	})
	require.ErrorIs(t, err, domain.ErrListingNotActive)
	_, err = env.svc.CompletePurchase(ctx, listing.Id, signed)
	require.ErrorIs(t, err, domain.ErrListingNotActive)

	env.explorer.AssertNumberOfCalls(t, "Broadcast", 1)
}

func TestPadding(t *testing.T) {
	env := newTestEnv(t)
	env.explorer.On("GetUtxos", mock.Anything, buyerPayment.EncodeAddress()).
		Return(coins("buyer", 100000), nil)
	env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil)

	_, err := env.svc.PreparePadding(ctx, application.PaddingRequest{
		Payment: payer(buyerPayment), Count: 11,
	})
	require.Error(t, err)

	res, err := env.svc.PreparePadding(ctx, application.PaddingRequest{
		Payment: payer(buyerPayment), Count: 3,
	})
	require.NoError(t, err)
	require.Equal(t, []int{0}, res.InputsToSign)
	require.True(t, strings.HasPrefix(res.Id, "padding:"))

	packet, err := psbtutil.Decode(res.Psbt)
	require.NoError(t, err)
	require.Len(t, packet.UnsignedTx.TxOut, 4)
	for _, out := range packet.UnsignedTx.TxOut[:3] {
		require.Equal(t, int64(600), out.Value)
	}

	// the funding coin is reserved until the transaction is submitted
	_, err = env.svc.PreparePadding(ctx, application.PaddingRequest{Payment: payer(buyerPayment)})
	require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)

	signedPacket, signed := sign(t, res.Psbt, buyerPayment)

	t.Run("unknown request", func(t *testing.T) {
		_, err := env.svc.SubmitPadding(ctx, "padding:unknown", signed)
		require.ErrorIs(t, err, ports.ErrPendingPsbtNotFound)
	})

	t.Run("transaction not issued", func(t *testing.T) {
		other, err := psbtutil.Decode(res.Psbt)
		require.NoError(t, err)
		other.UnsignedTx.TxOut[0].PkScript = sellerPayment.PkScript
		b64, err := psbtutil.Encode(other)
		require.NoError(t, err)
		_, tampered := sign(t, b64, buyerPayment)

		_, err = env.svc.SubmitPadding(ctx, res.Id, tampered)
		require.ErrorIs(t, err, domain.ErrPsbtMismatch)
	})

	env.explorer.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)

	txid, err := env.svc.SubmitPadding(ctx, res.Id, signed)
	require.NoError(t, err)
	require.Equal(t, signedPacket.UnsignedTx.TxHash().String(), txid)

	record, err := env.repoManager.TxJournal().Get(ctx, txid)
	require.NoError(t, err)
	require.Equal(t, domain.TxKindPadding, record.Kind)
	require.Equal(t, res.Id, record.RefId)

	// an issued transaction is relayed once
	_, err = env.svc.SubmitPadding(ctx, res.Id, signed)
	require.ErrorIs(t, err, ports.ErrPendingPsbtNotFound)
}

func TestPayout(t *testing.T) {
	env := newTestEnv(t)
	env.explorer.On("GetUtxos", mock.Anything, env.platform.Address()).
		Return(coins("platform", 500000, 300000), nil)

	info, err := env.admin.WalletInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(800000), info.Balance)
	require.Equal(t, int64(800000), info.Confirmed)
	require.Equal(t, 2, info.UtxoCount)
	require.Equal(t, keychain.AddressTypeP2WPKH, info.AddressType)

	t.Run("dry run", func(t *testing.T) {
		res, err := env.admin.TestPayout(ctx, buyerOrdinals.EncodeAddress(), 10000, true)
		require.NoError(t, err)
		require.Equal(t, domain.PayoutDryRun, res.Payout.Status)
		require.NotEmpty(t, res.TxHex)

		tx, err := common.DecodeTx(res.TxHex)
		require.NoError(t, err)
		require.Equal(t, int64(10000), tx.TxOut[0].Value)
		require.Equal(t, buyerOrdinals.PkScript, tx.TxOut[0].PkScript)
		env.explorer.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)

		payouts, err := env.admin.ListPayouts(ctx, domain.PayoutTest)
		require.NoError(t, err)
		require.Len(t, payouts, 1)
	})

	t.Run("failed", func(t *testing.T) {
		env.explorer.On("Broadcast", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: min relay fee not met", ports.ErrTxRejected)).Once()

		_, err := env.admin.PayReward(ctx, buyerOrdinals.EncodeAddress(), 10000)
		require.ErrorIs(t, err, ports.ErrTxRejected)

		payouts, err := env.admin.ListPayouts(ctx, domain.PayoutReward)
		require.NoError(t, err)
		require.Len(t, payouts, 1)
		require.Equal(t, domain.PayoutFailed, payouts[0].Status)
	})

	t.Run("sent", func(t *testing.T) {
		env.explorer.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := env.admin.PayReward(ctx, buyerOrdinals.EncodeAddress(), 10000)
		require.NoError(t, err)
		require.Equal(t, domain.PayoutSent, res.Payout.Status)
		require.NotEmpty(t, res.Payout.Txid)

		record, err := env.repoManager.TxJournal().Get(ctx, res.Payout.Txid)
		require.NoError(t, err)
		require.Equal(t, res.Payout.Id, record.RefId)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := env.admin.PayReward(ctx, buyerOrdinals.EncodeAddress(), 0)
		require.Error(t, err)
		_, err = env.admin.PayReward(ctx, "invalid", 10000)
		require.ErrorIs(t, err, domain.ErrUnsupportedAddress)
	})
}
