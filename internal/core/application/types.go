package application

import (
	"context"
	"time"

	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)
	ConfirmMint(ctx context.Context, recordId, signedPsbt string) (*domain.MintRecord, error)
	CancelMint(ctx context.Context, recordId, reason string) (*domain.MintRecord, error)
	GetMintRecord(ctx context.Context, recordId string) (*domain.MintRecord, error)
	GetMintPhase(ctx context.Context, phaseId string) (*domain.MintPhase, error)
	CreateListing(ctx context.Context, req ListingRequest) (*domain.Listing, error)
	SubmitListingSignature(ctx context.Context, listingId, signedPsbt string) (*domain.Listing, error)
	CancelListing(ctx context.Context, listingId, sellerAddress string) (*domain.Listing, error)
	GetListing(ctx context.Context, listingId string) (*domain.Listing, error)
	ListListings(ctx context.Context, status domain.ListingStatus) ([]domain.Listing, error)
	PreparePurchase(ctx context.Context, req PurchaseRequest) (*PsbtResult, error)
	CompletePurchase(ctx context.Context, listingId, signedPsbt string) (*domain.Listing, error)
	PreparePadding(ctx context.Context, req PaddingRequest) (*PsbtResult, error)
	SubmitPadding(ctx context.Context, paddingId, signedPsbt string) (string, error)
	ExpireStaleMints(ctx context.Context) (int, error)
	GetFeeRates(ctx context.Context) (*domain.FeeRates, error)
}

type Config struct {
	Network     common.Network
	FeePriority domain.FeePriority
	// MinUtxoValue keeps small coins, likely inscription carriers, out of
	// coin selection.
	MinUtxoValue int64
	PaddingValue int64
	UtxoLockTTL  time.Duration

	MintSignatureTimeout time.Duration
	ExpiryInterval       time.Duration

	PlatformFeeAddress string
	MintPlatformFee    int64
	MarketplaceFeeBps  int64
}

// Payer identifies the wallet funding a transaction. PubKey is the hex
// compressed public key, required for nested segwit addresses and
// recommended for taproot ones.
type Payer struct {
	Address string
	PubKey  string
}

type MintRequest struct {
	PhaseId string
	// ReceiveAddress is the ordinals address the inscription goes to and
	// the identity the wallet quota is counted against.
	ReceiveAddress string
	Payment        Payer
}

type MintResult struct {
	Record       *domain.MintRecord
	Psbt         string
	Fee          int64
	InputsToSign []int
}

type ListingRequest struct {
	InscriptionId string
	// Outpoint is the coin currently carrying the inscription, as txid:vout.
	Outpoint      string
	Seller        Payer
	PayoutAddress string
	PriceSats     int64
}

type PurchaseRequest struct {
	ListingId      string
	ReceiveAddress string
	Payment        Payer
}

type PaddingRequest struct {
	Payment Payer
	Count   int
}

// PsbtResult is a transaction handed to a user for signing. Id is set
// when the submission must reference it.
type PsbtResult struct {
	Id           string
	Psbt         string
	Fee          int64
	InputsToSign []int
}

type AdminService interface {
	CreateMintPhase(ctx context.Context, req MintPhaseRequest) (*domain.MintPhase, error)
	ListMintPhases(ctx context.Context, collectionId string) ([]domain.MintPhase, error)
	PayReward(ctx context.Context, address string, amount int64) (*PayoutResult, error)
	TestPayout(ctx context.Context, address string, amount int64, dryRun bool) (*PayoutResult, error)
	ListPayouts(ctx context.Context, kind domain.PayoutKind) ([]domain.Payout, error)
	GetBroadcast(ctx context.Context, txid string) (*domain.BroadcastRecord, error)
	ListBroadcasts(ctx context.Context, refId string) ([]domain.BroadcastRecord, error)
	WalletInfo(ctx context.Context) (*WalletInfo, error)
}

type MintPhaseRequest struct {
	CollectionId   string
	Name           string
	PriceSats      int64
	PayoutAddress  string
	Allocation     int64
	PerWalletLimit int64
	StartsAt       int64
	EndsAt         int64
}

type PayoutResult struct {
	Payout domain.Payout
	TxHex  string
}

type WalletInfo struct {
	Address     string
	AddressType keychain.AddressType
	Network     string
	Balance     int64
	Confirmed   int64
	UtxoCount   int
}
