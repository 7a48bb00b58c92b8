package domain

import "context"

type MintPhaseRepository interface {
	AddMintPhase(ctx context.Context, phase MintPhase) error
	GetMintPhase(ctx context.Context, id string) (*MintPhase, error)
	ListMintPhases(ctx context.Context, collectionId string) ([]MintPhase, error)
	Close()
}

// MintLedger owns the allocation counters. Claim and Release are the only
// operations that move them and they always move together.
type MintLedger interface {
	// Claim reserves one unit of the phase allocation and of the wallet
	// quota, then stores the record as pending, all or nothing. A zero
	// walletLimit means no per wallet cap.
	Claim(ctx context.Context, record MintRecord, walletLimit int64) (int64, error)
	// Release cancels a pending or awaiting_signature record and gives back
	// what its claim took. It reports false if the record is broadcasting
	// or already final.
	Release(ctx context.Context, id, reason string) (bool, error)
	// ReleaseRejected is Release for a broadcasting record whose
	// transaction the network refused.
	ReleaseRejected(ctx context.Context, id, reason string) (bool, error)
	MarkAwaitingSignature(ctx context.Context, id, psbt string) error
	// MarkBroadcasting moves an awaiting_signature record out of reach of
	// Release until MarkConfirmed, RevertBroadcasting or ReleaseRejected.
	MarkBroadcasting(ctx context.Context, id string) error
	RevertBroadcasting(ctx context.Context, id string) error
	MarkConfirmed(ctx context.Context, id, txid string) error
	GetMintRecord(ctx context.Context, id string) (*MintRecord, error)
	ListStaleMintRecords(ctx context.Context, updatedBefore int64) ([]MintRecord, error)
	GetWalletMints(ctx context.Context, phaseId, walletAddress string) (int64, error)
	Close()
}

type ListingRepository interface {
	AddListing(ctx context.Context, listing Listing) error
	GetListing(ctx context.Context, id string) (*Listing, error)
	ListListings(ctx context.Context, status ListingStatus) ([]Listing, error)
	// UpdateListing persists listing only if the stored status still is
	// from, returning ErrStatusConflict otherwise.
	UpdateListing(ctx context.Context, listing Listing, from ListingStatus) error
	Close()
}

type PayoutRepository interface {
	AddPayout(ctx context.Context, payout Payout) error
	ListPayouts(ctx context.Context, kind PayoutKind) ([]Payout, error)
	Close()
}
