package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrMintPhaseNotFound   = errors.New("mint phase not found")
	ErrMintPhaseExhausted  = errors.New("mint phase allocation exhausted")
	ErrWalletLimitReached  = errors.New("wallet mint limit reached")
	ErrMintPhaseNotOpen    = errors.New("mint phase is not open")
	ErrMintRecordNotFound  = errors.New("mint record not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingNotActive    = errors.New("listing is not active")
	ErrListingExists       = errors.New("an open listing already exists for this output")
	ErrStatusConflict      = errors.New("record was updated concurrently")
	ErrUtxoLocked          = errors.New("utxo is reserved by another transaction")
	ErrBroadcastNotFound   = errors.New("broadcast record not found")
	ErrInsufficientPadding = errors.New("not enough padding utxos")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrPsbtMismatch        = errors.New("psbt does not match the one issued")
	ErrUnsupportedAddress  = errors.New("unsupported address")
	ErrNothingToPay        = errors.New("transaction has no payment output")
	ErrOutputNotOwned      = errors.New("output is not an unspent coin of the seller")
	ErrNotListingOwner     = errors.New("address does not own the listing")
	ErrMissingPlatformFee  = errors.New("transaction does not pay the platform fee")
)
