package ports

import "github.com/ordlaunch/launchpad/internal/core/domain"

type RepoManager interface {
	MintPhases() domain.MintPhaseRepository
	MintLedger() domain.MintLedger
	Listings() domain.ListingRepository
	Payouts() domain.PayoutRepository
	UtxoLocks() UtxoLocker
	TxJournal() TxJournal
	PendingPsbts() PendingPsbts
	Close()
}
