package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPaddingCount = 2
	maxPaddingCount     = 10
	basisPoints         = 10000
)

type service struct {
	funder
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
}

func NewService(
	cfg Config,
	repoManager ports.RepoManager,
	explorer ports.Explorer,
	scheduler ports.SchedulerService,
) (Service, error) {
	if cfg.Network.Params == nil {
		return nil, fmt.Errorf("missing network params")
	}
	if len(cfg.PlatformFeeAddress) > 0 {
		if _, _, _, err := keychain.DecodeAddress(cfg.PlatformFeeAddress, cfg.Network.Params); err != nil {
			return nil, fmt.Errorf("invalid platform fee address: %w", err)
		}
	}
	if cfg.MarketplaceFeeBps < 0 || cfg.MarketplaceFeeBps >= basisPoints {
		return nil, fmt.Errorf("invalid marketplace fee %d bps", cfg.MarketplaceFeeBps)
	}
	if (cfg.MintPlatformFee > 0 || cfg.MarketplaceFeeBps > 0) && len(cfg.PlatformFeeAddress) <= 0 {
		return nil, fmt.Errorf("missing platform fee address")
	}

	return &service{
		funder: funder{
			cfg:       cfg,
			explorer:  explorer,
			utxoLocks: repoManager.UtxoLocks(),
			txJournal: repoManager.TxJournal(),
		},
		repoManager: repoManager,
		scheduler:   scheduler,
	}, nil
}

func (s *service) Start() error {
	if s.scheduler == nil || s.cfg.ExpiryInterval <= 0 {
		return nil
	}
	if err := s.scheduler.ScheduleTask(s.cfg.ExpiryInterval, true, func() {
		if _, err := s.ExpireStaleMints(context.Background()); err != nil {
			log.WithError(err).Warn("failed to expire stale mints")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule mint expiry: %w", err)
	}
	s.scheduler.Start()
	log.Debugf("mint expiry scheduled every %s", s.cfg.ExpiryInterval)
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) GetMintPhase(ctx context.Context, phaseId string) (*domain.MintPhase, error) {
	return s.repoManager.MintPhases().GetMintPhase(ctx, phaseId)
}

func (s *service) GetMintRecord(ctx context.Context, recordId string) (*domain.MintRecord, error) {
	return s.repoManager.MintLedger().GetMintRecord(ctx, recordId)
}

func (s *service) GetListing(ctx context.Context, listingId string) (*domain.Listing, error) {
	return s.repoManager.Listings().GetListing(ctx, listingId)
}

func (s *service) ListListings(
	ctx context.Context, status domain.ListingStatus,
) ([]domain.Listing, error) {
	return s.repoManager.Listings().ListListings(ctx, status)
}

func (s *service) GetFeeRates(ctx context.Context) (*domain.FeeRates, error) {
	return s.explorer.GetFeeRates(ctx)
}

// ExpireStaleMints cancels every mint still unsigned after the signature
// timeout and gives its allocation back.
func (s *service) ExpireStaleMints(ctx context.Context) (int, error) {
	if s.cfg.MintSignatureTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.cfg.MintSignatureTimeout).Unix()
	records, err := s.repoManager.MintLedger().ListStaleMintRecords(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale mints: %w", err)
	}

	expired := 0
	for _, record := range records {
		released, err := s.releaseMint(ctx, record, "signature timeout")
		if err != nil {
			log.WithError(err).WithField("record", record.Id).Warn("failed to expire mint")
			continue
		}
		if released {
			expired++
		}
	}
	if expired > 0 {
		log.Infof("expired %d stale mint(s)", expired)
	}
	return expired, nil
}
