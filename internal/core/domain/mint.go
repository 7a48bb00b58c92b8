package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MintPhase struct {
	Id             string
	CollectionId   string
	Name           string
	PriceSats      int64
	PayoutAddress  string
	Allocation     int64
	Minted         int64
	PerWalletLimit int64
	StartsAt       int64
	EndsAt         int64
	CreatedAt      int64
}

func NewMintPhase(
	collectionId, name, payoutAddress string,
	priceSats, allocation, perWalletLimit, startsAt, endsAt int64,
) (*MintPhase, error) {
	p := &MintPhase{
		Id:             uuid.New().String(),
		CollectionId:   collectionId,
		Name:           name,
		PriceSats:      priceSats,
		PayoutAddress:  payoutAddress,
		Allocation:     allocation,
		PerWalletLimit: perWalletLimit,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		CreatedAt:      time.Now().Unix(),
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// IsOpen reports whether minting is allowed at the given unix time. A zero
// EndsAt leaves the phase open ended.
func (p MintPhase) IsOpen(now int64) bool {
	if now < p.StartsAt {
		return false
	}
	return p.EndsAt == 0 || now < p.EndsAt
}

func (p MintPhase) Remaining() int64 {
	if p.Minted >= p.Allocation {
		return 0
	}
	return p.Allocation - p.Minted
}

func (p MintPhase) validate() error {
	if len(p.CollectionId) <= 0 {
		return fmt.Errorf("%w: missing collection id", ErrInvalidInput)
	}
	if len(p.Name) <= 0 {
		return fmt.Errorf("%w: missing phase name", ErrInvalidInput)
	}
	if p.PriceSats < 0 {
		return fmt.Errorf("%w: invalid price %d", ErrInvalidInput, p.PriceSats)
	}
	if p.PriceSats > 0 && len(p.PayoutAddress) <= 0 {
		return fmt.Errorf("%w: missing payout address for paid phase", ErrInvalidInput)
	}
	if p.Allocation <= 0 {
		return fmt.Errorf("%w: allocation must be positive", ErrInvalidInput)
	}
	if p.PerWalletLimit < 0 {
		return fmt.Errorf("%w: invalid per wallet limit %d", ErrInvalidInput, p.PerWalletLimit)
	}
	if p.EndsAt > 0 && p.EndsAt <= p.StartsAt {
		return fmt.Errorf("%w: phase must end after it starts", ErrInvalidInput)
	}
	return nil
}

type MintStatus string

const (
	MintPending           MintStatus = "pending"
	MintAwaitingSignature MintStatus = "awaiting_signature"
	MintBroadcasting      MintStatus = "broadcasting"
	MintConfirmed         MintStatus = "confirmed"
	MintCancelled         MintStatus = "cancelled"
)

var mintTransitions = map[MintStatus][]MintStatus{
	MintPending:           {MintAwaitingSignature, MintCancelled},
	MintAwaitingSignature: {MintBroadcasting, MintCancelled},
	MintBroadcasting:      {MintConfirmed, MintAwaitingSignature, MintCancelled},
}

func (s MintStatus) CanTransitionTo(next MintStatus) bool {
	for _, allowed := range mintTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MintStatus) IsFinal() bool {
	return s == MintConfirmed || s == MintCancelled
}

// MintRecord tracks one claimed slot of a mint phase. While the record is
// not final it holds one unit of the phase allocation and one unit of the
// wallet quota.
type MintRecord struct {
	Id            string
	PhaseId       string
	WalletAddress string
	Status        MintStatus
	Psbt          string
	Txid          string
	Error         string
	CreatedAt     int64
	UpdatedAt     int64
}

func NewMintRecord(phaseId, walletAddress string) (*MintRecord, error) {
	if len(phaseId) <= 0 {
		return nil, fmt.Errorf("missing phase id")
	}
	if len(walletAddress) <= 0 {
		return nil, fmt.Errorf("missing wallet address")
	}
	now := time.Now().Unix()
	return &MintRecord{
		Id:            uuid.New().String(),
		PhaseId:       phaseId,
		WalletAddress: walletAddress,
		Status:        MintPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *MintRecord) AwaitSignature(psbt string) error {
	if err := r.transition(MintAwaitingSignature); err != nil {
		return err
	}
	r.Psbt = psbt
	return nil
}

func (r *MintRecord) Broadcast() error {
	return r.transition(MintBroadcasting)
}

func (r *MintRecord) Confirm(txid string) error {
	if err := r.transition(MintConfirmed); err != nil {
		return err
	}
	r.Txid = txid
	return nil
}

func (r *MintRecord) Cancel(reason string) error {
	if err := r.transition(MintCancelled); err != nil {
		return err
	}
	r.Error = reason
	return nil
}

func (r *MintRecord) transition(next MintStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = time.Now().Unix()
	return nil
}
