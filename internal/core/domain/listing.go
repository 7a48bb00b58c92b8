package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ListingStatus string

const (
	ListingPendingSignature ListingStatus = "pending_signature"
	ListingActive           ListingStatus = "active"
	ListingSold             ListingStatus = "sold"
	ListingCancelled        ListingStatus = "cancelled"
)

// Listing is an inscription offered for sale. Psbt holds the seller half
// of the sale, unsigned until the seller submits a signature.
type Listing struct {
	Id                  string
	InscriptionId       string
	SellerAddress       string
	SellerPayoutAddress string
	Outpoint            Outpoint
	Value               int64
	PriceSats           int64
	Psbt                string
	Status              ListingStatus
	BuyerAddress        string
	Txid                string
	CreatedAt           int64
	UpdatedAt           int64
}

func NewListing(
	inscriptionId, sellerAddress, payoutAddress string,
	outpoint Outpoint, value, price int64,
) (*Listing, error) {
	now := time.Now().Unix()
	l := &Listing{
		Id:                  uuid.New().String(),
		InscriptionId:       inscriptionId,
		SellerAddress:       sellerAddress,
		SellerPayoutAddress: payoutAddress,
		Outpoint:            outpoint,
		Value:               value,
		PriceSats:           price,
		Status:              ListingPendingSignature,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listing) Activate(signedPsbt string) error {
	if l.Status != ListingPendingSignature {
		return fmt.Errorf("%w: listing is %s", ErrInvalidTransition, l.Status)
	}
	l.Psbt = signedPsbt
	l.Status = ListingActive
	l.UpdatedAt = time.Now().Unix()
	return nil
}

func (l *Listing) Sell(buyerAddress, txid string) error {
	if l.Status != ListingActive {
		return fmt.Errorf("%w: listing is %s", ErrListingNotActive, l.Status)
	}
	l.BuyerAddress = buyerAddress
	l.Txid = txid
	l.Status = ListingSold
	l.UpdatedAt = time.Now().Unix()
	return nil
}

func (l *Listing) Cancel() error {
	if l.Status == ListingSold || l.Status == ListingCancelled {
		return fmt.Errorf("%w: listing is %s", ErrInvalidTransition, l.Status)
	}
	l.Status = ListingCancelled
	l.UpdatedAt = time.Now().Unix()
	return nil
}

func (l Listing) validate() error {
	if len(l.SellerAddress) <= 0 {
		return fmt.Errorf("%w: missing seller address", ErrInvalidInput)
	}
	if len(l.SellerPayoutAddress) <= 0 {
		return fmt.Errorf("%w: missing seller payout address", ErrInvalidInput)
	}
	if len(l.Outpoint.Txid) != 64 {
		return fmt.Errorf("%w: invalid outpoint txid %s", ErrInvalidInput, l.Outpoint.Txid)
	}
	if l.Value <= 0 {
		return fmt.Errorf("%w: invalid inscription output value %d", ErrInvalidInput, l.Value)
	}
	if l.PriceSats <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	return nil
}
