package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/infrastructure/db/sqlite/sqlc/queries"
)

type listingRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewListingRepository(config ...interface{}) (domain.ListingRepository, error) {
	db, err := dbFromConfig("listing", config...)
	if err != nil {
		return nil, err
	}

	return &listingRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *listingRepository) Close() {
	_ = r.db.Close()
}

func (r *listingRepository) AddListing(ctx context.Context, listing domain.Listing) error {
	err := r.querier.InsertListing(ctx, queries.InsertListingParams{
		ID:                  listing.Id,
		InscriptionID:       listing.InscriptionId,
		SellerAddress:       listing.SellerAddress,
		SellerPayoutAddress: listing.SellerPayoutAddress,
		Txid:                listing.Outpoint.Txid,
		Vout:                int64(listing.Outpoint.VOut),
		Value:               listing.Value,
		PriceSats:           listing.PriceSats,
		Psbt:                listing.Psbt,
		Status:              string(listing.Status),
		BuyerAddress:        listing.BuyerAddress,
		SaleTxid:            listing.Txid,
		CreatedAt:           listing.CreatedAt,
		UpdatedAt:           listing.UpdatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrListingExists
		}
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *listingRepository) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	row, err := r.querier.SelectListing(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	listing := rowToListing(row)
	return &listing, nil
}

func (r *listingRepository) ListListings(
	ctx context.Context, status domain.ListingStatus,
) ([]domain.Listing, error) {
	var (
		rows []queries.Listing
		err  error
	)
	if len(status) > 0 {
		rows, err = r.querier.SelectListingsByStatus(ctx, string(status))
	} else {
		rows, err = r.querier.SelectListings(ctx)
	}
	if err != nil {
		return nil, err
	}

	listings := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, rowToListing(row))
	}
	return listings, nil
}

func (r *listingRepository) UpdateListing(
	ctx context.Context, listing domain.Listing, from domain.ListingStatus,
) error {
	count, err := r.querier.UpdateListing(ctx, queries.UpdateListingParams{
		Psbt:         listing.Psbt,
		Status:       string(listing.Status),
		BuyerAddress: listing.BuyerAddress,
		SaleTxid:     listing.Txid,
		UpdatedAt:    listing.UpdatedAt,
		ID:           listing.Id,
		Status_2:     string(from),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrListingExists
		}
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if count == 0 {
		if _, err := r.GetListing(ctx, listing.Id); err != nil {
			return err
		}
		return domain.ErrStatusConflict
	}
	return nil
}

func rowToListing(row queries.Listing) domain.Listing {
	return domain.Listing{
		Id:                  row.ID,
		InscriptionId:       row.InscriptionID,
		SellerAddress:       row.SellerAddress,
		SellerPayoutAddress: row.SellerPayoutAddress,
		Outpoint: domain.Outpoint{
			Txid: row.Txid,
			VOut: uint32(row.Vout),
		},
		Value:        row.Value,
		PriceSats:    row.PriceSats,
		Psbt:         row.Psbt,
		Status:       domain.ListingStatus(row.Status),
		BuyerAddress: row.BuyerAddress,
		Txid:         row.SaleTxid,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
