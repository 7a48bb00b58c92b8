package httpservice

import (
	"github.com/ordlaunch/launchpad/internal/core/application"
	"github.com/ordlaunch/launchpad/internal/core/domain"
)

type payerRequest struct {
	Address string `json:"address" binding:"required"`
	PubKey  string `json:"pubkey"`
}

func (p payerRequest) toPayer() application.Payer {
	return application.Payer{Address: p.Address, PubKey: p.PubKey}
}

type mintRequest struct {
	PhaseId        string       `json:"phase_id" binding:"required"`
	ReceiveAddress string       `json:"receive_address" binding:"required"`
	Payment        payerRequest `json:"payment"`
}

type psbtRequest struct {
	Psbt string `json:"psbt" binding:"required"`
}

type cancelMintRequest struct {
	Reason string `json:"reason"`
}

type listingRequest struct {
	InscriptionId string       `json:"inscription_id" binding:"required"`
	Outpoint      string       `json:"outpoint" binding:"required"`
	Seller        payerRequest `json:"seller"`
	PayoutAddress string       `json:"payout_address" binding:"required"`
	PriceSats     int64        `json:"price_sats" binding:"required,gt=0"`
}

type cancelListingRequest struct {
	SellerAddress string `json:"seller_address" binding:"required"`
}

type purchaseRequest struct {
	ReceiveAddress string       `json:"receive_address" binding:"required"`
	Payment        payerRequest `json:"payment"`
}

type paddingRequest struct {
	Payment payerRequest `json:"payment"`
	Count   int          `json:"count"`
}

type submitPaddingRequest struct {
	Id   string `json:"id" binding:"required"`
	Psbt string `json:"psbt" binding:"required"`
}

type mintPhaseRequest struct {
	CollectionId   string `json:"collection_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	PriceSats      int64  `json:"price_sats"`
	PayoutAddress  string `json:"payout_address"`
	Allocation     int64  `json:"allocation" binding:"required,gt=0"`
	PerWalletLimit int64  `json:"per_wallet_limit"`
	StartsAt       int64  `json:"starts_at"`
	EndsAt         int64  `json:"ends_at"`
}

type payoutRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	DryRun  bool   `json:"dry_run"`
}

type mintPhaseResponse struct {
	Id             string `json:"id"`
	CollectionId   string `json:"collection_id"`
	Name           string `json:"name"`
	PriceSats      int64  `json:"price_sats"`
	PayoutAddress  string `json:"payout_address,omitempty"`
	Allocation     int64  `json:"allocation"`
	Minted         int64  `json:"minted"`
	Remaining      int64  `json:"remaining"`
	PerWalletLimit int64  `json:"per_wallet_limit"`
	StartsAt       int64  `json:"starts_at"`
	EndsAt         int64  `json:"ends_at,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

func toMintPhaseResponse(p domain.MintPhase) mintPhaseResponse {
	return mintPhaseResponse{
		Id:             p.Id,
		CollectionId:   p.CollectionId,
		Name:           p.Name,
		PriceSats:      p.PriceSats,
		PayoutAddress:  p.PayoutAddress,
		Allocation:     p.Allocation,
		Minted:         p.Minted,
		Remaining:      p.Remaining(),
		PerWalletLimit: p.PerWalletLimit,
		StartsAt:       p.StartsAt,
		EndsAt:         p.EndsAt,
		CreatedAt:      p.CreatedAt,
	}
}

type mintRecordResponse struct {
	Id            string `json:"id"`
	PhaseId       string `json:"phase_id"`
	WalletAddress string `json:"wallet_address"`
	Status        string `json:"status"`
	Psbt          string `json:"psbt,omitempty"`
	Txid          string `json:"txid,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

func toMintRecordResponse(r domain.MintRecord) mintRecordResponse {
	return mintRecordResponse{
		Id:            r.Id,
		PhaseId:       r.PhaseId,
		WalletAddress: r.WalletAddress,
		Status:        string(r.Status),
		Psbt:          r.Psbt,
		Txid:          r.Txid,
		Error:         r.Error,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type psbtResponse struct {
	Id           string `json:"id,omitempty"`
	Psbt         string `json:"psbt"`
	Fee          int64  `json:"fee"`
	InputsToSign []int  `json:"inputs_to_sign"`
}

type mintResponse struct {
	Record mintRecordResponse `json:"record"`
	psbtResponse
}

type listingResponse struct {
	Id                  string `json:"id"`
	InscriptionId       string `json:"inscription_id"`
	SellerAddress       string `json:"seller_address"`
	SellerPayoutAddress string `json:"seller_payout_address"`
	Outpoint            string `json:"outpoint"`
	Value               int64  `json:"value"`
	PriceSats           int64  `json:"price_sats"`
	Psbt                string `json:"psbt"`
	Status              string `json:"status"`
	BuyerAddress        string `json:"buyer_address,omitempty"`
	Txid                string `json:"txid,omitempty"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		Id:                  l.Id,
		InscriptionId:       l.InscriptionId,
		SellerAddress:       l.SellerAddress,
		SellerPayoutAddress: l.SellerPayoutAddress,
		Outpoint:            l.Outpoint.String(),
		Value:               l.Value,
		PriceSats:           l.PriceSats,
		Psbt:                l.Psbt,
		Status:              string(l.Status),
		BuyerAddress:        l.BuyerAddress,
		Txid:                l.Txid,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

type payoutResponse struct {
	Id        string `json:"id"`
	Kind      string `json:"kind"`
	Address   string `json:"address"`
	Amount    int64  `json:"amount"`
	Txid      string `json:"txid,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	TxHex     string `json:"tx_hex,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toPayoutResponse(p domain.Payout, txHex string) payoutResponse {
	return payoutResponse{
		Id:        p.Id,
		Kind:      string(p.Kind),
		Address:   p.Address,
		Amount:    p.Amount,
		Txid:      p.Txid,
		Status:    string(p.Status),
		Error:     p.Error,
		TxHex:     txHex,
		CreatedAt: p.CreatedAt,
	}
}

type broadcastResponse struct {
	Txid      string `json:"txid"`
	Hex       string `json:"hex"`
	Kind      string `json:"kind"`
	RefId     string `json:"ref_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toBroadcastResponse(r domain.BroadcastRecord) broadcastResponse {
	return broadcastResponse{
		Txid:      r.Txid,
		Hex:       r.Hex,
		Kind:      string(r.Kind),
		RefId:     r.RefId,
		CreatedAt: r.CreatedAt,
	}
}

type walletResponse struct {
	Address     string `json:"address"`
	AddressType string `json:"address_type"`
	Network     string `json:"network"`
	Balance     int64  `json:"balance"`
	Confirmed   int64  `json:"confirmed"`
	UtxoCount   int    `json:"utxo_count"`
}

type feesResponse struct {
	Fastest  float64 `json:"fastest"`
	HalfHour float64 `json:"half_hour"`
	Hour     float64 `json:"hour"`
	Economy  float64 `json:"economy"`
	Minimum  float64 `json:"minimum"`
}
