package httpservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ordlaunch/launchpad/internal/core/application"
	"github.com/ordlaunch/launchpad/internal/core/domain"
)

type handler struct {
	appSvc   application.Service
	adminSvc application.AdminService
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) getFees(c *gin.Context) {
	rates, err := h.appSvc.GetFeeRates(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, feesResponse{
		Fastest:  rates.Fastest,
		HalfHour: rates.HalfHour,
		Hour:     rates.Hour,
		Economy:  rates.Economy,
		Minimum:  rates.Minimum,
	})
}

func (h *handler) getMintPhase(c *gin.Context) {
	phase, err := h.appSvc.GetMintPhase(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMintPhaseResponse(*phase))
}

func (h *handler) mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.appSvc.Mint(c.Request.Context(), application.MintRequest{
		PhaseId:        req.PhaseId,
		ReceiveAddress: req.ReceiveAddress,
		Payment:        req.Payment.toPayer(),
	})
	mintClaims.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mintResponse{
		Record: toMintRecordResponse(*res.Record),
		psbtResponse: psbtResponse{
			Psbt:         res.Psbt,
			Fee:          res.Fee,
			InputsToSign: res.InputsToSign,
		},
	})
}

func (h *handler) getMintRecord(c *gin.Context) {
	record, err := h.appSvc.GetMintRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMintRecordResponse(*record))
}

func (h *handler) confirmMint(c *gin.Context) {
	var req psbtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.appSvc.ConfirmMint(c.Request.Context(), c.Param("id"), req.Psbt)
	broadcasts.WithLabelValues(string(domain.TxKindMint), outcome(err)).Inc()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMintRecordResponse(*record))
}

func (h *handler) cancelMint(c *gin.Context) {
	var req cancelMintRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err)
		return
	}

	record, err := h.appSvc.CancelMint(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMintRecordResponse(*record))
}

func (h *handler) listListings(c *gin.Context) {
	status := domain.ListingStatus(c.Query("status"))
	listings, err := h.appSvc.ListListings(c.Request.Context(), status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	res := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		res = append(res, toListingResponse(l))
	}
	c.JSON(http.StatusOK, gin.H{"listings": res})
}

func (h *handler) createListing(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listing, err := h.appSvc.CreateListing(c.Request.Context(), application.ListingRequest{
		InscriptionId: req.InscriptionId,
		Outpoint:      req.Outpoint,
		Seller:        req.Seller.toPayer(),
		PayoutAddress: req.PayoutAddress,
		PriceSats:     req.PriceSats,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(*listing))
}

func (h *handler) getListing(c *gin.Context) {
	listing, err := h.appSvc.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(*listing))
}

func (h *handler) submitListingSignature(c *gin.Context) {
	var req psbtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listing, err := h.appSvc.SubmitListingSignature(c.Request.Context(), c.Param("id"), req.Psbt)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(*listing))
}

func (h *handler) cancelListing(c *gin.Context) {
	var req cancelListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listing, err := h.appSvc.CancelListing(c.Request.Context(), c.Param("id"), req.SellerAddress)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(*listing))
}

func (h *handler) preparePurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.appSvc.PreparePurchase(c.Request.Context(), application.PurchaseRequest{
		ListingId:      c.Param("id"),
		ReceiveAddress: req.ReceiveAddress,
		Payment:        req.Payment.toPayer(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, psbtResponse{
		Psbt:         res.Psbt,
		Fee:          res.Fee,
		InputsToSign: res.InputsToSign,
	})
}

func (h *handler) completePurchase(c *gin.Context) {
	var req psbtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listing, err := h.appSvc.CompletePurchase(c.Request.Context(), c.Param("id"), req.Psbt)
	broadcasts.WithLabelValues(string(domain.TxKindPurchase), outcome(err)).Inc()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(*listing))
}

func (h *handler) preparePadding(c *gin.Context) {
	var req paddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.appSvc.PreparePadding(c.Request.Context(), application.PaddingRequest{
		Payment: req.Payment.toPayer(),
		Count:   req.Count,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, psbtResponse{
		Id:           res.Id,
		Psbt:         res.Psbt,
		Fee:          res.Fee,
		InputsToSign: res.InputsToSign,
	})
}

func (h *handler) submitPadding(c *gin.Context) {
	var req submitPaddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	txid, err := h.appSvc.SubmitPadding(c.Request.Context(), req.Id, req.Psbt)
	broadcasts.WithLabelValues(string(domain.TxKindPadding), outcome(err)).Inc()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"txid": txid})
}

func (h *handler) createMintPhase(c *gin.Context) {
	var req mintPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	phase, err := h.adminSvc.CreateMintPhase(c.Request.Context(), application.MintPhaseRequest{
		CollectionId:   req.CollectionId,
		Name:           req.Name,
		PriceSats:      req.PriceSats,
		PayoutAddress:  req.PayoutAddress,
		Allocation:     req.Allocation,
		PerWalletLimit: req.PerWalletLimit,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMintPhaseResponse(*phase))
}

func (h *handler) listMintPhases(c *gin.Context) {
	phases, err := h.adminSvc.ListMintPhases(c.Request.Context(), c.Query("collection"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	res := make([]mintPhaseResponse, 0, len(phases))
	for _, p := range phases {
		res = append(res, toMintPhaseResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"phases": res})
}

func (h *handler) walletInfo(c *gin.Context) {
	info, err := h.adminSvc.WalletInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, walletResponse{
		Address:     info.Address,
		AddressType: info.AddressType.String(),
		Network:     info.Network,
		Balance:     info.Balance,
		Confirmed:   info.Confirmed,
		UtxoCount:   info.UtxoCount,
	})
}

func (h *handler) payReward(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.adminSvc.PayReward(c.Request.Context(), req.Address, req.Amount)
	broadcasts.WithLabelValues(string(domain.TxKindPayout), outcome(err)).Inc()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayoutResponse(res.Payout, res.TxHex))
}

func (h *handler) testPayout(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.adminSvc.TestPayout(c.Request.Context(), req.Address, req.Amount, req.DryRun)
	if !req.DryRun {
		broadcasts.WithLabelValues(string(domain.TxKindPayout), outcome(err)).Inc()
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayoutResponse(res.Payout, res.TxHex))
}

func (h *handler) listPayouts(c *gin.Context) {
	payouts, err := h.adminSvc.ListPayouts(c.Request.Context(), domain.PayoutKind(c.Query("kind")))
	if err != nil {
		abortWithError(c, err)
		return
	}

	res := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		res = append(res, toPayoutResponse(p, ""))
	}
	c.JSON(http.StatusOK, gin.H{"payouts": res})
}

func (h *handler) getBroadcast(c *gin.Context) {
	record, err := h.adminSvc.GetBroadcast(c.Request.Context(), c.Param("txid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBroadcastResponse(*record))
}

func (h *handler) listBroadcasts(c *gin.Context) {
	records, err := h.adminSvc.ListBroadcasts(c.Request.Context(), c.Query("ref"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	res := make([]broadcastResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toBroadcastResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"broadcasts": res})
}
