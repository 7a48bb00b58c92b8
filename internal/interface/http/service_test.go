package httpservice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ordlaunch/launchpad/internal/core/application"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	httpservice "github.com/ordlaunch/launchpad/internal/interface/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "admin"
	testPass = "secret"
)

func TestService(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		handler := httpservice.NewHandler(testConfig(), &mockedAppService{}, &mockedAdminService{})
		rec := do(t, handler, http.MethodGet, "/health", nil, false)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mint", func(t *testing.T) {
		appSvc := &mockedAppService{}
		record := domain.MintRecord{
			Id:            "rec",
			PhaseId:       "phase",
			WalletAddress: "bcrt1qreceive",
			Status:        domain.MintAwaitingSignature,
		}
		appSvc.On("Mint", mock.Anything, application.MintRequest{
			PhaseId:        "phase",
			ReceiveAddress: "bcrt1qreceive",
			Payment:        application.Payer{Address: "bcrt1qpay"},
		}).Return(&application.MintResult{
			Record:       &record,
			Psbt:         "cHNidP8B",
			Fee:          420,
			InputsToSign: []int{0},
		}, nil)

		handler := httpservice.NewHandler(testConfig(), appSvc, &mockedAdminService{})
		rec := do(t, handler, http.MethodPost, "/v1/mints", map[string]any{
			"phase_id":        "phase",
			"receive_address": "bcrt1qreceive",
			"payment":         map[string]string{"address": "bcrt1qpay"},
		}, false)
		require.Equal(t, http.StatusCreated, rec.Code)

		var res struct {
			Record struct {
				Id     string `json:"id"`
				Status string `json:"status"`
			} `json:"record"`
			Psbt         string `json:"psbt"`
			Fee          int64  `json:"fee"`
			InputsToSign []int  `json:"inputs_to_sign"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Equal(t, "rec", res.Record.Id)
		require.Equal(t, string(domain.MintAwaitingSignature), res.Record.Status)
		require.Equal(t, "cHNidP8B", res.Psbt)
		require.Equal(t, int64(420), res.Fee)
		require.Equal(t, []int{0}, res.InputsToSign)
		appSvc.AssertExpectations(t)
	})

	t.Run("invalid body", func(t *testing.T) {
		handler := httpservice.NewHandler(testConfig(), &mockedAppService{}, &mockedAdminService{})
		rec := do(t, handler, http.MethodPost, "/v1/mints", map[string]any{
			"phase_id": "phase",
		}, false)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error status", func(t *testing.T) {
		fixtures := []struct {
			name   string
			err    error
			status int
		}{
			{"not found", domain.ErrMintRecordNotFound, http.StatusNotFound},
			{"conflict", domain.ErrMintPhaseExhausted, http.StatusConflict},
			{"forbidden", domain.ErrNotListingOwner, http.StatusForbidden},
			{"wrapped", fmt.Errorf("%w: bad pubkey", domain.ErrInvalidInput), http.StatusBadRequest},
			{"internal", fmt.Errorf("disk full"), http.StatusInternalServerError},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				appSvc := &mockedAppService{}
				appSvc.On("GetMintRecord", mock.Anything, "rec").Return(nil, f.err)

				handler := httpservice.NewHandler(testConfig(), appSvc, &mockedAdminService{})
				rec := do(t, handler, http.MethodGet, "/v1/mints/rec", nil, false)
				require.Equal(t, f.status, rec.Code)

				var res map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				if f.status == http.StatusInternalServerError {
					require.NotContains(t, res["error"], "disk full")
				} else {
					require.Equal(t, f.err.Error(), res["error"])
				}
			})
		}
	})

	t.Run("cancel listing of another seller", func(t *testing.T) {
		appSvc := &mockedAppService{}
		appSvc.On("CancelListing", mock.Anything, "lst", "bcrt1qother").
			Return(nil, domain.ErrNotListingOwner)

		handler := httpservice.NewHandler(testConfig(), appSvc, &mockedAdminService{})
		rec := do(t, handler, http.MethodPost, "/v1/listings/lst/cancel", map[string]any{
			"seller_address": "bcrt1qother",
		}, false)
		require.Equal(t, http.StatusForbidden, rec.Code)
		appSvc.AssertExpectations(t)
	})

	t.Run("padding", func(t *testing.T) {
		appSvc := &mockedAppService{}
		appSvc.On("PreparePadding", mock.Anything, application.PaddingRequest{
			Payment: application.Payer{Address: "bcrt1qpay"},
			Count:   2,
		}).Return(&application.PsbtResult{
			Id:           "padding:1",
			Psbt:         "cHNidP8B",
			Fee:          300,
			InputsToSign: []int{0},
		}, nil)
		appSvc.On("SubmitPadding", mock.Anything, "padding:1", "cHNidP8C").Return("txid", nil)
		appSvc.On("SubmitPadding", mock.Anything, "padding:2", "cHNidP8C").
			Return("", ports.ErrPendingPsbtNotFound)

		handler := httpservice.NewHandler(testConfig(), appSvc, &mockedAdminService{})
		rec := do(t, handler, http.MethodPost, "/v1/padding", map[string]any{
			"payment": map[string]string{"address": "bcrt1qpay"},
			"count":   2,
		}, false)
		require.Equal(t, http.StatusOK, rec.Code)
		var res map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Equal(t, "padding:1", res["id"])

		rec = do(t, handler, http.MethodPost, "/v1/padding/submit", map[string]any{
			"psbt": "cHNidP8C",
		}, false)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, handler, http.MethodPost, "/v1/padding/submit", map[string]any{
			"id": "padding:1", "psbt": "cHNidP8C",
		}, false)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "txid")

		rec = do(t, handler, http.MethodPost, "/v1/padding/submit", map[string]any{
			"id": "padding:2", "psbt": "cHNidP8C",
		}, false)
		require.Equal(t, http.StatusNotFound, rec.Code)
		appSvc.AssertExpectations(t)
	})

	t.Run("broadcasts", func(t *testing.T) {
		adminSvc := &mockedAdminService{}
		record := domain.BroadcastRecord{
			Txid:      "txid",
			Hex:       "0200000000",
			Kind:      domain.TxKindMint,
			RefId:     "rec",
			CreatedAt: 100,
		}
		adminSvc.On("ListBroadcasts", mock.Anything, "rec").
			Return([]domain.BroadcastRecord{record}, nil)
		adminSvc.On("GetBroadcast", mock.Anything, "txid").Return(&record, nil)
		adminSvc.On("GetBroadcast", mock.Anything, "missing").
			Return(nil, domain.ErrBroadcastNotFound)

		handler := httpservice.NewHandler(testConfig(), &mockedAppService{}, adminSvc)

		rec := do(t, handler, http.MethodGet, "/admin/broadcasts?ref=rec", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Broadcasts []struct {
				Txid  string `json:"txid"`
				Kind  string `json:"kind"`
				RefId string `json:"ref_id"`
			} `json:"broadcasts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list.Broadcasts, 1)
		require.Equal(t, "txid", list.Broadcasts[0].Txid)
		require.Equal(t, string(domain.TxKindMint), list.Broadcasts[0].Kind)

		rec = do(t, handler, http.MethodGet, "/admin/broadcasts/txid", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "0200000000")

		rec = do(t, handler, http.MethodGet, "/admin/broadcasts/missing", nil, true)
		require.Equal(t, http.StatusNotFound, rec.Code)
		adminSvc.AssertExpectations(t)
	})

	t.Run("admin auth", func(t *testing.T) {
		adminSvc := &mockedAdminService{}
		adminSvc.On("WalletInfo", mock.Anything).Return(&application.WalletInfo{
			Address: "bcrt1qplatform",
			Network: "regtest",
			Balance: 10000,
		}, nil)
		handler := httpservice.NewHandler(testConfig(), &mockedAppService{}, adminSvc)

		rec := do(t, handler, http.MethodGet, "/admin/wallet", nil, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, handler, http.MethodGet, "/admin/wallet", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "bcrt1qplatform")
		adminSvc.AssertNumberOfCalls(t, "WalletInfo", 1)
	})

	t.Run("metrics", func(t *testing.T) {
		handler := httpservice.NewHandler(testConfig(), &mockedAppService{}, &mockedAdminService{})
		do(t, handler, http.MethodGet, "/health", nil, false)

		rec := do(t, handler, http.MethodGet, "/metrics", nil, false)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.Contains(rec.Body.String(), "ordlaunch_launchpad_http_duration"))

		cfg := testConfig()
		cfg.NoMetrics = true
		handler = httpservice.NewHandler(cfg, &mockedAppService{}, &mockedAdminService{})
		rec = do(t, handler, http.MethodGet, "/metrics", nil, false)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, httpservice.Config{Port: 0, AuthUser: testUser, AuthPass: testPass}.Validate())
	require.Error(t, httpservice.Config{Port: 18080}.Validate())
	require.NoError(t, testConfig().Validate())
}

func testConfig() httpservice.Config {
	return httpservice.Config{Port: 18080, AuthUser: testUser, AuthPass: testPass}
}

func do(
	t *testing.T, handler http.Handler, method, path string, body any, auth bool,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.SetBasicAuth(testUser, testPass)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type mockedAppService struct {
	mock.Mock
}

func (m *mockedAppService) Start() error { return nil }
func (m *mockedAppService) Stop()        {}

func (m *mockedAppService) Mint(
	ctx context.Context, req application.MintRequest,
) (*application.MintResult, error) {
	args := m.Called(ctx, req)
	var res *application.MintResult
	if a := args.Get(0); a != nil {
		res = a.(*application.MintResult)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) ConfirmMint(
	ctx context.Context, recordId, signedPsbt string,
) (*domain.MintRecord, error) {
	args := m.Called(ctx, recordId, signedPsbt)
	return mintRecord(args)
}

func (m *mockedAppService) CancelMint(
	ctx context.Context, recordId, reason string,
) (*domain.MintRecord, error) {
	args := m.Called(ctx, recordId, reason)
	return mintRecord(args)
}

func (m *mockedAppService) GetMintRecord(
	ctx context.Context, recordId string,
) (*domain.MintRecord, error) {
	args := m.Called(ctx, recordId)
	return mintRecord(args)
}

func (m *mockedAppService) GetMintPhase(
	ctx context.Context, phaseId string,
) (*domain.MintPhase, error) {
	args := m.Called(ctx, phaseId)
	var res *domain.MintPhase
	if a := args.Get(0); a != nil {
		res = a.(*domain.MintPhase)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) CreateListing(
	ctx context.Context, req application.ListingRequest,
) (*domain.Listing, error) {
	args := m.Called(ctx, req)
	return listing(args)
}

func (m *mockedAppService) SubmitListingSignature(
	ctx context.Context, listingId, signedPsbt string,
) (*domain.Listing, error) {
	args := m.Called(ctx, listingId, signedPsbt)
	return listing(args)
}

func (m *mockedAppService) CancelListing(
	ctx context.Context, listingId, sellerAddress string,
) (*domain.Listing, error) {
	args := m.Called(ctx, listingId, sellerAddress)
	return listing(args)
}

func (m *mockedAppService) GetListing(
	ctx context.Context, listingId string,
) (*domain.Listing, error) {
	args := m.Called(ctx, listingId)
	return listing(args)
}

func (m *mockedAppService) ListListings(
	ctx context.Context, status domain.ListingStatus,
) ([]domain.Listing, error) {
	args := m.Called(ctx, status)
	var res []domain.Listing
	if a := args.Get(0); a != nil {
		res = a.([]domain.Listing)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) PreparePurchase(
	ctx context.Context, req application.PurchaseRequest,
) (*application.PsbtResult, error) {
	args := m.Called(ctx, req)
	return psbtResult(args)
}

func (m *mockedAppService) CompletePurchase(
	ctx context.Context, listingId, signedPsbt string,
) (*domain.Listing, error) {
	args := m.Called(ctx, listingId, signedPsbt)
	return listing(args)
}

func (m *mockedAppService) PreparePadding(
	ctx context.Context, req application.PaddingRequest,
) (*application.PsbtResult, error) {
	args := m.Called(ctx, req)
	return psbtResult(args)
}

func (m *mockedAppService) SubmitPadding(
	ctx context.Context, paddingId, signedPsbt string,
) (string, error) {
	args := m.Called(ctx, paddingId, signedPsbt)
	return args.String(0), args.Error(1)
}

func (m *mockedAppService) ExpireStaleMints(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockedAppService) GetFeeRates(ctx context.Context) (*domain.FeeRates, error) {
	args := m.Called(ctx)
	var res *domain.FeeRates
	if a := args.Get(0); a != nil {
		res = a.(*domain.FeeRates)
	}
	return res, args.Error(1)
}

type mockedAdminService struct {
	mock.Mock
}

func (m *mockedAdminService) CreateMintPhase(
	ctx context.Context, req application.MintPhaseRequest,
) (*domain.MintPhase, error) {
	args := m.Called(ctx, req)
	var res *domain.MintPhase
	if a := args.Get(0); a != nil {
		res = a.(*domain.MintPhase)
	}
	return res, args.Error(1)
}

func (m *mockedAdminService) ListMintPhases(
	ctx context.Context, collectionId string,
) ([]domain.MintPhase, error) {
	args := m.Called(ctx, collectionId)
	var res []domain.MintPhase
	if a := args.Get(0); a != nil {
		res = a.([]domain.MintPhase)
	}
	return res, args.Error(1)
}

func (m *mockedAdminService) PayReward(
	ctx context.Context, address string, amount int64,
) (*application.PayoutResult, error) {
	args := m.Called(ctx, address, amount)
	return payoutResult(args)
}

func (m *mockedAdminService) TestPayout(
	ctx context.Context, address string, amount int64, dryRun bool,
) (*application.PayoutResult, error) {
	args := m.Called(ctx, address, amount, dryRun)
	return payoutResult(args)
}

func (m *mockedAdminService) ListPayouts(
	ctx context.Context, kind domain.PayoutKind,
) ([]domain.Payout, error) {
	args := m.Called(ctx, kind)
	var res []domain.Payout
	if a := args.Get(0); a != nil {
		res = a.([]domain.Payout)
	}
	return res, args.Error(1)
}

func (m *mockedAdminService) GetBroadcast(
	ctx context.Context, txid string,
) (*domain.BroadcastRecord, error) {
	args := m.Called(ctx, txid)
	var res *domain.BroadcastRecord
	if a := args.Get(0); a != nil {
		res = a.(*domain.BroadcastRecord)
	}
	return res, args.Error(1)
}

func (m *mockedAdminService) ListBroadcasts(
	ctx context.Context, refId string,
) ([]domain.BroadcastRecord, error) {
	args := m.Called(ctx, refId)
	var res []domain.BroadcastRecord
	if a := args.Get(0); a != nil {
		res = a.([]domain.BroadcastRecord)
	}
	return res, args.Error(1)
}

func (m *mockedAdminService) WalletInfo(ctx context.Context) (*application.WalletInfo, error) {
	args := m.Called(ctx)
	var res *application.WalletInfo
	if a := args.Get(0); a != nil {
		res = a.(*application.WalletInfo)
	}
	return res, args.Error(1)
}

func mintRecord(args mock.Arguments) (*domain.MintRecord, error) {
	var res *domain.MintRecord
	if a := args.Get(0); a != nil {
		res = a.(*domain.MintRecord)
	}
	return res, args.Error(1)
}

func listing(args mock.Arguments) (*domain.Listing, error) {
	var res *domain.Listing
	if a := args.Get(0); a != nil {
		res = a.(*domain.Listing)
	}
	return res, args.Error(1)
}

func psbtResult(args mock.Arguments) (*application.PsbtResult, error) {
	var res *application.PsbtResult
	if a := args.Get(0); a != nil {
		res = a.(*application.PsbtResult)
	}
	return res, args.Error(1)
}

func payoutResult(args mock.Arguments) (*application.PayoutResult, error) {
	var res *application.PayoutResult
	if a := args.Get(0); a != nil {
		res = a.(*application.PayoutResult)
	}
	return res, args.Error(1)
}
