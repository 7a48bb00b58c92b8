package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ordlaunch/launchpad/internal/core/application"
	interfaces "github.com/ordlaunch/launchpad/internal/interface"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type service struct {
	config Config
	appSvc application.Service
	server *http.Server
}

func NewService(
	svcConfig Config, appSvc application.Service, adminSvc application.AdminService,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}

	server := &http.Server{
		Addr:              svcConfig.address(),
		Handler:           NewHandler(svcConfig, appSvc, adminSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &service{svcConfig, appSvc, server}, nil
}

// NewHandler returns the gin engine serving the public api under /v1 and
// the operator api under /admin.
func NewHandler(
	svcConfig Config, appSvc application.Service, adminSvc application.AdminService,
) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	if log.IsLevelEnabled(log.DebugLevel) {
		router.Use(gin.Logger())
	}
	if !svcConfig.NoMetrics {
		router.Use(observeHTTP)
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	h := &handler{appSvc, adminSvc}
	router.GET("/health", h.health)

	v1 := router.Group("/v1")
	v1.GET("/fees", h.getFees)
	v1.GET("/phases/:id", h.getMintPhase)
	v1.POST("/mints", h.mint)
	v1.GET("/mints/:id", h.getMintRecord)
	v1.POST("/mints/:id/confirm", h.confirmMint)
	v1.POST("/mints/:id/cancel", h.cancelMint)
	v1.GET("/listings", h.listListings)
	v1.POST("/listings", h.createListing)
	v1.GET("/listings/:id", h.getListing)
	v1.POST("/listings/:id/signature", h.submitListingSignature)
	v1.POST("/listings/:id/cancel", h.cancelListing)
	v1.POST("/listings/:id/purchase", h.preparePurchase)
	v1.POST("/listings/:id/purchase/complete", h.completePurchase)
	v1.POST("/padding", h.preparePadding)
	v1.POST("/padding/submit", h.submitPadding)

	admin := router.Group("/admin", gin.BasicAuth(gin.Accounts{
		svcConfig.AuthUser: svcConfig.AuthPass,
	}))
	admin.POST("/phases", h.createMintPhase)
	admin.GET("/phases", h.listMintPhases)
	admin.GET("/wallet", h.walletInfo)
	admin.POST("/payouts/reward", h.payReward)
	admin.POST("/payouts/test", h.testPayout)
	admin.GET("/payouts", h.listPayouts)
	admin.GET("/broadcasts", h.listBroadcasts)
	admin.GET("/broadcasts/:txid", h.getBroadcast)

	return router
}

func (s *service) Start() error {
	if err := s.appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped unexpectedly")
		}
	}()
	log.Infof("started listening at %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to shutdown http server")
	}
	log.Info("stopped http server")

	s.appSvc.Stop()
	log.Info("stopped app service")
}
