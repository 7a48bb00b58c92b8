package httpservice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ordlaunch/launchpad/common/coinselect"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/common/psbtutil"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		domain.ErrMintPhaseNotFound,
		domain.ErrMintRecordNotFound,
		domain.ErrListingNotFound,
		domain.ErrBroadcastNotFound,
		ports.ErrTxNotFound,
		ports.ErrPendingPsbtNotFound,
	}},
	{http.StatusConflict, []error{
		domain.ErrMintPhaseExhausted,
		domain.ErrWalletLimitReached,
		domain.ErrInvalidTransition,
		domain.ErrListingNotActive,
		domain.ErrListingExists,
		domain.ErrStatusConflict,
		domain.ErrUtxoLocked,
	}},
	{http.StatusForbidden, []error{
		domain.ErrNotListingOwner,
	}},
	{http.StatusBadRequest, []error{
		domain.ErrInvalidInput,
		domain.ErrMintPhaseNotOpen,
		domain.ErrInsufficientPadding,
		domain.ErrInvalidSignature,
		domain.ErrPsbtMismatch,
		domain.ErrUnsupportedAddress,
		domain.ErrNothingToPay,
		domain.ErrOutputNotOwned,
		domain.ErrMissingPlatformFee,
		ports.ErrTxRejected,
		coinselect.ErrInsufficientFunds,
		keychain.ErrInvalidMnemonic,
		psbtutil.ErrInvalidPsbt,
		psbtutil.ErrNotFinalized,
		psbtutil.ErrUnsupportedListingInput,
		psbtutil.ErrListingMisaligned,
		psbtutil.ErrInvalidListingSighash,
		psbtutil.ErrListingNotSigned,
		psbtutil.ErrMalformedListing,
		psbtutil.ErrMissingPubKey,
		psbtutil.ErrPubKeyMismatch,
		psbtutil.ErrMissingPrevTx,
		psbtutil.ErrUnsupportedScript,
	}},
}

func statusFromError(err error) int {
	for _, group := range statusByError {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"error": msg}. Internal errors are logged and
// hidden from the caller.
func abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
