package http

import (
	"errors"
	gohttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/http/httputil"
)

// respondError translates service-layer errors into HTTP responses. Typed
// HttpError values pass through with their own status and code; domain
// sentinels map onto the closest status; anything else is a 500.
func respondError(c *gin.Context, err error) {
	var httpErr *common.HttpError
	if errors.As(err, &httpErr) {
		httputil.ErrorWithCode(c, httpErr.StatusCode, httpErr.Code, httpErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrMerchantNotFound):
		httputil.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrMerchantFrozen),
		errors.Is(err, domain.ErrProtocolPaused):
		httputil.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrInvalidBasisPoints),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrAssetNotAccepted),
		errors.Is(err, domain.ErrMissingMinOut):
		httputil.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotTradable):
		httputil.ErrorWithCode(c, gohttp.StatusUnprocessableEntity, "ROUTE_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrNetworkUnavailable),
		errors.Is(err, domain.ErrProtocolNotInitialized):
		httputil.ServiceUnavailable(c, err.Error())
	default:
		httputil.InternalError(c, err.Error())
	}
}
