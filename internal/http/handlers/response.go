// Package handlers implements the HTTP endpoints of the storefront and the
// admin console. This file holds the shared response plumbing: a stable JSON
// error envelope, success helpers, and the central mapping from service and
// remote errors to HTTP results.
//
// Every error response carries a machine-readable code plus the request's
// correlation id:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "checkout_in_progress",
//	  "message": "checkout already in progress"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avlonitis/go-shop-backend/internal/catalog"
	"github.com/avlonitis/go-shop-backend/internal/checkout"
	"github.com/avlonitis/go-shop-backend/internal/http/middleware"
	"github.com/avlonitis/go-shop-backend/internal/remote"
	"github.com/avlonitis/go-shop-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// RequestID correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Code is a stable machine-readable string (see errors.go constants).
	Code string `json:"code" example:"not_found"`
	// Message is human-readable and safe to display.
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with a structured error, logging 5xx with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).Str("code", code).Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

// noContent writes HTTP 204.
func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// failFrom maps a service, checkout, catalog, or remote error onto the
// envelope. Unknown errors become 500 without leaking their text.
func failFrom(c *gin.Context, err error) {
	switch {
	// Checkout validation cases.
	case errors.Is(err, checkout.ErrInFlight):
		fail(c, http.StatusConflict, ErrCodeCheckoutInProgress, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNeedsReview),
		errors.Is(err, checkout.ErrCouponRejected):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())

	// Lookup misses.
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())

	// Service-level input validation.
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrReasonRequired),
		errors.Is(err, services.ErrEmptySubject),
		errors.Is(err, services.ErrEmptyBody),
		errors.Is(err, services.ErrZeroCredit),
		errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())

	// Remote taxonomy: endpoint rejections are validation-class, transport
	// and 5xx failures are retryable.
	case errors.Is(err, remote.ErrTransient):
		fail(c, http.StatusBadGateway, ErrCodeRemoteUnavailable, "remote endpoint unavailable, try again")
	default:
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			fail(c, http.StatusBadRequest, ErrCodeRemoteRejected, apiErr.Message)
			return
		}
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("unhandled error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
