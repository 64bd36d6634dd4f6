package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/avlonitis/go-shop-backend/internal/checkout"
	"github.com/avlonitis/go-shop-backend/internal/remote"
)

func TestFail_EnvelopeCarriesRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	})

	w := doJSON(r, http.MethodGet, "/x", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.RequestID != "rid-1" || body.Code != ErrCodeNotFound || body.Message != "nope" {
		t.Fatalf("body = %+v", body)
	}
}

func TestFailFrom_UnknownErrorHidesText(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		failFrom(c, errors.New("secret database path"))
	})

	w := doJSON(r, http.MethodGet, "/x", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != ErrCodeInternal || body.Message != "internal server error" {
		t.Fatalf("body = %+v; internal detail must not leak", body)
	}
}

func TestFailFrom_WrappedErrorsStillMatch(t *testing.T) {
	r := gin.New()
	r.GET("/conflict", func(c *gin.Context) {
		failFrom(c, errors.Join(errors.New("context"), checkout.ErrInFlight))
	})
	r.GET("/gateway", func(c *gin.Context) {
		failFrom(c, fmt.Errorf("%w: listProducts: connection refused", remote.ErrTransient))
	})

	if w := doJSON(r, http.MethodGet, "/conflict", "", nil); w.Code != http.StatusConflict {
		t.Fatalf("wrapped in-flight = %d; want 409", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/gateway", "", nil); w.Code != http.StatusBadGateway {
		t.Fatalf("wrapped transient = %d; want 502", w.Code)
	}
}

func TestFailFrom_APIErrorUsesItsMessage(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		failFrom(c, &remote.APIError{Code: "invalid_quantity", Message: "quantity too large"})
	})

	w := doJSON(r, http.MethodGet, "/x", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != ErrCodeRemoteRejected || body.Message != "quantity too large" {
		t.Fatalf("body = %+v", body)
	}
}
