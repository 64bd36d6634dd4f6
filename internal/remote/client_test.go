package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/auth"
	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// newServer serves one handler and returns a client pointed at it.
func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), zerolog.Nop())
}

func TestCall_PostsJSONToFunctionPath(t *testing.T) {
	var gotPath, gotMethod, gotCT string
	var gotBody map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"granted": true})
	})

	granted, err := c.AuthorizeAdmin(context.Background(), auth.Identity{UserID: "u1", Email: "a@b.c"})
	if err != nil || !granted {
		t.Fatalf("AuthorizeAdmin = %v, %v", granted, err)
	}
	if gotPath != "/authCheck" || gotMethod != http.MethodPost {
		t.Fatalf("request = %s %s; want POST /authCheck", gotMethod, gotPath)
	}
	if gotCT != "application/json" {
		t.Fatalf("content type = %q", gotCT)
	}
	if gotBody["user_id"] != "u1" || gotBody["email"] != "a@b.c" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestCall_ServerFailureIsTransient(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.ListProducts(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("5xx error = %v; want ErrTransient", err)
	}
}

func TestCall_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close() // nothing listens anymore

	c := New(base, nil, zerolog.Nop())
	_, err := c.ListProducts(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("transport error = %v; want ErrTransient", err)
	}
}

func TestCall_ClientRejectionIsAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "invalid_quantity",
			"message": "quantity must be positive",
		})
	})

	err := c.SetStock(context.Background(), "P1", -1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("4xx error = %v; want *APIError", err)
	}
	if apiErr.Status != 422 || apiErr.Code != "invalid_quantity" {
		t.Fatalf("APIError = %+v", apiErr)
	}
	if errors.Is(err, ErrTransient) {
		t.Fatalf("validation rejection classified as transient")
	}
}

func TestCall_MalformedReplyIsTransient(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{truncated"))
	})

	_, err := c.ListProducts(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("decode error = %v; want ErrTransient", err)
	}
}

func TestValidateCoupon(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "percent": 12.5})
		})
		pct, err := c.ValidateCoupon(context.Background(), "SAVE")
		if err != nil || pct != 12.5 {
			t.Fatalf("ValidateCoupon = %v, %v", pct, err)
		}
	})

	t.Run("rejected body", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"valid": false})
		})
		if _, err := c.ValidateCoupon(context.Background(), "NOPE"); !errors.Is(err, ErrInvalidCoupon) {
			t.Fatalf("ValidateCoupon = %v; want ErrInvalidCoupon", err)
		}
	})

	t.Run("rejected status", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		if _, err := c.ValidateCoupon(context.Background(), "NOPE"); !errors.Is(err, ErrInvalidCoupon) {
			t.Fatalf("ValidateCoupon(4xx) = %v; want ErrInvalidCoupon", err)
		}
	})

	t.Run("endpoint down", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		if _, err := c.ValidateCoupon(context.Background(), "SAVE"); !errors.Is(err, ErrTransient) {
			t.Fatalf("ValidateCoupon(5xx) = %v; want ErrTransient", err)
		}
	})
}

func TestCreateOrder_RoundtripsIntent(t *testing.T) {
	var got domain.OrderIntent
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/createOrder" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"order_id": "o-77"})
	})

	intent := domain.OrderIntent{
		UserEmail: "jo@example.com",
		Lines:     []domain.OrderLine{{ProductID: "G1/V2", Quantity: 2}},
	}
	id, err := c.CreateOrder(context.Background(), intent)
	if err != nil || id != "o-77" {
		t.Fatalf("CreateOrder = %q, %v", id, err)
	}
	if got.UserEmail != "jo@example.com" || got.Lines[0].ProductID != "G1/V2" {
		t.Fatalf("server saw intent %+v", got)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]domain.CatalogEntry{})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"///", srv.Client(), zerolog.Nop())
	if _, err := c.ListProducts(context.Background()); err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if gotPath != "/listProducts" {
		t.Fatalf("path = %q; want /listProducts", gotPath)
	}
}
