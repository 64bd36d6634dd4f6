// Storefront HTTP handlers.
//
// Endpoints:
//   - GET    /catalog                   (visible snapshot, possibly stale)
//   - POST   /catalog/refresh           (pull a fresh snapshot)
//   - GET    /catalog/product?id=...    (simple or composite id lookup)
//   - GET    /catalog/search?q=&k=      (free-text product search)
//   - GET    /cart                      (lines + running total)
//   - POST   /cart/items                (add / merge a line)
//   - PUT    /cart/items                (set quantity; 0 removes)
//   - DELETE /cart/items?id=...         (remove a line)
//   - DELETE /cart                      (clear)
//   - POST   /checkout                  (idempotent order submission)
//   - GET    /orders                    (signed-in user's orders)
//   - POST   /tickets                   (open a support ticket)
//   - GET    /notifications             (live queue)
//   - DELETE /notifications/:id         (dismiss)
//
// Handlers are transport-thin: they validate input, call the session state
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/avlonitis/go-shop-backend/internal/cart"
	"github.com/avlonitis/go-shop-backend/internal/catalog"
	"github.com/avlonitis/go-shop-backend/internal/checkout"
	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/http/middleware"
	"github.com/avlonitis/go-shop-backend/internal/search"
	"github.com/avlonitis/go-shop-backend/internal/services"
	"github.com/avlonitis/go-shop-backend/internal/store"
	"github.com/avlonitis/go-shop-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CatalogService is the catalog cache surface the storefront needs.
type CatalogService interface {
	Refresh(ctx context.Context) ([]domain.CatalogEntry, error)
	Snapshot() []domain.CatalogEntry
	FindByID(id string) (catalog.Hit, error)
}

// CartService is the persisted cart surface.
type CartService interface {
	Add(ctx context.Context, line domain.CartLine)
	Remove(ctx context.Context, productID string)
	SetQuantity(ctx context.Context, productID string, n int)
	Clear(ctx context.Context)
	Lines() []domain.CartLine
	Total() float64
}

// CheckoutService performs the idempotent order submission.
type CheckoutService interface {
	Checkout(ctx context.Context, opts checkout.Options) (checkout.Result, error)
}

// NotificationService exposes the broker to the transport layer.
type NotificationService interface {
	Live() []domain.Notification
	Dismiss(id string)
}

// OrderHistoryService lists the signed-in user's orders.
type OrderHistoryService interface {
	ListForUser(ctx context.Context, userID string) ([]services.OrderView, error)
}

// TicketOpener opens support tickets.
type TicketOpener interface {
	Open(ctx context.Context, userID, subject, body string) (string, error)
}

// Storefront groups the customer-facing endpoints.
type Storefront struct {
	Catalog  CatalogService
	Cart     CartService
	Checkout CheckoutService
	Notify   NotificationService
	Orders   OrderHistoryService
	Tickets  TicketOpener

	// DB and ReceiptTTL back the Idempotency-Key replay path of POST /checkout.
	DB         *gorm.DB
	ReceiptTTL time.Duration

	// Locale selects the display formatting of money amounts. The zero tag
	// renders with und-locale separators, which is fine for tests.
	Locale language.Tag
}

//
// Catalog
//

// ListCatalog serves the current snapshot without touching the network.
func (h *Storefront) ListCatalog(c *gin.Context) {
	ok(c, http.StatusOK, h.Catalog.Snapshot())
}

// RefreshCatalog pulls a fresh snapshot; on failure the stale snapshot is
// returned with a 200 so the storefront keeps rendering.
func (h *Storefront) RefreshCatalog(c *gin.Context) {
	entries, err := h.Catalog.Refresh(c.Request.Context())
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Msg("catalog refresh failed, serving stale")
		ok(c, http.StatusOK, gin.H{"stale": true, "entries": h.Catalog.Snapshot()})
		return
	}
	ok(c, http.StatusOK, gin.H{"stale": false, "entries": entries})
}

// GetProduct resolves a simple or composite product id from the snapshot.
func (h *Storefront) GetProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id query parameter is required")
		return
	}
	hit, err := h.Catalog.FindByID(id)
	if err != nil {
		failFrom(c, err)
		return
	}
	body := gin.H{"product": hit.Entry}
	if hit.Parent != nil {
		body["group"] = hit.Parent
	}
	ok(c, http.StatusOK, body)
}

// SearchCatalog ranks snapshot products against a free-text query.
func (h *Storefront) SearchCatalog(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q query parameter is required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 10)
	idx := search.NewIndex(h.Catalog.Snapshot())
	ok(c, http.StatusOK, idx.TopK(q, k))
}

//
// Cart
//

// AddCartItemRequest is the JSON payload for adding a line.
type AddCartItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	GroupID   string  `json:"group_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

// SetQuantityRequest is the JSON payload for updating a line quantity.
type SetQuantityRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// cartBody renders the cart with its running total. The raw total stays
// unrounded; total_display is the only place rounding happens.
func (h *Storefront) cartBody() gin.H {
	total := h.Cart.Total()
	return gin.H{
		"lines":         h.Cart.Lines(),
		"total":         total,
		"total_display": cart.FormatAmount(h.Locale, total),
	}
}

// GetCart returns the persisted cart.
func (h *Storefront) GetCart(c *gin.Context) {
	ok(c, http.StatusOK, h.cartBody())
}

// AddCartItem merges a line into the cart. Missing display fields (title,
// price, image) are backfilled from the catalog snapshot when the product
// resolves.
func (h *Storefront) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	line := domain.CartLine{
		ProductID: req.ProductID,
		GroupID:   req.GroupID,
		Title:     req.Title,
		Price:     req.Price,
		ImageURL:  req.ImageURL,
		Quantity:  req.Quantity,
	}
	if hit, err := h.Catalog.FindByID(req.ProductID); err == nil {
		if line.Title == "" {
			line.Title = hit.Entry.Title
		}
		if line.Price == 0 {
			line.Price = hit.Entry.Price
		}
		if line.ImageURL == "" {
			line.ImageURL = hit.Entry.ImageURL
		}
		if hit.Parent != nil && line.GroupID == "" {
			line.GroupID = hit.Parent.ID
		}
	}
	h.Cart.Add(c.Request.Context(), line)
	ok(c, http.StatusOK, h.cartBody())
}

// SetCartQuantity updates one line; zero or negative removes it.
func (h *Storefront) SetCartQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	h.Cart.SetQuantity(c.Request.Context(), req.ProductID, req.Quantity)
	ok(c, http.StatusOK, h.cartBody())
}

// RemoveCartItem removes a line by product id.
func (h *Storefront) RemoveCartItem(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id query parameter is required")
		return
	}
	h.Cart.Remove(c.Request.Context(), id)
	ok(c, http.StatusOK, h.cartBody())
}

// ClearCart empties the cart.
func (h *Storefront) ClearCart(c *gin.Context) {
	h.Cart.Clear(c.Request.Context())
	noContent(c)
}

//
// Checkout
//

// CheckoutRequest is the JSON payload for POST /checkout.
type CheckoutRequest struct {
	UserEmail       string `json:"user_email" binding:"required,email"`
	PaymentMethod   string `json:"payment_method" binding:"required"`
	CouponCode      string `json:"coupon_code"`
	AcceptFullPrice bool   `json:"accept_full_price"`
}

// SubmitCheckout runs the checkout flow. A client-supplied Idempotency-Key
// header makes retries safe across process restarts: a replayed key answers
// with the original order id and never re-submits.
func (h *Storefront) SubmitCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	if idemKey != "" && h.DB != nil {
		if rec, err := store.GetReceipt(ctx, h.DB, userID, idemKey, time.Now().UTC()); err == nil {
			ok(c, http.StatusOK, gin.H{"order_id": rec.OrderID, "replayed": true})
			return
		}
	}

	res, err := h.Checkout.Checkout(ctx, checkout.Options{
		UserEmail:       req.UserEmail,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		AcceptFullPrice: req.AcceptFullPrice,
		ClientMetadata: map[string]string{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"user_id":    userID,
		},
	})
	if err != nil {
		failFrom(c, err)
		return
	}

	if idemKey != "" && h.DB != nil {
		if _, err := store.CreateReceipt(ctx, h.DB, userID, idemKey, res.OrderID, h.ReceiptTTL); err != nil && err != store.ErrDuplicate {
			lg := middleware.LoggerFrom(c)
			lg.Error().Err(err).Msg("checkout receipt write failed")
		}
	}
	ok(c, http.StatusCreated, gin.H{
		"order_id":         res.OrderID,
		"discount_percent": res.DiscountPercent,
		"total":            res.Total,
		"total_display":    cart.FormatAmount(h.Locale, res.Total),
	})
}

//
// Orders, tickets, notifications
//

// ListMyOrders returns the signed-in user's order history, served from the
// durable fallback when the endpoint is unreachable.
func (h *Storefront) ListMyOrders(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "sign in to view orders")
		return
	}
	views, err := h.Orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

// OpenTicketRequest is the JSON payload for POST /tickets.
type OpenTicketRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// OpenTicket creates a support ticket for the signed-in user.
func (h *Storefront) OpenTicket(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "sign in to open a ticket")
		return
	}
	var req OpenTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	id, err := h.Tickets.Open(c.Request.Context(), userID, req.Subject, req.Body)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"ticket_id": id})
}

// ListNotifications returns the live queue, oldest first.
func (h *Storefront) ListNotifications(c *gin.Context) {
	ok(c, http.StatusOK, h.Notify.Live())
}

// DismissNotification removes one notification by id.
func (h *Storefront) DismissNotification(c *gin.Context) {
	h.Notify.Dismiss(c.Param("id"))
	noContent(c)
}
