// Package checkout orchestrates cart, catalog, coupon validation, and the
// remote order endpoint into a single idempotent order submission.
//
// Submission discipline:
//   - An in-flight latch rejects re-entrant calls until the first settles, so
//     duplicate clicks and overlapping events produce exactly one order.
//   - Every cart line is validated against the catalog snapshot first; a line
//     requesting more than the available stock is clamped to the available
//     amount and the submission aborts for review. Checkout never proceeds
//     silently against insufficient stock.
//   - A rejected coupon never falls back to full price silently: the caller
//     must re-confirm with AcceptFullPrice before the order goes out.
//   - The cart is cleared only on confirmed success; on failure it is left
//     untouched and the latch released so the user may retry.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/remote"
)

// Sentinel errors for the predictable validation cases; handlers map them to
// HTTP results.
var (
	// ErrInFlight rejects a submission that overlaps a pending one.
	ErrInFlight = errors.New("checkout already in progress")

	// ErrEmptyCart rejects a submission with nothing to order.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNeedsReview is returned after one or more cart lines were clamped to
	// the available stock; the user must review the adjusted cart.
	ErrNeedsReview = errors.New("cart adjusted to available stock, review before ordering")

	// ErrCouponRejected is returned when the coupon was rejected and the
	// caller has not re-confirmed proceeding at full price.
	ErrCouponRejected = errors.New("coupon rejected, confirm full price to proceed")
)

var attempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(attempts)
}

// Cart is the slice of the cart store the coordinator needs.
type Cart interface {
	Lines() []domain.CartLine
	Total() float64
	SetQuantity(ctx context.Context, productID string, n int)
	Clear(ctx context.Context)
}

// Catalog resolves stock for cart validation. Refresh errors are tolerated;
// the stale snapshot is used instead.
type Catalog interface {
	Refresh(ctx context.Context) ([]domain.CatalogEntry, error)
	AvailableStock(id string) (int, error)
}

// Submitter is the slice of the remote client the coordinator needs.
type Submitter interface {
	CreateOrder(ctx context.Context, intent domain.OrderIntent) (string, error)
	ValidateCoupon(ctx context.Context, code string) (float64, error)
}

// Notifier delivers the user-visible outcome signals.
type Notifier interface {
	Notify(message string, kind domain.NotificationKind)
}

// Options parameterizes one submission attempt.
type Options struct {
	UserEmail     string
	PaymentMethod string
	CouponCode    string

	// AcceptFullPrice must be set by the caller after a coupon rejection was
	// surfaced, to proceed without the discount.
	AcceptFullPrice bool

	ClientMetadata map[string]string
}

// Result is a confirmed submission.
type Result struct {
	OrderID         string  `json:"order_id"`
	DiscountPercent float64 `json:"discount_percent"`
	Total           float64 `json:"total"`
}

// Coordinator performs the checkout flow. Safe for concurrent use; the latch
// serializes submissions per instance.
type Coordinator struct {
	cart    Cart
	catalog Catalog
	remote  Submitter
	notify  Notifier
	log     zerolog.Logger

	inFlight atomic.Bool
}

// New wires a Coordinator.
func New(cart Cart, catalog Catalog, rem Submitter, notify Notifier, log zerolog.Logger) *Coordinator {
	return &Coordinator{cart: cart, catalog: catalog, remote: rem, notify: notify, log: log}
}

// Checkout runs the full submission flow described in the package comment.
func (c *Coordinator) Checkout(ctx context.Context, opts Options) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		attempts.WithLabelValues("rejected_inflight").Inc()
		return Result{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	lines := c.cart.Lines()
	if len(lines) == 0 {
		attempts.WithLabelValues("empty").Inc()
		return Result{}, ErrEmptyCart
	}

	// Freshen the snapshot when the endpoint is reachable; a failure here is
	// tolerable because validation falls back to the stale snapshot.
	if _, err := c.catalog.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("checkout: catalog refresh failed, validating against stale snapshot")
	}

	if c.clampToStock(ctx, lines) {
		attempts.WithLabelValues("needs_review").Inc()
		c.notify.Notify("Some cart quantities were reduced to the available stock. Please review your cart.", domain.KindError)
		return Result{}, ErrNeedsReview
	}

	discount, err := c.resolveDiscount(ctx, opts)
	if err != nil {
		attempts.WithLabelValues("coupon_rejected").Inc()
		return Result{}, err
	}

	total := ApplyDiscount(c.cart.Total(), discount)

	intent := domain.OrderIntent{
		UserEmail:      opts.UserEmail,
		PaymentMethod:  opts.PaymentMethod,
		CouponCode:     opts.CouponCode,
		ClientMetadata: opts.ClientMetadata,
	}
	for _, l := range c.cart.Lines() {
		intent.Lines = append(intent.Lines, domain.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	orderID, err := c.remote.CreateOrder(ctx, intent)
	if err != nil {
		attempts.WithLabelValues("submit_failed").Inc()
		c.log.Error().Err(err).Msg("checkout: order submission failed")
		c.notify.Notify("Order submission failed. Your cart is unchanged, please try again.", domain.KindError)
		return Result{}, fmt.Errorf("submit order: %w", err)
	}

	c.cart.Clear(ctx)
	attempts.WithLabelValues("success").Inc()
	c.notify.Notify("Order placed. Thank you!", domain.KindSuccess)
	c.log.Info().Str("order_id", orderID).Float64("total", total).Msg("checkout: order confirmed")
	return Result{OrderID: orderID, DiscountPercent: discount, Total: total}, nil
}

// clampToStock reduces over-asking lines to the available stock and reports
// whether anything changed. An id that no longer resolves counts as zero
// stock, which removes the line.
func (c *Coordinator) clampToStock(ctx context.Context, lines []domain.CartLine) bool {
	clamped := false
	for _, l := range lines {
		avail, err := c.catalog.AvailableStock(l.ProductID)
		if err != nil {
			avail = 0
		}
		if l.Quantity > avail {
			c.log.Info().Str("product_id", l.ProductID).
				Int("requested", l.Quantity).Int("available", avail).
				Msg("checkout: clamping cart line")
			c.cart.SetQuantity(ctx, l.ProductID, avail)
			clamped = true
		}
	}
	return clamped
}

// resolveDiscount validates the coupon when present. Rejections and endpoint
// failures surface a notification and yield zero discount; without the
// caller's explicit re-confirmation the submission stops there.
func (c *Coordinator) resolveDiscount(ctx context.Context, opts Options) (float64, error) {
	if opts.CouponCode == "" {
		return 0, nil
	}
	percent, err := c.remote.ValidateCoupon(ctx, opts.CouponCode)
	if err == nil {
		return percent, nil
	}

	if errors.Is(err, remote.ErrInvalidCoupon) {
		c.notify.Notify("Coupon code was not accepted.", domain.KindError)
	} else {
		c.log.Warn().Err(err).Msg("checkout: coupon validation failed")
		c.notify.Notify("Coupon could not be verified right now.", domain.KindError)
	}
	if opts.AcceptFullPrice {
		return 0, nil
	}
	return 0, ErrCouponRejected
}

// ApplyDiscount computes the final total for a percentage discount, rounding
// to cents exactly once, at the submission point. Every price shown or
// charged for a discounted cart must come through here.
func ApplyDiscount(total, percent float64) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return math.Round(total*(1-percent/100)*100) / 100
}
