// OrderService owns order retrieval and fulfillment for the admin console
// and the customer order history.
//
// Two pieces of local state are maintained durably as orders flow through:
//   - an order-id to user-id index, built incrementally as admin views load
//     orders, so later views can resolve the owner without refetching;
//   - the most recently fetched order list per user, served as an offline
//     fallback when the endpoint is unreachable.
//
// Line titles for historical orders are resolved against the catalog
// snapshot, which works offline because the snapshot is durably mirrored.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/remote"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// Order statuses accepted by SetStatus.
var orderStatuses = map[string]struct{}{
	"pending": {}, "paid": {}, "shipped": {}, "delivered": {}, "cancelled": {},
}

// OrderAPI is the slice of the remote client the service needs.
type OrderAPI interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID, status string) error
	FulfillOrder(ctx context.Context, orderID, productID string, quantity int, reason string) error
}

// TitleResolver renders product titles for order lines, offline-capable.
type TitleResolver interface {
	TitleFor(id string) string
}

// OrderLineView is an order line enriched with its display title.
type OrderLineView struct {
	domain.OrderLine
	Title string `json:"title"`
}

// OrderView is an order enriched for rendering.
type OrderView struct {
	domain.Order
	LineViews []OrderLineView `json:"line_views"`
}

// OrderService coordinates the remote order endpoints with the durable
// order index and the catalog snapshot.
type OrderService struct {
	API    OrderAPI
	KV     store.KV
	Titles TitleResolver
	Log    zerolog.Logger
}

// Get fetches an order, records its owner in the durable index, and enriches
// the lines with display titles.
func (s *OrderService) Get(ctx context.Context, orderID string) (*OrderView, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	o, err := s.API.GetOrder(ctx, orderID)
	if err != nil {
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	s.indexOwner(ctx, o.ID, o.UserID)
	return s.view(o), nil
}

// OwnerOf resolves an order's user id from the durable index without a
// remote call. The bool reports whether the order has been indexed.
func (s *OrderService) OwnerOf(ctx context.Context, orderID string) (string, bool) {
	idx := s.loadIndex(ctx)
	uid, ok := idx[orderID]
	return uid, ok
}

// ListForUser fetches a user's orders newest first and persists the result
// as the offline fallback. A transient failure serves the persisted copy.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]OrderView, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "ListForUser",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	orders, err := s.API.ListUserOrders(ctx, userID)
	if err != nil {
		if errors.Is(err, remote.ErrTransient) {
			if cached, ok := s.loadRecent(ctx, userID); ok {
				s.Log.Warn().Err(err).Str("user_id", userID).
					Msg("orders: endpoint unreachable, serving persisted list")
				return s.views(cached), nil
			}
		}
		return nil, err
	}

	for _, o := range orders {
		s.indexOwner(ctx, o.ID, o.UserID)
	}
	s.storeRecent(ctx, userID, orders)
	return s.views(orders), nil
}

// SetStatus overwrites an order's status after validating it.
func (s *OrderService) SetStatus(ctx context.Context, orderID, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if _, ok := orderStatuses[status]; !ok {
		return ErrInvalidStatus
	}
	return s.API.SetOrderStatus(ctx, orderID, status)
}

// Fulfill records a partial fulfillment of one line. Quantity must be
// positive and the free-text reason non-empty.
func (s *OrderService) Fulfill(ctx context.Context, orderID, productID string, quantity int, reason string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return s.API.FulfillOrder(ctx, orderID, productID, quantity, reason)
}

//
// Durable state
//

type recentOrders struct {
	UserID string         `json:"user_id"`
	Orders []domain.Order `json:"orders"`
}

// indexOwner merges one order into the order-id to user-id index.
func (s *OrderService) indexOwner(ctx context.Context, orderID, userID string) {
	if orderID == "" || userID == "" {
		return
	}
	idx := s.loadIndex(ctx)
	if idx[orderID] == userID {
		return
	}
	idx[orderID] = userID
	if err := store.PutJSON(ctx, s.KV, store.KeyOrderIndex, idx); err != nil {
		s.Log.Error().Err(err).Msg("orders: persist index")
	}
}

func (s *OrderService) loadIndex(ctx context.Context) map[string]string {
	idx := make(map[string]string)
	if _, err := store.GetJSON(ctx, s.KV, store.KeyOrderIndex, &idx); err != nil {
		s.Log.Warn().Err(err).Msg("orders: load index")
	}
	return idx
}

func (s *OrderService) storeRecent(ctx context.Context, userID string, orders []domain.Order) {
	rec := recentOrders{UserID: userID, Orders: orders}
	if err := store.PutJSON(ctx, s.KV, store.KeyRecentOrders, rec); err != nil {
		s.Log.Error().Err(err).Msg("orders: persist recent list")
	}
}

func (s *OrderService) loadRecent(ctx context.Context, userID string) ([]domain.Order, bool) {
	var rec recentOrders
	found, err := store.GetJSON(ctx, s.KV, store.KeyRecentOrders, &rec)
	if err != nil || !found || rec.UserID != userID {
		return nil, false
	}
	return rec.Orders, true
}

//
// Views
//

func (s *OrderService) view(o *domain.Order) *OrderView {
	v := &OrderView{Order: *o}
	for _, l := range o.Lines {
		title := l.ProductID
		if s.Titles != nil {
			title = s.Titles.TitleFor(l.ProductID)
		}
		v.LineViews = append(v.LineViews, OrderLineView{OrderLine: l, Title: title})
	}
	return v
}

func (s *OrderService) views(orders []domain.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, *s.view(&orders[i]))
	}
	return out
}
