// Package remote is the HTTP client for the externally hosted function
// endpoints that back the storefront and the admin console. Every capability
// is a request/response function call: POST {base}/{fn} with a JSON body and
// a JSON reply.
//
// Error taxonomy (mirrored by the rest of the app):
//   - Transport failures and 5xx replies are wrapped in ErrTransient; the
//     operation is retryable by re-invoking the same user action.
//   - 4xx replies decode into *APIError and are validation-class: the caller
//     must surface them and block until the input is fixed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/auth"
	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// ErrTransient marks network or server-side failures. Test with
// errors.Is(err, ErrTransient).
var ErrTransient = errors.New("transient remote failure")

// ErrInvalidCoupon is returned by ValidateCoupon when the endpoint rejects
// the code. Distinct from ErrTransient so checkout can tell "bad code" from
// "endpoint down".
var ErrInvalidCoupon = errors.New("invalid coupon code")

// APIError is a validation-class rejection from a function endpoint.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// Client calls the function endpoints. The zero value is not usable; use New.
// Safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New builds a Client for the endpoint base URL. A nil httpClient falls back
// to a client with a 15s timeout.
func New(base string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
		log:  log,
	}
}

// call POSTs in as JSON to {base}/{fn} and decodes the reply into out
// (skipped when out is nil).
func (c *Client) call(ctx context.Context, fn string, in, out any) error {
	var body bytes.Buffer
	if in == nil {
		in = struct{}{}
	}
	if err := json.NewEncoder(&body).Encode(in); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+fn, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("fn", fn).Msg("remote: transport failure")
		return fmt.Errorf("%w: %s: %v", ErrTransient, fn, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		c.log.Warn().Int("status", resp.StatusCode).Str("fn", fn).Msg("remote: server failure")
		return fmt.Errorf("%w: %s: http %d", ErrTransient, fn, resp.StatusCode)
	case resp.StatusCode >= 400:
		apiErr := &APIError{Status: resp.StatusCode, Code: "rejected", Message: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrTransient, fn, err)
	}
	return nil
}

//
// Authorization
//

// AuthorizeAdmin asks the identity provider whether id is an administrator.
func (c *Client) AuthorizeAdmin(ctx context.Context, id auth.Identity) (bool, error) {
	in := struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Token  string `json:"token"`
	}{id.UserID, id.Email, id.Token}
	var out struct {
		Granted bool `json:"granted"`
	}
	if err := c.call(ctx, "authCheck", in, &out); err != nil {
		return false, err
	}
	return out.Granted, nil
}

//
// Products and groups
//

type idReq struct {
	ID string `json:"id"`
}

// ListProducts fetches the full, unfiltered catalog in storefront order.
func (c *Client) ListProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	var out []domain.CatalogEntry
	if err := c.call(ctx, "listProducts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches one product by simple or composite id.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.CatalogEntry, error) {
	var out domain.CatalogEntry
	if err := c.call(ctx, "getProduct", idReq{id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStock fetches the current stock count for a product.
func (c *Client) GetStock(ctx context.Context, id string) (int, error) {
	var out struct {
		StockCount int `json:"stock_count"`
	}
	if err := c.call(ctx, "getStock", idReq{id}, &out); err != nil {
		return 0, err
	}
	return out.StockCount, nil
}

// SetStock overwrites the stock count for a product.
func (c *Client) SetStock(ctx context.Context, id string, count int) error {
	in := struct {
		ID         string `json:"id"`
		StockCount int    `json:"stock_count"`
	}{id, count}
	return c.call(ctx, "setStock", in, nil)
}

// SetVisibility toggles storefront visibility for a product.
func (c *Client) SetVisibility(ctx context.Context, id string, visible bool) error {
	in := struct {
		ID      string `json:"id"`
		Visible bool   `json:"visible"`
	}{id, visible}
	return c.call(ctx, "setVisibility", in, nil)
}

// CreateProduct creates a product and returns it with its assigned id.
func (c *Client) CreateProduct(ctx context.Context, p domain.CatalogEntry) (*domain.CatalogEntry, error) {
	var out domain.CatalogEntry
	if err := c.call(ctx, "createProduct", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct overwrites an existing product keyed by p.ID.
func (c *Client) UpdateProduct(ctx context.Context, p domain.CatalogEntry) error {
	return c.call(ctx, "updateProduct", p, nil)
}

// DeleteProduct removes a product by simple or composite id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(ctx, "deleteProduct", idReq{id}, nil)
}

// CreateGroup creates a variant group and returns its id.
func (c *Client) CreateGroup(ctx context.Context, title, category string) (string, error) {
	in := struct {
		Title    string `json:"title"`
		Category string `json:"category"`
	}{title, category}
	var out idReq
	if err := c.call(ctx, "createGroup", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// AppendGroupMember adds an existing product to a group as a variant.
func (c *Client) AppendGroupMember(ctx context.Context, groupID, productID string) error {
	in := struct {
		GroupID   string `json:"group_id"`
		ProductID string `json:"product_id"`
	}{groupID, productID}
	return c.call(ctx, "appendGroupMember", in, nil)
}

// DetachGroupMember removes a variant from its group.
func (c *Client) DetachGroupMember(ctx context.Context, groupID, productID string) error {
	in := struct {
		GroupID   string `json:"group_id"`
		ProductID string `json:"product_id"`
	}{groupID, productID}
	return c.call(ctx, "detachGroupMember", in, nil)
}

//
// Orders
//

// CreateOrder submits an order intent and returns the assigned order id.
func (c *Client) CreateOrder(ctx context.Context, intent domain.OrderIntent) (string, error) {
	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := c.call(ctx, "createOrder", intent, &out); err != nil {
		return "", err
	}
	return out.OrderID, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var out domain.Order
	if err := c.call(ctx, "getOrder", idReq{orderID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUserOrders fetches the orders belonging to a user, newest first.
func (c *Client) ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	in := struct {
		UserID string `json:"user_id"`
	}{userID}
	var out []domain.Order
	if err := c.call(ctx, "listUserOrders", in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetOrderStatus overwrites an order's status.
func (c *Client) SetOrderStatus(ctx context.Context, orderID, status string) error {
	in := struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}{orderID, status}
	return c.call(ctx, "setOrderStatus", in, nil)
}

// FulfillOrder records a partial fulfillment of one order line with a
// free-text reason.
func (c *Client) FulfillOrder(ctx context.Context, orderID, productID string, quantity int, reason string) error {
	in := struct {
		OrderID   string `json:"order_id"`
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Reason    string `json:"reason"`
	}{orderID, productID, quantity, reason}
	return c.call(ctx, "fulfillOrder", in, nil)
}

//
// Coupons
//

// ValidateCoupon resolves a coupon code to its discount percentage.
// A rejected code returns ErrInvalidCoupon; endpoint failures ErrTransient.
func (c *Client) ValidateCoupon(ctx context.Context, code string) (float64, error) {
	in := struct {
		Code string `json:"code"`
	}{code}
	var out struct {
		Valid   bool    `json:"valid"`
		Percent float64 `json:"percent"`
	}
	if err := c.call(ctx, "validateCoupon", in, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return 0, ErrInvalidCoupon
		}
		return 0, err
	}
	if !out.Valid {
		return 0, ErrInvalidCoupon
	}
	return out.Percent, nil
}

//
// Support, staff, users
//

// ListTickets fetches all support tickets.
func (c *Client) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	if err := c.call(ctx, "listTickets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTicket opens a support ticket and returns its id.
func (c *Client) CreateTicket(ctx context.Context, userID, subject, body string) (string, error) {
	in := struct {
		UserID  string `json:"user_id"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}{userID, subject, body}
	var out idReq
	if err := c.call(ctx, "createTicket", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ResolveTicket closes a ticket as resolved (approve=true) or denied.
func (c *Client) ResolveTicket(ctx context.Context, ticketID string, approve bool) error {
	in := struct {
		ID      string `json:"id"`
		Approve bool   `json:"approve"`
	}{ticketID, approve}
	return c.call(ctx, "resolveTicket", in, nil)
}

// MarkTicketRead flags a ticket as read by staff.
func (c *Client) MarkTicketRead(ctx context.Context, ticketID string) error {
	return c.call(ctx, "markTicketRead", idReq{ticketID}, nil)
}

// ListStaff fetches all back-office accounts.
func (c *Client) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	if err := c.call(ctx, "listStaff", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStaff overwrites a staff member keyed by m.ID.
func (c *Client) UpdateStaff(ctx context.Context, m domain.StaffMember) error {
	return c.call(ctx, "updateStaff", m, nil)
}

// ListUsers fetches all customer accounts.
func (c *Client) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	var out []domain.UserAccount
	if err := c.call(ctx, "listUsers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser overwrites a customer account keyed by u.ID.
func (c *Client) UpdateUser(ctx context.Context, u domain.UserAccount) error {
	return c.call(ctx, "updateUser", u, nil)
}

// AdjustCredit adds (positive) or removes (negative) store credit and
// returns the resulting balance.
func (c *Client) AdjustCredit(ctx context.Context, userID string, delta float64) (float64, error) {
	in := struct {
		UserID string  `json:"user_id"`
		Delta  float64 `json:"delta"`
	}{userID, delta}
	var out struct {
		Credit float64 `json:"credit"`
	}
	if err := c.call(ctx, "adjustCredit", in, &out); err != nil {
		return 0, err
	}
	return out.Credit, nil
}

//
// Audit log and uploads
//

// AppendAudit appends one audit line.
func (c *Client) AppendAudit(ctx context.Context, actor, action, detail string) error {
	in := struct {
		Actor  string `json:"actor"`
		Action string `json:"action"`
		Detail string `json:"detail"`
	}{actor, action, detail}
	return c.call(ctx, "appendAudit", in, nil)
}

// ListAudit fetches the audit log, newest first.
func (c *Client) ListAudit(ctx context.Context) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	if err := c.call(ctx, "listAudit", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadImage sends a base64-encoded image payload and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, filename, base64Payload string) (string, error) {
	in := struct {
		Filename string `json:"filename"`
		Payload  string `json:"payload"`
	}{filename, base64Payload}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, "uploadImage", in, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
