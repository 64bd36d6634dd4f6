// Admin console HTTP handlers. Every route in this file is mounted behind
// the AdminGuard middleware.
//
// Endpoints (under {base}/admin):
//   - GET    /products                    (raw, unfiltered catalog)
//   - POST   /products                    (create)
//   - PUT    /products                    (modify)
//   - DELETE /products?id=...             (delete; composite ids supported)
//   - PUT    /products/stock              (overwrite stock count)
//   - PUT    /products/visibility         (toggle storefront visibility)
//   - POST   /groups                      (create variant group)
//   - POST   /groups/members              (append member)
//   - DELETE /groups/members              (detach member)
//   - GET    /orders/detail?id=...        (fetch + index owner)
//   - PUT    /orders/status               (modify status)
//   - POST   /orders/fulfill              (partial fulfillment with reason)
//   - GET    /tickets                     (list)
//   - PUT    /tickets/close               (resolve or deny)
//   - PUT    /tickets/read                (mark read)
//   - GET    /staff, PUT /staff           (list / modify)
//   - GET    /users, PUT /users           (list / modify)
//   - POST   /credit                      (add or remove store credit)
//   - GET    /audit                       (fetch audit log)
//   - POST   /images                      (base64 upload, returns public URL)
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/http/middleware"
	"github.com/avlonitis/go-shop-backend/internal/services"
)

// ProductAdminAPI covers the product and group mutations, which go straight
// to the remote endpoints without touching the storefront snapshot.
type ProductAdminAPI interface {
	ListProducts(ctx context.Context) ([]domain.CatalogEntry, error)
	GetProduct(ctx context.Context, id string) (*domain.CatalogEntry, error)
	CreateProduct(ctx context.Context, p domain.CatalogEntry) (*domain.CatalogEntry, error)
	UpdateProduct(ctx context.Context, p domain.CatalogEntry) error
	DeleteProduct(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, count int) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	CreateGroup(ctx context.Context, title, category string) (string, error)
	AppendGroupMember(ctx context.Context, groupID, productID string) error
	DetachGroupMember(ctx context.Context, groupID, productID string) error
	UploadImage(ctx context.Context, filename, base64Payload string) (string, error)
}

// OrderAdminService covers the console's order operations.
type OrderAdminService interface {
	Get(ctx context.Context, orderID string) (*services.OrderView, error)
	SetStatus(ctx context.Context, orderID, status string) error
	Fulfill(ctx context.Context, orderID, productID string, quantity int, reason string) error
}

// TicketAdminService covers ticket triage.
type TicketAdminService interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	Close(ctx context.Context, ticketID string, approve bool) error
	MarkRead(ctx context.Context, ticketID string) error
}

// AccountAdminService covers staff, users, credit, and the audit log.
type AccountAdminService interface {
	Staff(ctx context.Context) ([]domain.StaffMember, error)
	UpdateStaff(ctx context.Context, actor string, m domain.StaffMember) error
	Users(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, actor string, u domain.UserAccount) error
	AdjustCredit(ctx context.Context, actor, userID string, delta float64) (float64, error)
	Audit(ctx context.Context) ([]domain.AuditEntry, error)
}

// Notifier raises console toasts for completed mutations.
type Notifier interface {
	Notify(message string, kind domain.NotificationKind)
}

// Admin groups the console endpoints.
type Admin struct {
	Products ProductAdminAPI
	Orders   OrderAdminService
	Tickets  TicketAdminService
	Accounts AccountAdminService
	Notify   Notifier
}

// requireID pulls the id query parameter, failing the request when absent.
func requireID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id query parameter is required")
	}
	return id, id != ""
}

//
// Products and groups
//

// ListProducts serves the raw, unfiltered catalog for the console.
func (h *Admin) ListProducts(c *gin.Context) {
	entries, err := h.Products.ListProducts(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// CreateProduct creates a product from the request body.
func (h *Admin) CreateProduct(c *gin.Context) {
	var p domain.CatalogEntry
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	created, err := h.Products.CreateProduct(c.Request.Context(), p)
	if err != nil {
		failFrom(c, err)
		return
	}
	h.Notify.Notify("Product created: "+created.Title, domain.KindSuccess)
	ok(c, http.StatusCreated, created)
}

// UpdateProduct overwrites an existing product.
func (h *Admin) UpdateProduct(c *gin.Context) {
	var p domain.CatalogEntry
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if p.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id is required")
		return
	}
	if err := h.Products.UpdateProduct(c.Request.Context(), p); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// DeleteProduct removes a product by id.
func (h *Admin) DeleteProduct(c *gin.Context) {
	id, okID := requireID(c)
	if !okID {
		return
	}
	if err := h.Products.DeleteProduct(c.Request.Context(), id); err != nil {
		failFrom(c, err)
		return
	}
	h.Notify.Notify("Product deleted.", domain.KindInfo)
	noContent(c)
}

// SetStockRequest is the payload for PUT /products/stock.
type SetStockRequest struct {
	ID         string `json:"id" binding:"required"`
	StockCount int    `json:"stock_count" binding:"min=0"`
}

// SetStock overwrites a product's stock count.
func (h *Admin) SetStock(c *gin.Context) {
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Products.SetStock(c.Request.Context(), req.ID, req.StockCount); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// SetVisibilityRequest is the payload for PUT /products/visibility.
type SetVisibilityRequest struct {
	ID      string `json:"id" binding:"required"`
	Visible *bool  `json:"visible" binding:"required"`
}

// SetVisibility toggles a product's storefront visibility.
func (h *Admin) SetVisibility(c *gin.Context) {
	var req SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Products.SetVisibility(c.Request.Context(), req.ID, *req.Visible); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// CreateGroupRequest is the payload for POST /groups.
type CreateGroupRequest struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`
}

// CreateGroup creates a variant group.
func (h *Admin) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	id, err := h.Products.CreateGroup(c.Request.Context(), req.Title, req.Category)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": id})
}

// GroupMemberRequest is the payload for group membership changes.
type GroupMemberRequest struct {
	GroupID   string `json:"group_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
}

// AppendGroupMember adds a product to a group.
func (h *Admin) AppendGroupMember(c *gin.Context) {
	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Products.AppendGroupMember(c.Request.Context(), req.GroupID, req.ProductID); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// DetachGroupMember removes a product from a group.
func (h *Admin) DetachGroupMember(c *gin.Context) {
	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Products.DetachGroupMember(c.Request.Context(), req.GroupID, req.ProductID); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

//
// Orders
//

// GetOrder fetches an order and indexes its owner.
func (h *Admin) GetOrder(c *gin.Context) {
	id, okID := requireID(c)
	if !okID {
		return
	}
	view, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// SetOrderStatusRequest is the payload for PUT /orders/status.
type SetOrderStatusRequest struct {
	ID     string `json:"id" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// SetOrderStatus overwrites an order's status.
func (h *Admin) SetOrderStatus(c *gin.Context) {
	var req SetOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Orders.SetStatus(c.Request.Context(), req.ID, req.Status); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// FulfillRequest is the payload for POST /orders/fulfill.
type FulfillRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// FulfillOrder records a partial fulfillment of one order line.
func (h *Admin) FulfillOrder(c *gin.Context) {
	var req FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Orders.Fulfill(c.Request.Context(), req.OrderID, req.ProductID, req.Quantity, req.Reason); err != nil {
		failFrom(c, err)
		return
	}
	h.Notify.Notify("Fulfillment recorded for order "+req.OrderID+".", domain.KindSuccess)
	noContent(c)
}

//
// Tickets
//

// ListTickets serves all support tickets.
func (h *Admin) ListTickets(c *gin.Context) {
	tickets, err := h.Tickets.List(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, tickets)
}

// CloseTicketRequest is the payload for PUT /tickets/close.
type CloseTicketRequest struct {
	ID      string `json:"id" binding:"required"`
	Approve *bool  `json:"approve" binding:"required"`
}

// CloseTicket resolves (approve=true) or denies a ticket.
func (h *Admin) CloseTicket(c *gin.Context) {
	var req CloseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Tickets.Close(c.Request.Context(), req.ID, *req.Approve); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// MarkTicketReadRequest is the payload for PUT /tickets/read.
type MarkTicketReadRequest struct {
	ID string `json:"id" binding:"required"`
}

// MarkTicketRead flags a ticket as read.
func (h *Admin) MarkTicketRead(c *gin.Context) {
	var req MarkTicketReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	if err := h.Tickets.MarkRead(c.Request.Context(), req.ID); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

//
// Staff, users, credit, audit
//

// ListStaff serves the back-office accounts.
func (h *Admin) ListStaff(c *gin.Context) {
	staff, err := h.Accounts.Staff(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, staff)
}

// UpdateStaff overwrites a staff member.
func (h *Admin) UpdateStaff(c *gin.Context) {
	var m domain.StaffMember
	if err := c.ShouldBindJSON(&m); err != nil || m.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload")
		return
	}
	if err := h.Accounts.UpdateStaff(c.Request.Context(), middleware.UserID(c), m); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// ListUsers serves the customer accounts.
func (h *Admin) ListUsers(c *gin.Context) {
	users, err := h.Accounts.Users(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

// UpdateUser overwrites a customer account.
func (h *Admin) UpdateUser(c *gin.Context) {
	var u domain.UserAccount
	if err := c.ShouldBindJSON(&u); err != nil || u.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload")
		return
	}
	if err := h.Accounts.UpdateUser(c.Request.Context(), middleware.UserID(c), u); err != nil {
		failFrom(c, err)
		return
	}
	noContent(c)
}

// AdjustCreditRequest is the payload for POST /credit.
type AdjustCreditRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Delta  float64 `json:"delta" binding:"required"`
}

// AdjustCredit adds or removes store credit and returns the new balance.
func (h *Admin) AdjustCredit(c *gin.Context) {
	var req AdjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	balance, err := h.Accounts.AdjustCredit(c.Request.Context(), middleware.UserID(c), req.UserID, req.Delta)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"credit": balance})
}

// ListAudit serves the audit log.
func (h *Admin) ListAudit(c *gin.Context) {
	entries, err := h.Accounts.Audit(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

//
// Image upload
//

// UploadImageRequest is the payload for POST /images.
type UploadImageRequest struct {
	Filename string `json:"filename" binding:"required"`
	Payload  string `json:"payload" binding:"required"` // base64
}

// UploadImage forwards a base64-encoded image and returns its public URL.
func (h *Admin) UploadImage(c *gin.Context) {
	var req UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return
	}
	url, err := h.Products.UploadImage(c.Request.Context(), req.Filename, req.Payload)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"url": url})
}
