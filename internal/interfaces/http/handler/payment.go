package handler

import (
	"context"
	"time"

	financeapp "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	commands *financeapp.PaymentCommandService
	queries  *financeapp.PaymentQueryService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(commands *financeapp.PaymentCommandService, queries *financeapp.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{
		commands: commands,
		queries:  queries,
	}
}

// RegisterRoutes registers payment routes on the given group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	payments.POST("", h.Create)
	payments.GET("", h.List)
	payments.GET("/:id", h.Get)
	payments.POST("/:id/complete", h.Complete)
	payments.POST("/:id/fail", h.Fail)
	payments.POST("/:id/reconcile", h.Reconcile)
	payments.POST("/:id/reverse", h.Reverse)
}

// ===================== Request/Response DTOs =====================

// CreatePaymentRequest is the body of POST /payments. The amount travels as
// a string so no precision is lost in float conversion.
type CreatePaymentRequest struct {
	InvoiceID   string `json:"invoice_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Method      string `json:"method" binding:"required"`
	PaymentDate string `json:"payment_date" binding:"required"`
	Reference   string `json:"reference" binding:"max=100"`
}

// FailPaymentRequest is the body of POST /payments/:id/fail
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReconcilePaymentRequest is the body of POST /payments/:id/reconcile
type ReconcilePaymentRequest struct {
	Reference string `json:"reference" binding:"required,max=100"`
}

// ReversePaymentRequest is the body of POST /payments/:id/reverse
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             string          `json:"id"`
	InvoiceID      string          `json:"invoice_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	PaymentDate    time.Time       `json:"payment_date"`
	Reference      string          `json:"reference,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	ReconciledAt   *time.Time      `json:"reconciled_at,omitempty"`
	ReconciledRef  string          `json:"reconciled_ref,omitempty"`
	ReversedAt     *time.Time      `json:"reversed_at,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toPaymentResponse(m *models.PaymentReadModel) PaymentResponse {
	return PaymentResponse{
		ID:             m.ID.String(),
		InvoiceID:      m.InvoiceID.String(),
		Amount:         m.Amount,
		Currency:       m.Currency,
		Method:         m.Method,
		Status:         m.Status,
		PaymentDate:    m.PaymentDate,
		Reference:      m.Reference,
		FailureReason:  m.FailureReason,
		ReconciledAt:   m.ReconciledAt,
		ReconciledRef:  m.ReconciledRef,
		ReversedAt:     m.ReversedAt,
		ReversalReason: m.ReversalReason,
		Version:        m.LastAppliedVersion,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toPaymentResponses(items []models.PaymentReadModel) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toPaymentResponse(&items[i]))
	}
	return responses
}

// ===================== Handlers =====================

// Create handles POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	money, err := valueobject.NewMoney(amount, valueobject.Currency(req.Currency))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "Invalid payment date format")
		return
	}

	input := finance.CreatePaymentInput{
		InvoiceID:   invoiceID,
		Amount:      money,
		Method:      finance.PaymentMethod(req.Method),
		PaymentDate: paymentDate,
		Reference:   req.Reference,
	}

	result, err := h.commands.Create(c.Request.Context(), financeapp.Actor{TenantID: tenantID, UserID: userID}, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Complete handles POST /payments/:id/complete
func (h *PaymentHandler) Complete(c *gin.Context) {
	h.transition(c, func(ctx context.Context, actor financeapp.Actor, paymentID uuid.UUID) (financeapp.CommandResult, error) {
		return h.commands.Complete(ctx, actor, paymentID)
	})
}

// Fail handles POST /payments/:id/fail
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.transition(c, func(ctx context.Context, actor financeapp.Actor, paymentID uuid.UUID) (financeapp.CommandResult, error) {
		return h.commands.Fail(ctx, actor, paymentID, req.Reason)
	})
}

// Reconcile handles POST /payments/:id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	var req ReconcilePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.transition(c, func(ctx context.Context, actor financeapp.Actor, paymentID uuid.UUID) (financeapp.CommandResult, error) {
		return h.commands.Reconcile(ctx, actor, paymentID, req.Reference)
	})
}

// Reverse handles POST /payments/:id/reverse
func (h *PaymentHandler) Reverse(c *gin.Context) {
	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.transition(c, func(ctx context.Context, actor financeapp.Actor, paymentID uuid.UUID) (financeapp.CommandResult, error) {
		return h.commands.Reverse(ctx, actor, paymentID, req.Reason)
	})
}

func (h *PaymentHandler) transition(c *gin.Context, cmd func(ctx context.Context, actor financeapp.Actor, paymentID uuid.UUID) (financeapp.CommandResult, error)) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	result, err := cmd(c.Request.Context(), financeapp.Actor{TenantID: tenantID, UserID: userID}, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.queries.Get(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// ListPaymentsRequest carries the query parameters of GET /payments
type ListPaymentsRequest struct {
	Status    string `form:"status"`
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := finance.PaymentFilter{
		Filter: buildFilter(req.Page, req.PageSize, req.OrderBy, req.OrderDir),
		Status: finance.PaymentStatus(req.Status),
	}
	if req.InvoiceID != "" {
		filter.InvoiceID, _ = uuid.Parse(req.InvoiceID)
	}

	page, err := h.queries.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentResponses(page.Items), page.Total, page.Page, page.PageSize)
}
