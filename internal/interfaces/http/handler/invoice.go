package handler

import (
	"context"
	"time"

	financeapp "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	commands *financeapp.InvoiceCommandService
	queries  *financeapp.InvoiceQueryService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(commands *financeapp.InvoiceCommandService, queries *financeapp.InvoiceQueryService) *InvoiceHandler {
	return &InvoiceHandler{
		commands: commands,
		queries:  queries,
	}
}

// RegisterRoutes registers invoice routes on the given group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.POST("", h.Create)
	invoices.GET("", h.List)
	invoices.GET("/:id", h.Get)
	invoices.POST("/:id/lines", h.AddLineItem)
	invoices.DELETE("/:id/lines/:lineId", h.RemoveLineItem)
	invoices.POST("/:id/submit", h.Submit)
	invoices.POST("/:id/approve", h.Approve)
	invoices.POST("/:id/cancel", h.Cancel)
}

// ===================== Request/Response DTOs =====================

// LineItemRequest is one invoice line in create and add-line requests.
// Amounts and rates travel as JSON numbers or strings; decimal parsing
// preserves exact values either way.
type LineItemRequest struct {
	Description           string          `json:"description" binding:"required,max=500"`
	Quantity              decimal.Decimal `json:"quantity"`
	UnitPrice             decimal.Decimal `json:"unit_price"`
	VATCategory           string          `json:"vat_category" binding:"max=50"`
	VATRate               decimal.Decimal `json:"vat_rate"`
	SupplementaryDutyRate decimal.Decimal `json:"supplementary_duty_rate"`
	AdvanceIncomeTaxRate  decimal.Decimal `json:"advance_income_tax_rate"`
}

// CreateInvoiceRequest is the body of POST /invoices
type CreateInvoiceRequest struct {
	InvoiceNumber     string            `json:"invoice_number" binding:"required,max=50"`
	VendorID          string            `json:"vendor_id" binding:"required,uuid"`
	CustomerID        string            `json:"customer_id" binding:"required,uuid"`
	Currency          string            `json:"currency" binding:"required,len=3"`
	LineItems         []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	InvoiceDate       string            `json:"invoice_date" binding:"required"`
	DueDate           string            `json:"due_date" binding:"required"`
	TaxDocumentNumber string            `json:"tax_document_number" binding:"max=50"`
}

// CancelInvoiceRequest is the body of POST /invoices/:id/cancel
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                string             `json:"id"`
	InvoiceNumber     string             `json:"invoice_number"`
	VendorID          string             `json:"vendor_id"`
	CustomerID        string             `json:"customer_id"`
	Currency          string             `json:"currency"`
	LineItems         []finance.LineItem `json:"line_items"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	VATAmount         decimal.Decimal    `json:"vat_amount"`
	SupplementaryDuty decimal.Decimal    `json:"supplementary_duty"`
	AdvanceIncomeTax  decimal.Decimal    `json:"advance_income_tax"`
	GrandTotal        decimal.Decimal    `json:"grand_total"`
	PaidAmount        decimal.Decimal    `json:"paid_amount"`
	OutstandingAmount decimal.Decimal    `json:"outstanding_amount"`
	Status            string             `json:"status"`
	FiscalYear        string             `json:"fiscal_year"`
	FiscalPeriod      string             `json:"fiscal_period"`
	InvoiceDate       time.Time          `json:"invoice_date"`
	DueDate           time.Time          `json:"due_date"`
	TaxDocumentNumber string             `json:"tax_document_number,omitempty"`
	CancelReason      string             `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func toInvoiceResponse(m *models.InvoiceReadModel) InvoiceResponse {
	return InvoiceResponse{
		ID:                m.ID.String(),
		InvoiceNumber:     m.InvoiceNumber,
		VendorID:          m.VendorID.String(),
		CustomerID:        m.CustomerID.String(),
		Currency:          m.Currency,
		LineItems:         m.LineItems,
		Subtotal:          m.Subtotal,
		VATAmount:         m.VATAmount,
		SupplementaryDuty: m.SupplementaryDuty,
		AdvanceIncomeTax:  m.AdvanceIncomeTax,
		GrandTotal:        m.GrandTotal,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.GrandTotal.Sub(m.PaidAmount),
		Status:            m.Status,
		FiscalYear:        m.FiscalYear,
		FiscalPeriod:      m.FiscalPeriod,
		InvoiceDate:       m.InvoiceDate,
		DueDate:           m.DueDate,
		TaxDocumentNumber: m.TaxDocumentNumber,
		CancelReason:      m.CancelReason,
		CancelledAt:       m.CancelledAt,
		Version:           m.LastAppliedVersion,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toInvoiceResponses(items []models.InvoiceReadModel) []InvoiceResponse {
	responses := make([]InvoiceResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toInvoiceResponse(&items[i]))
	}
	return responses
}

func toLineItemInput(req LineItemRequest) finance.LineItemInput {
	return finance.LineItemInput{
		Description:           req.Description,
		Quantity:              req.Quantity,
		UnitPrice:             req.UnitPrice,
		VATCategory:           req.VATCategory,
		VATRate:               req.VATRate,
		SupplementaryDutyRate: req.SupplementaryDutyRate,
		AdvanceIncomeTaxRate:  req.AdvanceIncomeTaxRate,
	}
}

// ===================== Handlers =====================

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		h.BadRequest(c, "Invalid invoice date format")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due date format")
		return
	}

	lines := make([]finance.LineItemInput, 0, len(req.LineItems))
	for _, line := range req.LineItems {
		lines = append(lines, toLineItemInput(line))
	}

	input := finance.CreateInvoiceInput{
		InvoiceNumber:     req.InvoiceNumber,
		VendorID:          vendorID,
		CustomerID:        customerID,
		Currency:          valueobject.Currency(req.Currency),
		LineItems:         lines,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		TaxDocumentNumber: req.TaxDocumentNumber,
	}

	result, err := h.commands.Create(c.Request.Context(), financeapp.Actor{TenantID: tenantID, UserID: userID}, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// AddLineItem handles POST /invoices/:id/lines
func (h *InvoiceHandler) AddLineItem(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req LineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.commands.AddLineItem(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, invoiceID, toLineItemInput(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RemoveLineItem handles DELETE /invoices/:id/lines/:lineId
func (h *InvoiceHandler) RemoveLineItem(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	result, err := h.commands.RemoveLineItem(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, invoiceID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Submit handles POST /invoices/:id/submit
func (h *InvoiceHandler) Submit(c *gin.Context) {
	h.transition(c, h.commands.Submit)
}

// Approve handles POST /invoices/:id/approve
func (h *InvoiceHandler) Approve(c *gin.Context) {
	h.transition(c, h.commands.Approve)
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.commands.Cancel(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, invoiceID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// transition runs a body-less lifecycle command against the invoice in the path
func (h *InvoiceHandler) transition(c *gin.Context, cmd func(ctx context.Context, actor financeapp.Actor, invoiceID uuid.UUID) (financeapp.CommandResult, error)) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := cmd(c.Request.Context(), financeapp.Actor{TenantID: tenantID, UserID: userID}, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.queries.Get(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// ListInvoicesRequest carries the query parameters of GET /invoices
type ListInvoicesRequest struct {
	Status       string `form:"status"`
	CustomerID   string `form:"customer_id" binding:"omitempty,uuid"`
	VendorID     string `form:"vendor_id" binding:"omitempty,uuid"`
	FiscalPeriod string `form:"fiscal_period"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := finance.InvoiceFilter{
		Filter:       buildFilter(req.Page, req.PageSize, req.OrderBy, req.OrderDir),
		Status:       finance.InvoiceStatus(req.Status),
		FiscalPeriod: finance.FiscalPeriod(req.FiscalPeriod),
	}
	if req.CustomerID != "" {
		filter.CustomerID, _ = uuid.Parse(req.CustomerID)
	}
	if req.VendorID != "" {
		filter.VendorID, _ = uuid.Parse(req.VendorID)
	}

	page, err := h.queries.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// buildFilter fills pagination defaults shared by the list endpoints
func buildFilter(page, pageSize int, orderBy, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}
