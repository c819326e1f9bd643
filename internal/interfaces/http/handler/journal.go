package handler

import (
	"time"

	financeapp "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalHandler handles journal entry and trial balance API endpoints
type JournalHandler struct {
	BaseHandler
	commands     *financeapp.JournalCommandService
	queries      *financeapp.JournalQueryService
	trialBalance *financeapp.TrialBalanceService
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(commands *financeapp.JournalCommandService, queries *financeapp.JournalQueryService, trialBalance *financeapp.TrialBalanceService) *JournalHandler {
	return &JournalHandler{
		commands:     commands,
		queries:      queries,
		trialBalance: trialBalance,
	}
}

// RegisterRoutes registers journal routes on the given group
func (h *JournalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	journals := rg.Group("/journal-entries")
	journals.POST("", h.Create)
	journals.GET("", h.List)
	journals.GET("/:id", h.Get)
	journals.POST("/:id/lines", h.AddLine)
	journals.POST("/:id/post", h.Post)
	journals.POST("/:id/reverse", h.Reverse)

	rg.GET("/reports/trial-balance", h.TrialBalance)
}

// ===================== Request/Response DTOs =====================

// JournalLineRequest is one line in create and add-line requests. Exactly one
// of debit_amount and credit_amount must be non-zero; the domain enforces it.
type JournalLineRequest struct {
	AccountID    string          `json:"account_id" binding:"required,uuid"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description" binding:"max=500"`
}

// CreateJournalEntryRequest is the body of POST /journal-entries
type CreateJournalEntryRequest struct {
	JournalNumber string               `json:"journal_number" binding:"required,max=50"`
	JournalDate   string               `json:"journal_date" binding:"required"`
	JournalType   string               `json:"journal_type" binding:"required"`
	Description   string               `json:"description" binding:"max=500"`
	Currency      string               `json:"currency" binding:"required,len=3"`
	Lines         []JournalLineRequest `json:"lines" binding:"omitempty,dive"`
}

// ReverseJournalEntryRequest is the body of POST /journal-entries/:id/reverse
type ReverseJournalEntryRequest struct {
	JournalNumber string `json:"journal_number" binding:"required,max=50"`
	Reason        string `json:"reason" binding:"required,max=500"`
}

// JournalEntryResponse represents a journal entry header in API responses
type JournalEntryResponse struct {
	ID             string                `json:"id"`
	JournalNumber  string                `json:"journal_number"`
	JournalDate    time.Time             `json:"journal_date"`
	JournalType    string                `json:"journal_type"`
	Description    string                `json:"description,omitempty"`
	Currency       string                `json:"currency"`
	FiscalPeriod   string                `json:"fiscal_period"`
	Status         string                `json:"status"`
	TotalDebit     decimal.Decimal       `json:"total_debit"`
	TotalCredit    decimal.Decimal       `json:"total_credit"`
	PostedAt       *time.Time            `json:"posted_at,omitempty"`
	ReversalOfID   *uuid.UUID            `json:"reversal_of_id,omitempty"`
	ReversedByID   *uuid.UUID            `json:"reversed_by_id,omitempty"`
	ReversalReason string                `json:"reversal_reason,omitempty"`
	Lines          []JournalLineResponse `json:"lines,omitempty"`
	Version        int                   `json:"version"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// JournalLineResponse represents one journal line in API responses
type JournalLineResponse struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description,omitempty"`
}

func toJournalEntryResponse(m *models.JournalEntryReadModel, lines []models.JournalLineReadModel) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:             m.ID.String(),
		JournalNumber:  m.JournalNumber,
		JournalDate:    m.JournalDate,
		JournalType:    m.JournalType,
		Description:    m.Description,
		Currency:       m.Currency,
		FiscalPeriod:   m.FiscalPeriod,
		Status:         m.Status,
		TotalDebit:     m.TotalDebit,
		TotalCredit:    m.TotalCredit,
		PostedAt:       m.PostedAt,
		ReversalOfID:   m.ReversalOfID,
		ReversedByID:   m.ReversedByID,
		ReversalReason: m.ReversalReason,
		Version:        m.LastAppliedVersion,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for i := range lines {
		resp.Lines = append(resp.Lines, JournalLineResponse{
			ID:           lines[i].ID.String(),
			AccountID:    lines[i].AccountID.String(),
			DebitAmount:  lines[i].DebitAmount,
			CreditAmount: lines[i].CreditAmount,
			Description:  lines[i].Description,
		})
	}
	return resp
}

func toJournalEntryResponses(items []models.JournalEntryReadModel) []JournalEntryResponse {
	responses := make([]JournalEntryResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toJournalEntryResponse(&items[i], nil))
	}
	return responses
}

func toJournalLineInput(req JournalLineRequest) (finance.JournalLineInput, error) {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return finance.JournalLineInput{}, err
	}
	return finance.JournalLineInput{
		AccountID:    accountID,
		DebitAmount:  req.DebitAmount,
		CreditAmount: req.CreditAmount,
		Description:  req.Description,
	}, nil
}

// ===================== Handlers =====================

// Create handles POST /journal-entries
func (h *JournalHandler) Create(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	var req CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	journalDate, err := parseDate(req.JournalDate)
	if err != nil {
		h.BadRequest(c, "Invalid journal date format")
		return
	}

	lines := make([]finance.JournalLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		input, err := toJournalLineInput(line)
		if err != nil {
			h.BadRequest(c, "Invalid account ID format")
			return
		}
		lines = append(lines, input)
	}

	input := finance.CreateJournalEntryInput{
		JournalNumber: req.JournalNumber,
		JournalDate:   journalDate,
		JournalType:   finance.JournalType(req.JournalType),
		Description:   req.Description,
		Currency:      valueobject.Currency(req.Currency),
		Lines:         lines,
	}

	result, err := h.commands.Create(c.Request.Context(), financeapp.Actor{TenantID: tenantID, UserID: userID}, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// AddLine handles POST /journal-entries/:id/lines
func (h *JournalHandler) AddLine(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	journalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid journal entry ID format")
		return
	}

	var req JournalLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	input, err := toJournalLineInput(req)
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	result, err := h.commands.AddLine(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, journalID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Post handles POST /journal-entries/:id/post
func (h *JournalHandler) Post(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	journalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid journal entry ID format")
		return
	}

	result, err := h.commands.Post(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, journalID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reverse handles POST /journal-entries/:id/reverse. On success the response
// carries both the original and the newly created reversing entry.
func (h *JournalHandler) Reverse(c *gin.Context) {
	tenantID, userID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant or user identity")
		return
	}

	journalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid journal entry ID format")
		return
	}

	var req ReverseJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.commands.Reverse(c.Request.Context(),
		financeapp.Actor{TenantID: tenantID, UserID: userID}, journalID,
		financeapp.ReverseJournalEntryInput{JournalNumber: req.JournalNumber, Reason: req.Reason})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get handles GET /journal-entries/:id
func (h *JournalHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	journalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid journal entry ID format")
		return
	}

	entry, lines, err := h.queries.Get(c.Request.Context(), tenantID, journalID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJournalEntryResponse(entry, lines))
}

// ListJournalEntriesRequest carries the query parameters of GET /journal-entries
type ListJournalEntriesRequest struct {
	Status       string `form:"status"`
	JournalType  string `form:"journal_type"`
	FiscalPeriod string `form:"fiscal_period"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List handles GET /journal-entries
func (h *JournalHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	var req ListJournalEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := finance.JournalEntryFilter{
		Filter:       buildFilter(req.Page, req.PageSize, req.OrderBy, req.OrderDir),
		Status:       finance.JournalStatus(req.Status),
		JournalType:  finance.JournalType(req.JournalType),
		FiscalPeriod: finance.FiscalPeriod(req.FiscalPeriod),
	}

	page, err := h.queries.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toJournalEntryResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// TrialBalance handles GET /reports/trial-balance?fiscal_period=FY2025-2026-P02
func (h *JournalHandler) TrialBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	fiscalPeriod := c.Query("fiscal_period")
	if fiscalPeriod == "" {
		h.BadRequest(c, "fiscal_period query parameter is required")
		return
	}

	report, err := h.trialBalance.Report(c.Request.Context(), tenantID, finance.FiscalPeriod(fiscalPeriod))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
