package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Sort fields come from query strings; they must never reach the ORDER BY
// clause unchecked.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoice read models
var InvoiceSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"invoice_date":   true,
	"due_date":       true,
	"grand_total":    true,
	"status":         true,
	"fiscal_period":  true,
}

// PaymentSortFields contains allowed sort fields for payment read models
var PaymentSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"payment_date": true,
	"amount":       true,
	"status":       true,
}

// JournalSortFields contains allowed sort fields for journal entry read models
var JournalSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"journal_number": true,
	"journal_date":   true,
	"fiscal_period":  true,
	"status":         true,
}
