package models

import (
	"strings"

	"github.com/panafact/fepa_backend/utils"
)

// Invoice is a projection of an invoice header record. Status drives whether
// its line items may be auto-loaded.
type Invoice struct {
	Id     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

// Pending reports whether the invoice is eligible for line auto-load. The
// source data is Spanish-labelled, so both spellings are accepted.
func (i Invoice) Pending() bool {
	status := strings.ToLower(utils.CollapseWhitespace(i.Status))
	return status == "pending" || status == "pendiente"
}

// NormalizedNumber is the invoice number reduced to its digits and left-padded
// with zeros to 8 characters. Used for line matching and for the fiscal
// document number. Returns "" when the number carries no digits at all.
func (i Invoice) NormalizedNumber() string {
	return NormalizeNumber(i.Number)
}

// NormalizeNumber turns a free-form invoice number into an 8-digit zero-padded
// string: 74 -> "00000074". Non-digit characters are discarded first.
func NormalizeNumber(number string) string {
	digits := utils.DigitsOnly(utils.CollapseWhitespace(number))
	if digits == "" {
		return ""
	}
	if len(digits) >= 8 {
		return digits
	}
	return strings.Repeat("0", 8-len(digits)) + digits
}
