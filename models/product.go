package models

import "github.com/shopspring/decimal"

// Product is a read-only catalog entry projected from the hosted table store.
type Product struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}
