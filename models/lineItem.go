package models

import "github.com/shopspring/decimal"

// LineItem is the canonical in-memory line of the invoice being edited.
// Created by auto-load normalization or manual add; cleared on successful
// submission.
type LineItem struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
}

// Base is quantity * unit price, before tax.
func (li LineItem) Base() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Totals are always derived from the current line items, never stored.
type Totals struct {
	Net   decimal.Decimal `json:"netTotal"`
	Tax   decimal.Decimal `json:"taxTotal"`
	Grand decimal.Decimal `json:"grandTotal"`
}

// CalculateTotals recomputes totals from scratch on every call.
func CalculateTotals(items []LineItem) Totals {
	net := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		net = net.Add(item.Base())
		tax = tax.Add(item.TaxAmount)
	}
	net = net.Round(2)
	tax = tax.Round(2)
	return Totals{
		Net:   net,
		Tax:   tax,
		Grand: net.Add(tax),
	}
}
