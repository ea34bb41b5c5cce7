package types

import "github.com/shopspring/decimal"

// CartSummaryItem is the lightweight line representation returned by the
// cart summary and AJAX add-to-cart endpoints.
type CartSummaryItem struct {
	ID       string          `json:"id"`
	Service  string          `json:"service"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Image    *string         `json:"image"`
}

// CartSummary mirrors the {items, total, count} JSON contract.
type CartSummary struct {
	Items []CartSummaryItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"count"`
}
