// internal/domain/order/totals.go
package order

// Totals is the priced breakdown of an order, computed exactly once at
// creation. The invariant Total = Subtotal + Shipping - Discount + Tax
// holds for every persisted order and is never silently recomputed.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// ComputeTotals derives the order totals from the materialized subtotal
// and the chosen shipping cost. Tax and discount are percentages of the
// merchandise subtotal, not of shipping.
func ComputeTotals(subtotal, shippingCost int64, taxRatePercent, discountPercent float64) Totals {
	tax := int64(float64(subtotal) * taxRatePercent / 100)
	discount := int64(float64(subtotal) * discountPercent / 100)

	return Totals{
		Subtotal: subtotal,
		Shipping: shippingCost,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal + shippingCost - discount + tax,
	}
}
