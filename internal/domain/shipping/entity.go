// internal/domain/shipping/entity.go
package shipping

// MinChargeableWeightGrams is the weight floor applied to rate requests.
// Providers zero-rate sub-100g parcels, which would let a checkout
// through with no shipping cost at all.
const MinChargeableWeightGrams = 100

// Location represents a normalized provider-side location record
type Location struct {
	ID          string `json:"id"`
	Province    string `json:"province"`
	City        string `json:"city"`
	District    string `json:"district"`
	Subdistrict string `json:"subdistrict"`
	PostalCode  string `json:"postal_code"`
}

// RateRequest represents a shipping rate lookup
type RateRequest struct {
	OriginID       string `json:"origin_id"`
	DestinationID  string `json:"destination_id"`
	WeightGrams    int    `json:"weight_grams"`
	DeclaredValue  int64  `json:"declared_value"` // For insurance, in IDR
	CashOnDelivery bool   `json:"cash_on_delivery"`
}

// Quote represents a priced shipping service option returned by the
// rate provider. Quotes are ephemeral: only the one chosen at checkout
// is denormalized into the order.
type Quote struct {
	Courier       string `json:"courier"`
	Service       string `json:"service"`
	Description   string `json:"description"`
	Cost          int64  `json:"cost"` // In IDR
	EstimatedDays string `json:"estimated_days"`
}
