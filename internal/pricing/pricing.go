// Package pricing computes rental durations and prices. Every amount shown to
// a customer and every stored booking total goes through these functions.
package pricing

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// InclusiveDayCount returns the number of billable days between start and
// end, counting both endpoints. Both instants are truncated to midnight in
// their own location first so daylight-saving shifts do not change the count.
// The result is symmetric in its arguments and never less than 1.
func InclusiveDayCount(start, end time.Time) int {
	diff := midnight(start).Sub(midnight(end))
	if diff < 0 {
		diff = -diff
	}
	return int(math.Round(float64(diff)/float64(day))) + 1
}

// TotalPrice is dailyRate multiplied by the inclusive day count.
func TotalPrice(dailyRate float64, start, end time.Time) float64 {
	return dailyRate * float64(InclusiveDayCount(start, end))
}

// ApplyDiscount returns the discount amount for pct percent of total,
// rounded to cents. pct is clamped to [0, 100].
func ApplyDiscount(total, pct float64) float64 {
	if pct <= 0 || total <= 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return math.Round(total*pct) / 100
}

// Quote is the price breakdown of a prospective booking.
type Quote struct {
	Days               int     `json:"days"`
	DailyRate          float64 `json:"daily_rate"`
	Subtotal           float64 `json:"subtotal"`
	PromotionCode      string  `json:"promotion_code,omitempty"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	Discount           float64 `json:"discount"`
	Total              float64 `json:"total"`
}

// NewQuote prices a rental and applies an optional percentage discount.
func NewQuote(dailyRate float64, start, end time.Time, promoCode string, discountPct float64) Quote {
	days := InclusiveDayCount(start, end)
	subtotal := dailyRate * float64(days)
	discount := ApplyDiscount(subtotal, discountPct)
	q := Quote{
		Days:      days,
		DailyRate: dailyRate,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     subtotal - discount,
	}
	if discount > 0 {
		q.PromotionCode = promoCode
		q.DiscountPercentage = discountPct
	}
	return q
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
