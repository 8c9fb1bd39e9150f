package domain

// Bond is a static reference record of the catalog
type Bond struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ISIN         string  `json:"isin"`
	EmissionDate string  `json:"emission_date"`
	MaturityDate string  `json:"maturity_date"`
	CouponRate   float64 `json:"coupon_rate"`
	FaceValue    float64 `json:"face_value"`
	Currency     string  `json:"currency"`
}

// DateLayout is the layout of Bond emission and maturity dates
const DateLayout = "2006-01-02"

// Period selects the window of a price history
type Period string

// Period constants
const (
	PeriodIntraday Period = "24h"
	PeriodWeekly   Period = "7d"
	PeriodMonthly  Period = "1m"
)

// ParsePeriod maps a selector to a Period; unknown selectors fall back to intraday
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeekly:
		return PeriodWeekly
	case PeriodMonthly:
		return PeriodMonthly
	default:
		return PeriodIntraday
	}
}

// PriceHistory is a synthesized price series for one period
type PriceHistory struct {
	Labels       []string  `json:"labels"`
	Prices       []float64 `json:"prices"`
	CurrentPrice float64   `json:"current_price"`
	Period       Period    `json:"period"`
}

// Quote is the realtime view of a bond for a period
type Quote struct {
	CurrentPrice  float64      `json:"current_price"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"change_percent"`
	History       QuoteHistory `json:"history_24h"`
	Period        Period       `json:"period"`
	Timestamp     string       `json:"timestamp"`
}

// QuoteHistory is the chart series attached to a Quote
type QuoteHistory struct {
	Hours  []string  `json:"hours"`
	Prices []float64 `json:"prices"`
}

// Action is the outcome of the recommendation heuristic
type Action string

// Action constants
const (
	ActionSell    Action = "SELL"
	ActionHold    Action = "HOLD"
	ActionBuyMore Action = "BUY_MORE"
)

// Recommendation is the scored advice for a bond at a price
type Recommendation struct {
	Action  Action  `json:"recommendation"`
	Reason  string  `json:"reason"`
	Metrics Metrics `json:"metrics"`
}

// Metrics are the yield figures behind a Recommendation
type Metrics struct {
	CurrentYield    float64 `json:"current_yield"`
	YTM             float64 `json:"ytm"`
	YearsToMaturity float64 `json:"years_to_maturity"`
	PremiumDiscount float64 `json:"premium_discount"`
}
