package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cmaxbonds/internal/domain"
)

// Band limits how far a synthesized price may drift from the base price
const Band = 0.10

type periodShape struct {
	points     int
	step       time.Duration
	span       time.Duration // distance from the first label to now
	layout     string
	volatility float64
	drift      bool
}

var periodShapes = map[domain.Period]periodShape{
	domain.PeriodIntraday: {points: 24, step: time.Hour, span: 23 * time.Hour, layout: "15:04", volatility: 0.01},
	domain.PeriodWeekly:   {points: 7, step: 24 * time.Hour, span: 6 * 24 * time.Hour, layout: "02/01", volatility: 0.02, drift: true},
	domain.PeriodMonthly:  {points: 15, step: 48 * time.Hour, span: 28 * 24 * time.Hour, layout: "02/01", volatility: 0.03, drift: true},
}

// PointCount returns the number of points a history of period holds
func PointCount(p domain.Period) int {
	return periodShapes[domain.ParsePeriod(string(p))].points
}

// PricingOption configures a PricingService
type PricingOption func(*PricingService)

// WithSeed makes the random walk reproducible
func WithSeed(seed uint64) PricingOption {
	return func(s *PricingService) {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		var mu sync.Mutex
		s.float = func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return r.Float64()
		}
	}
}

// WithClock overrides the clock used for labels and timestamps
func WithClock(now func() time.Time) PricingOption {
	return func(s *PricingService) {
		s.now = now
	}
}

// PricingService synthesizes bond prices from a bounded random walk
type PricingService struct {
	catalog *BondCatalog
	float   func() float64
	now     func() time.Time
}

// NewPricingService creates a new PricingService
func NewPricingService(catalog *BondCatalog, opts ...PricingOption) *PricingService {
	s := &PricingService{
		catalog: catalog,
		float:   rand.Float64,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History generates a price history for a bond over the given period.
// Unknown periods are treated as intraday.
func (s *PricingService) History(bondID string, period domain.Period) domain.PriceHistory {
	period = domain.ParsePeriod(string(period))
	shape := periodShapes[period]
	base := s.catalog.BasePrice(bondID)

	start := s.now().Add(-shape.span)
	labels := make([]string, shape.points)
	for i := range labels {
		labels[i] = start.Add(time.Duration(i) * shape.step).Format(shape.layout)
	}

	low, high := base*(1-Band), base*(1+Band)
	prices := make([]float64, shape.points)
	current := base
	for i := range prices {
		trend := s.uniform(-shape.volatility, shape.volatility)
		if shape.drift {
			trend += 0.001 * float64(i)
		}
		current *= 1 + trend
		current = max(low, min(high, current))
		prices[i] = round2(current)
	}

	return domain.PriceHistory{
		Labels:       labels,
		Prices:       prices,
		CurrentPrice: prices[len(prices)-1],
		Period:       period,
	}
}

// Quote produces the realtime view of a bond: a jittered current price
// together with the history of the period and the change since its first point.
func (s *PricingService) Quote(bondID string, period domain.Period) domain.Quote {
	base := s.catalog.BasePrice(bondID)
	current := round2(base * (1 + s.uniform(-0.005, 0.005)))

	history := s.History(bondID, period)
	first := history.Prices[0]
	change := current - first

	return domain.Quote{
		CurrentPrice:  current,
		Change:        round2(change),
		ChangePercent: round2(change / first * 100),
		History: domain.QuoteHistory{
			Hours:  history.Labels,
			Prices: history.Prices,
		},
		Period:    history.Period,
		Timestamp: s.now().Format("2006-01-02 15:04:05"),
	}
}

func (s *PricingService) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.float()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
