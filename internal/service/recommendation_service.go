package service

import (
	"fmt"
	"math"
	"time"

	"cmaxbonds/internal/domain"
)

// Recommendation thresholds
const (
	SellPremium     = 1.05 // sell at or above this multiple of face value
	BuyDiscount     = 0.95 // buy more at or below this multiple of face value
	YTMSpreadToHold = 2.0  // hold when YTM beats the coupon by more than this
)

// RecommendationService scores bonds into sell / hold / buy-more advice
type RecommendationService struct {
	valuationDate time.Time
}

// NewRecommendationService creates a scorer that measures maturity from valuationDate
func NewRecommendationService(valuationDate time.Time) *RecommendationService {
	return &RecommendationService{valuationDate: valuationDate}
}

// Recommend classifies a bond at price using current yield and an approximate YTM
func (s *RecommendationService) Recommend(bond domain.Bond, price float64) (domain.Recommendation, error) {
	maturity, err := time.Parse(domain.DateLayout, bond.MaturityDate)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("parse maturity date of %s: %w", bond.ID, err)
	}
	if price <= 0 {
		return domain.Recommendation{}, fmt.Errorf("price must be positive, got %v", price)
	}

	days := math.Floor(maturity.Sub(s.valuationDate).Hours() / 24)
	years := days / 365.25

	face := bond.FaceValue
	annualCoupon := bond.CouponRate * face / 100
	currentYield := annualCoupon / price * 100

	// matured bonds have no pull to par left
	ytm := currentYield
	if years > 0 {
		ytm = (annualCoupon + (face-price)/years) / ((face + price) / 2) * 100
	}

	rec := domain.Recommendation{
		Metrics: domain.Metrics{
			CurrentYield:    round2(currentYield),
			YTM:             round2(ytm),
			YearsToMaturity: round2(years),
			PremiumDiscount: round2((price - face) / face * 100),
		},
	}

	switch {
	case price >= face*SellPremium:
		rec.Action = domain.ActionSell
		rec.Reason = fmt.Sprintf("Bond is overvalued. Current price: $%.2f vs face value: $%.2f", price, face)
	case ytm > bond.CouponRate+YTMSpreadToHold:
		rec.Action = domain.ActionHold
		rec.Reason = fmt.Sprintf("Attractive yield to maturity: %.2f%% vs coupon rate: %.2f%%", ytm, bond.CouponRate)
	case price <= face*BuyDiscount:
		rec.Action = domain.ActionBuyMore
		rec.Reason = fmt.Sprintf("Buying opportunity. Discounted price: $%.2f", price)
	default:
		rec.Action = domain.ActionHold
		rec.Reason = "Price in normal range. Expected return is stable."
	}

	return rec, nil
}
