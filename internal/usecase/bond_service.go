package usecase

import (
	"context"
	"fmt"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/metrics"
	"cmaxbonds/internal/service"
)

// BondSnapshot is a bond with its intraday history and the advice at the last price
type BondSnapshot struct {
	Bond           domain.Bond           `json:"bond_info"`
	History        domain.PriceHistory   `json:"history"`
	Recommendation domain.Recommendation `json:"recommendation"`
}

// BondRealtime is a bond with a realtime quote and the advice at the quoted price
type BondRealtime struct {
	Bond           domain.Bond           `json:"bond_info"`
	Quote          domain.Quote          `json:"realtime_data"`
	Recommendation domain.Recommendation `json:"recommendation"`
}

// BondService assembles bond views from the catalog and the pricing models
type BondService struct {
	catalog     *service.BondCatalog
	pricing     *service.PricingService
	recommender *service.RecommendationService
	metrics     *metrics.Recorder
}

// NewBondService creates a new BondService
func NewBondService(
	catalog *service.BondCatalog,
	pricing *service.PricingService,
	recommender *service.RecommendationService,
	rec *metrics.Recorder,
) *BondService {
	return &BondService{
		catalog:     catalog,
		pricing:     pricing,
		recommender: recommender,
		metrics:     rec,
	}
}

// ListBonds returns the catalog
func (s *BondService) ListBonds(ctx context.Context) []domain.Bond {
	return s.catalog.List(ctx)
}

// Snapshot returns the intraday view of a bond
func (s *BondService) Snapshot(ctx context.Context, bondID string) (*BondSnapshot, error) {
	bond, err := s.catalog.Get(ctx, bondID)
	if err != nil {
		return nil, err
	}

	history := s.pricing.History(bondID, domain.PeriodIntraday)
	rec, err := s.recommend(bond, history.CurrentPrice)
	if err != nil {
		return nil, err
	}

	return &BondSnapshot{Bond: bond, History: history, Recommendation: rec}, nil
}

// Realtime returns the realtime view of a bond over period
func (s *BondService) Realtime(ctx context.Context, bondID string, period domain.Period) (*BondRealtime, error) {
	bond, err := s.catalog.Get(ctx, bondID)
	if err != nil {
		return nil, err
	}

	quote := s.pricing.Quote(bondID, period)
	rec, err := s.recommend(bond, quote.CurrentPrice)
	if err != nil {
		return nil, err
	}

	return &BondRealtime{Bond: bond, Quote: quote, Recommendation: rec}, nil
}

func (s *BondService) recommend(bond domain.Bond, price float64) (domain.Recommendation, error) {
	rec, err := s.recommender.Recommend(bond, price)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("recommend %s: %w", bond.ID, err)
	}
	s.metrics.Recommendation(bond.ID, string(rec.Action))
	return rec, nil
}
