package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/metrics"
	"cmaxbonds/internal/service"
)

func newBondService() *BondService {
	catalog := service.DefaultBondCatalog()
	return NewBondService(
		catalog,
		service.NewPricingService(catalog, service.WithSeed(42)),
		service.NewRecommendationService(time.Date(2022, 11, 16, 0, 0, 0, 0, time.UTC)),
		metrics.New(),
	)
}

func TestBondSnapshot(t *testing.T) {
	svc := newBondService()

	snap, err := svc.Snapshot(context.Background(), "CMAX-2022-001")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.History.Period != domain.PeriodIntraday || len(snap.History.Prices) != 24 {
		t.Errorf("history = %s with %d points", snap.History.Period, len(snap.History.Prices))
	}

	// the advice is computed at the last price of the history
	want, err := service.NewRecommendationService(time.Date(2022, 11, 16, 0, 0, 0, 0, time.UTC)).
		Recommend(snap.Bond, snap.History.CurrentPrice)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if snap.Recommendation != want {
		t.Errorf("recommendation = %+v, want %+v", snap.Recommendation, want)
	}

	if _, err := svc.Snapshot(context.Background(), "NOPE"); !errors.Is(err, domain.ErrBondNotFound) {
		t.Errorf("unknown bond error = %v, want ErrBondNotFound", err)
	}
}

func TestBondRealtime(t *testing.T) {
	svc := newBondService()

	tests := []struct {
		period domain.Period
		points int
	}{
		{domain.PeriodIntraday, 24},
		{domain.PeriodWeekly, 7},
		{domain.PeriodMonthly, 15},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			view, err := svc.Realtime(context.Background(), "CMAX-2022-002", tt.period)
			if err != nil {
				t.Fatalf("Realtime: %v", err)
			}
			if view.Quote.Period != tt.period || len(view.Quote.History.Prices) != tt.points {
				t.Errorf("quote = %s with %d points", view.Quote.Period, len(view.Quote.History.Prices))
			}
			if view.Bond.ID != "CMAX-2022-002" {
				t.Errorf("bond = %s", view.Bond.ID)
			}
		})
	}

	if got := len(svc.ListBonds(context.Background())); got != 2 {
		t.Errorf("ListBonds returned %d bonds, want 2", got)
	}
}
