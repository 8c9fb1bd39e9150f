package service

import (
	"context"
	"fmt"
	"sort"

	"cmaxbonds/internal/domain"
)

// DefaultBasePrice seeds history for bonds without a configured base price
const DefaultBasePrice = 950.00

// BondCatalog is the immutable set of bonds served by the dashboard
type BondCatalog struct {
	bonds      map[string]domain.Bond
	basePrices map[string]float64
}

// NewBondCatalog creates a catalog from bonds and their base prices
func NewBondCatalog(bonds []domain.Bond, basePrices map[string]float64) *BondCatalog {
	c := &BondCatalog{
		bonds:      make(map[string]domain.Bond, len(bonds)),
		basePrices: make(map[string]float64, len(basePrices)),
	}
	for _, b := range bonds {
		c.bonds[b.ID] = b
	}
	for id, p := range basePrices {
		c.basePrices[id] = p
	}
	return c
}

// DefaultBondCatalog returns the CMAX bonds
func DefaultBondCatalog() *BondCatalog {
	return NewBondCatalog(
		[]domain.Bond{
			{
				ID:           "CMAX-2022-001",
				Name:         "Bono CMAX Corporativo 2022",
				ISIN:         "XS2337285865",
				EmissionDate: "2020-05-15",
				MaturityDate: "2025-05-15",
				CouponRate:   4.5,
				FaceValue:    1000,
				Currency:     "MXN",
			},
			{
				ID:           "CMAX-2022-002",
				Name:         "Bono CMAX Verde 2022",
				ISIN:         "XS2337285866",
				EmissionDate: "2020-06-01",
				MaturityDate: "2027-06-01",
				CouponRate:   3.8,
				FaceValue:    1000,
				Currency:     "MXN",
			},
		},
		map[string]float64{
			"CMAX-2022-001": 975.50,
			"CMAX-2022-002": 962.75,
		},
	)
}

// Get retrieves a bond by ID
func (c *BondCatalog) Get(_ context.Context, id string) (domain.Bond, error) {
	b, ok := c.bonds[id]
	if !ok {
		return domain.Bond{}, fmt.Errorf("bond %q: %w", id, domain.ErrBondNotFound)
	}
	return b, nil
}

// List returns all bonds ordered by ID
func (c *BondCatalog) List(_ context.Context) []domain.Bond {
	out := make([]domain.Bond, 0, len(c.bonds))
	for _, b := range c.bonds {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BasePrice returns the reference price used to seed the random walk of a bond
func (c *BondCatalog) BasePrice(id string) float64 {
	if p, ok := c.basePrices[id]; ok {
		return p
	}
	return DefaultBasePrice
}
