package http

import (
	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/delivery/http/dto"
	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

// BondHandler serves the bond catalog and the simulated price views
type BondHandler struct {
	bonds *usecase.BondService
	log   *logger.Logger
}

// NewBondHandler creates a new BondHandler
func NewBondHandler(bonds *usecase.BondService, log *logger.Logger) *BondHandler {
	return &BondHandler{bonds: bonds, log: log}
}

// ListBonds returns the catalog
// GET /api/bonds
func (h *BondHandler) ListBonds(c echo.Context) error {
	return SuccessResponse(c, h.bonds.ListBonds(c.Request().Context()))
}

// GetBond returns bond info, the intraday history and a recommendation
// GET /api/bond/:id
func (h *BondHandler) GetBond(c echo.Context) error {
	snapshot, err := h.bonds.Snapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}
	return SuccessResponse(c, snapshot)
}

// GetRealtime returns bond info, a realtime quote and a recommendation
// GET /api/realtime/:id?period=24h|7d|1m
func (h *BondHandler) GetRealtime(c echo.Context) error {
	var q dto.RealtimeQuery
	if errs := ReadAndValidateRequest(c, &q); errs != nil {
		return BadRequestResponse(c, "Invalid request", errs)
	}

	realtime, err := h.bonds.Realtime(c.Request().Context(), q.ID, domain.ParsePeriod(q.Period))
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}
	return SuccessResponse(c, realtime)
}
