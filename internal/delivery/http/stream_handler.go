package http

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingPeriod   = streamPongTimeout * 9 / 10
)

// StreamHandler pushes realtime quotes over a websocket
type StreamHandler struct {
	bonds    *usecase.BondService
	interval time.Duration
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewStreamHandler creates a StreamHandler sending one quote per interval
func NewStreamHandler(bonds *usecase.BondService, interval time.Duration, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		bonds:    bonds,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// Stream upgrades the request and sends a realtime view immediately and then
// on every tick until the client goes away.
// GET /ws/realtime/:id?period=24h|7d|1m
func (h *StreamHandler) Stream(c echo.Context) error {
	bondID := c.Param("id")
	period := domain.ParsePeriod(c.QueryParam("period"))

	// fail before the upgrade so the client gets a normal error response
	first, err := h.bonds.Realtime(c.Request().Context(), bondID, period)
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	username, _ := middleware.GetUsername(c)
	log := h.log.With(logger.String("bond_id", bondID), logger.String("username", username))
	log.Debug("realtime stream opened", logger.String("period", string(period)))

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go h.readLoop(conn, cancel)

	if err := h.write(conn, first); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("realtime stream closed")
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return nil
			}
		case <-ticker.C:
			view, err := h.bonds.Realtime(ctx, bondID, period)
			if err != nil {
				log.Error("realtime quote failed", logger.Error(err))
				h.closeWith(conn, websocket.CloseInternalServerErr, "quote unavailable")
				return nil
			}
			if err := h.write(conn, view); err != nil {
				log.Debug("realtime stream write failed", logger.Error(err))
				return nil
			}
		}
	}
}

// readLoop drains client frames so control messages are processed and
// cancels the stream once the peer disconnects.
func (h *StreamHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, view *usecase.BondRealtime) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(Response{Success: true, Data: view})
}

func (h *StreamHandler) closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
}
