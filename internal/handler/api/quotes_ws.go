package api

import (
	"net/http"
	"time"

	models "StockCast/internal/domain/models"
	"StockCast/internal/usecase"
	xlogger "StockCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Quotes are public data; origin policy is handled by the CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// QuoteStreamHandler upgrades /ws/quotes to a websocket and forwards accepted
// live quotes for one ticker per connection. Visibility messages from the
// client re-pace the underlying scheduler.
type QuoteStreamHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionManager
}

func NewQuoteStreamHandler(logger *xlogger.Logger, sessions *usecase.SessionManager) *QuoteStreamHandler {
	return &QuoteStreamHandler{logger: logger, sessions: sessions}
}

func (h *QuoteStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/quotes", h.Stream)
}

// clientMessage is the only inbound message shape: visibility updates.
type clientMessage struct {
	Type       string `json:"type"`
	Visibility string `json:"visibility"`
}

func (h *QuoteStreamHandler) Stream(c echo.Context) error {
	ticker := c.QueryParam("ticker")
	sub, err := h.sessions.Subscribe(c.Request().Context(), ticker)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		sub.Close()
		return err
	}
	defer conn.Close()
	defer sub.Close()

	h.logger.Info("quote stream opened",
		xlogger.String("ticker", ticker),
		xlogger.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go h.readLoop(conn, ticker, done)

	// Send the last known quote right away so new connections do not wait a
	// full poll cycle for their first frame.
	if last := h.sessions.Latest(ticker); last != nil {
		if err := h.writeQuote(conn, last); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case q, ok := <-sub.Quotes():
			if !ok {
				return nil
			}
			if err := h.writeQuote(conn, q); err != nil {
				h.logger.Debug("quote stream write failed",
					xlogger.String("ticker", ticker),
					xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (h *QuoteStreamHandler) writeQuote(conn *websocket.Conn, q *models.LiveQuote) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(q)
}

// readLoop drains client frames, applying visibility changes until the peer
// goes away.
func (h *QuoteStreamHandler) readLoop(conn *websocket.Conn, ticker string, done chan struct{}) {
	defer close(done)
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != "visibility" {
			continue
		}
		v := usecase.VisibilityForeground
		if msg.Visibility == "background" {
			v = usecase.VisibilityBackground
		}
		h.sessions.SetVisibility(ticker, v)
	}
}
