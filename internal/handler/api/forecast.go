package api

import (
	"errors"

	models "StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/quotes"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/features"
	"StockCast/internal/services/forecast"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// intradayCacheControl matches the short-lived CDN caching the intraday data
// tolerates: always revalidate at the edge, serve stale for a short grace
// window while doing so.
const intradayCacheControl = "public, max-age=0, s-maxage=20, stale-while-revalidate=40"

// ForecastHandler serves the forecast, price history and intraday proxy
// endpoints.
type ForecastHandler struct {
	logger   *xlogger.Logger
	tickers  *models.TickerSet
	sessions *usecase.SessionManager
	gateway  drepo.QuoteGateway
	rl       *ratelimit.Limiter
}

func NewForecastHandler(logger *xlogger.Logger, tickers *models.TickerSet, sessions *usecase.SessionManager, gateway drepo.QuoteGateway) *ForecastHandler {
	return &ForecastHandler{logger: logger, tickers: tickers, sessions: sessions, gateway: gateway, rl: ratelimit.New()}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/prices", h.Prices)
	g.GET("/intraday", h.Intraday)
	g.GET("/tickers", h.Tickers)
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.sessions.Forecast(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.forecastError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.sessions.Prices(c.Request().Context(), req.Ticker, req.Days)
	if err != nil {
		return h.forecastError(c, err)
	}
	return xhttp.SuccessResponse(c, rows)
}

// Intraday proxies the provider's intraday chart for an allow-listed ticker.
func (h *ForecastHandler) Intraday(c echo.Context) error {
	req := &models.IntradayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.tickers.Require(req.Ticker); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	if !h.rl.Allow(c.RealIP()+":intraday", 5, 2) {
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}

	series, err := h.gateway.Intraday(c.Request().Context(), req.Ticker)
	if err != nil {
		h.logger.Warn("intraday proxy upstream error",
			xlogger.String("ticker", req.Ticker),
			xlogger.Error(err))
		return xhttp.BadGatewayResponse(c, "upstream unavailable")
	}

	c.Response().Header().Set(echo.HeaderCacheControl, intradayCacheControl)
	return xhttp.SuccessResponse(c, series)
}

// Tickers lists the instruments the service can forecast.
func (h *ForecastHandler) Tickers(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.tickers.Symbols())
}

func (h *ForecastHandler) forecastError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrUnsupportedTicker):
		return xhttp.BadRequestResponse(c, err.Error())
	case errors.Is(err, features.ErrInsufficientData),
		errors.Is(err, forecast.ErrArtifactLoad),
		errors.Is(err, forecast.ErrShapeMismatch):
		h.logger.Error("forecast unavailable", xlogger.Error(err))
		return xhttp.ServiceUnavailableResponse(c, "forecast unavailable")
	case errors.Is(err, quotes.ErrUpstream):
		return xhttp.BadGatewayResponse(c, "upstream unavailable")
	default:
		h.logger.Error("forecast handler error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
