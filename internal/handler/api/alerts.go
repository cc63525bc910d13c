package api

import (
	"errors"
	"strconv"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/repository"
	"MarketWatch/internal/usecase"

	xhttp "MarketWatch/pkg/http"
	xlogger "MarketWatch/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AlertsHandler exposes alert CRUD, recent signals, and on-demand quotes.
type AlertsHandler struct {
	logger *xlogger.Logger
	store  domrepo.AlertStore
	recent *repository.RecentSignals
	agg    *usecase.Aggregator
}

func NewAlertsHandler(logger *xlogger.Logger, store domrepo.AlertStore, recent *repository.RecentSignals, agg *usecase.Aggregator) *AlertsHandler {
	return &AlertsHandler{logger: logger, store: store, recent: recent, agg: agg}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/alerts", h.Create)
	g.GET("/alerts", h.List)
	g.GET("/alerts/:id", h.Get)
	g.DELETE("/alerts/:id", h.Delete)
	g.GET("/signals", h.Signals)
	g.GET("/quotes/:symbol", h.Quote)
}

func (h *AlertsHandler) Create(c echo.Context) error {
	req := &models.CreateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	kind, err := models.ParseAlertKind(req.Kind)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("kind: %v", err))
	}

	alert := &models.Alert{
		OwnerID:   req.OwnerID,
		Symbol:    req.Symbol,
		Kind:      kind,
		Threshold: decimal.NewFromFloat(req.Threshold),
	}
	if err := h.store.Create(c.Request().Context(), alert); err != nil {
		if errors.Is(err, models.ErrOwnerLimitReached) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("alert limit reached for owner"))
		}
		h.logger.Error("create alert error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.CreatedResponse(c, alert)
}

func (h *AlertsHandler) List(c echo.Context) error {
	req := &models.ListAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alerts, err := h.store.ListByOwner(c.Request().Context(), req.OwnerID)
	if err != nil {
		h.logger.Error("list alerts error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alerts)
}

func (h *AlertsHandler) Get(c echo.Context) error {
	alert, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrAlertNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert %s not found", c.Param("id")))
		}
		h.logger.Error("get alert error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alert)
}

// Delete cancels the alert: Active moves to Disabled. Cancelling an alert
// that already triggered or was cancelled is a no-op, so the call is
// idempotent.
func (h *AlertsHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	_, err := h.store.Transition(c.Request().Context(), id, models.StatusActive, models.StatusDisabled)
	if err != nil {
		if errors.Is(err, models.ErrAlertNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert %s not found", id))
		}
		h.logger.Error("cancel alert error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *AlertsHandler) Signals(c echo.Context) error {
	signals := h.recent.List()
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit >= 0 && limit < len(signals) {
			signals = signals[:limit]
		}
	}
	return xhttp.SuccessResponse(c, signals)
}

func (h *AlertsHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbol := c.Param("symbol")
	ctx := c.Request().Context()

	var data *models.MarketData
	var err error
	if req.AllowStale {
		data, err = h.agg.ResolveAllowStale(ctx, symbol, models.KindQuote)
	} else {
		data, err = h.agg.Resolve(ctx, symbol, models.KindQuote)
	}
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", symbol))
		}
		h.logger.Error("quote resolve error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, data)
}
