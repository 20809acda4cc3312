package api

import (
	"errors"

	models "macropull/internal/domain/models"
	"macropull/internal/usecase"
	xhttp "macropull/pkg/http"
	xlogger "macropull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DataHandler exposes the data service over HTTP. It only consumes the core
// contract: DataRequest in, DataResponse out.
type DataHandler struct {
	logger  *xlogger.Logger
	service *usecase.DataService
}

func NewDataHandler(logger *xlogger.Logger, service *usecase.DataService) *DataHandler {
	return &DataHandler{logger: logger, service: service}
}

func (h *DataHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/data", h.GetData)
	g.POST("/data/batch", h.GetBatch)
	g.GET("/indicators", h.Indicators)
	g.GET("/cache/stats", h.CacheStats)
	g.POST("/cache/sweep", h.CacheSweep)
	g.DELETE("/cache", h.CacheClear)
	g.DELETE("/cache/:entity/:indicator", h.CacheInvalidate)
	e.GET("/health", h.Health)
}

// GetData resolves one (entity, indicator) request.
func (h *DataHandler) GetData(c echo.Context) error {
	req := &models.DataQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	resp := h.service.Get(c.Request().Context(), domainReq)
	return h.writeResponse(c, resp)
}

// GetBatch resolves independent requests concurrently; responses come back
// in request order.
func (h *DataHandler) GetBatch(c echo.Context) error {
	req := &models.BatchDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	domainReqs := make([]models.DataRequest, 0, len(req.Requests))
	for _, r := range req.Requests {
		domainReq, err := r.ToDomain()
		if err != nil {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		domainReqs = append(domainReqs, domainReq)
	}

	responses := h.service.GetBatch(c.Request().Context(), domainReqs)
	return xhttp.SuccessResponse(c, responses)
}

// Indicators lists every indicator some registered provider can serve.
func (h *DataHandler) Indicators(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"indicators": h.service.Registry().AllIndicators(),
		"providers":  h.service.Registry().Names(),
	})
}

// CacheStats reports accumulated hit/miss counters.
func (h *DataHandler) CacheStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.service.Cache().Stats(c.Request().Context()))
}

// CacheSweep removes expired entries from both tiers.
func (h *DataHandler) CacheSweep(c echo.Context) error {
	removed, err := h.service.Cache().Sweep(c.Request().Context())
	if err != nil {
		h.logger.Error("cache sweep failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cache sweep failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]int{"removed": removed})
}

// CacheClear evicts everything.
func (h *DataHandler) CacheClear(c echo.Context) error {
	if err := h.service.Cache().Clear(c.Request().Context()); err != nil {
		h.logger.Error("cache clear failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cache clear failed").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

// CacheInvalidate evicts one (entity, indicator) key.
func (h *DataHandler) CacheInvalidate(c echo.Context) error {
	key := models.DataRequest{
		Entity:    c.Param("entity"),
		Indicator: c.Param("indicator"),
	}.Key()
	if err := h.service.Cache().Invalidate(c.Request().Context(), key); err != nil {
		h.logger.Error("cache invalidate failed", xlogger.String("key", key), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cache invalidate failed").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

// Health is a liveness probe.
func (h *DataHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// writeResponse maps the service's terminal outcomes onto HTTP statuses.
// Classification goes through the typed Err and the error sentinels; the
// Error text stays purely diagnostic.
func (h *DataHandler) writeResponse(c echo.Context, resp models.DataResponse) error {
	if resp.Success {
		return xhttp.SuccessResponse(c, resp)
	}

	switch {
	case errors.Is(resp.Err, models.ErrInvalid):
		return xhttp.BadRequestResponse(c, resp)
	case errors.Is(resp.Err, models.ErrNoProviders), errors.Is(resp.Err, models.ErrNotFound):
		return xhttp.NotFoundResponse(c, resp)
	default:
		h.logger.Warn("data request exhausted", xlogger.Error(resp.Err))
		return xhttp.ServiceUnavailableResponse(c, resp)
	}
}
