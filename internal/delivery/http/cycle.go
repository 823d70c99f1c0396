package http

import (
	"errors"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupHealth(base *echo.Group) {
	base.GET("/health", h.Health)
}

func (h *HttpAPIHandler) SetupCycle(base *echo.Group) {
	v1 := base.Group("/v1/cycle")
	{
		v1.POST("/run", h.RunCycle)
	}
}

func (h *HttpAPIHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", dto.HealthResponse{
		Status:       "ok",
		TradingMode:  h.cfg.Broker.TradingMode,
		CycleRunning: h.service.TradingService.IsRunning(),
		Positions:    h.service.PositionManager.Count(),
	}))
}

// RunCycle triggers a trading cycle outside the schedule and waits for it.
func (h *HttpAPIHandler) RunCycle(c echo.Context) error {
	report, err := h.service.TradingService.RunCycle(c.Request().Context())
	if errors.Is(err, service.ErrCycleInProgress) {
		return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, err.Error(), nil))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), report))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Cycle finished", report))
}
