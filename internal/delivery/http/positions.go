package http

import (
	"golang-autotrade/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPositions(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.GET("/positions", h.ListPositions)
		v1.GET("/regime", h.CurrentRegime)
	}
}

func (h *HttpAPIHandler) ListPositions(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Open positions", h.service.PositionManager.List()))
}

func (h *HttpAPIHandler) CurrentRegime(c echo.Context) error {
	regime := h.service.RegimeClassifier.Current(c.Request().Context())
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Market regime", regime))
}
