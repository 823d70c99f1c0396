package http

import (
	"golang-autotrade/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAnalysis(base *echo.Group) {
	base.GET("/v1/analysis/:symbol", h.AnalyzeSymbol)
}

func (h *HttpAPIHandler) AnalyzeSymbol(c echo.Context) error {
	req := new(dto.AnalyzeSymbolRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.StockAnalyzer.AnalyzeSymbol(c.Request().Context(), req.Symbol)
	if err != nil {
		return c.JSON(http.StatusBadGateway, dto.NewBaseResponse(http.StatusBadGateway, "failed to analyze symbol", nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Analysis", result))
}
