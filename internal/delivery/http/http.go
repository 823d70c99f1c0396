package http

import (
	"context"
	"golang-autotrade/config"
	"golang-autotrade/internal/service"
	"golang-autotrade/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	cfg       *config.Config
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, cfg *config.Config, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		cfg:       cfg,
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api", middleware.NewRateLimiterMiddleware(h.cfg.API.RateLimit, h.cfg.API.RateBurst))
	h.SetupHealth(base)
	h.SetupCycle(base)
	h.SetupPositions(base)
	h.SetupAnalysis(base)
}
