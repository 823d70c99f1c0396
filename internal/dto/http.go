package dto

import "net/http"

type BaseResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewBaseResponse(code int, message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewBaseResponse(http.StatusBadRequest, message, nil)
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(http.StatusOK, message, data)
}

type AnalyzeSymbolRequest struct {
	Symbol string `param:"symbol" validate:"required,min=1,max=10"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	TradingMode  string `json:"trading_mode"`
	CycleRunning bool   `json:"cycle_running"`
	Positions    int    `json:"positions"`
}
