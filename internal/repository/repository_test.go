package repository

import (
	"net/http"
	"time"

	"golang-autotrade/config"
)

func newTestConfig(baseURL string) *config.Config {
	return &config.Config{
		Broker: config.Broker{
			BaseURL:            baseURL,
			AppKey:             "key",
			AppSecret:          "secret",
			AccountNumber:      "12345678",
			AccountProductCode: "01",
			TradingMode:        config.TradingModeReal,
			Currency:           "USD",
			Timeout:            5 * time.Second,
			MaxRequestPerSec:   100,
			TokenRefreshBuffer: 10 * time.Minute,
		},
		MarketData: config.MarketData{BaseURL: baseURL, Timeout: 5 * time.Second, MaxRequestPerMinute: 6000},
		News:       config.News{BaseURL: baseURL, Timeout: 5 * time.Second, MaxHeadlines: 3, MaxRequestPerMinute: 6000},
		Trading:    config.Trading{Exchange: "NASD"},
		PositionStore: config.PositionStore{
			Driver: config.StoreDriverFile,
		},
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}
