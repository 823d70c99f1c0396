package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","exchangeName":"NMS","regularMarketPrice":191.5},
"timestamp":[1,2,3],
"indicators":{"quote":[{"open":[190,0,192],"high":[191,191,193],"low":[189,189,191],"close":[190.5,190,192.5],"volume":[1000,900,1100]}]}}],"error":null}}`

func TestMarketDataFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		writeJSON(w, chartBody)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") != "MSFT" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, `{"quoteResponse":{"result":[{"symbol":"MSFT","regularMarketPrice":410.2,"exchange":"NMS","trailingPE":35.1,"pegRatio":2.1,"marketCap":3000000000000}]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	repo := NewMarketDataRepository(newTestConfig(srv.URL), logger.NewNop())
	ctx := context.Background()

	bars, err := repo.FetchMarketData(ctx, "AAPL", "", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2, "rows with zero values are skipped")
	assert.Equal(t, dto.StockOHLCV{Timestamp: 3, Open: 192, High: 193, Low: 191, Close: 192.5, Volume: 1100}, bars[1])

	quote, err := repo.FetchQuote(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.2, quote.Price)
	assert.Equal(t, "NASD", quote.Exchange)
	require.NotNil(t, quote.PERatio)
	assert.Equal(t, 35.1, *quote.PERatio)

	// quote endpoint rejects AAPL, the chart meta price is used instead
	quote, err = repo.FetchQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 191.5, quote.Price)
	assert.Nil(t, quote.PERatio)
}

func TestMarketDataFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	repo := NewMarketDataRepository(newTestConfig(srv.URL), logger.NewNop())
	_, err := repo.FetchMarketData(context.Background(), "NOPE", dto.IntervalDaily, 30)
	assert.Error(t, err)
	_, err = repo.FetchQuote(context.Background(), "NOPE")
	assert.Error(t, err)
}
