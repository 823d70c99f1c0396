package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang-autotrade/config"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBrokerServer(t *testing.T, tokenCalls *int32, orders *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pathToken, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.BrokerTokenResponse{AccessToken: "tok-1", TokenType: "Bearer", ExpiresIn: 86400})
	})
	mux.HandleFunc(pathBalance, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("authorization"))
		assert.Equal(t, realTrIDs.Balance, r.Header.Get("tr_id"))
		writeJSON(w, `{"rt_cd":"0","msg1":"ok","output1":[
			{"ovrs_pdno":"aapl","ovrs_excg_cd":"NASD","ovrs_cblc_qty":"10","pchs_avg_pric":"180.5000","now_pric2":"190.2500","evlu_pfls_rt":"5.40"},
			{"ovrs_pdno":"GONE","ovrs_excg_cd":"NASD","ovrs_cblc_qty":"0","pchs_avg_pric":"1","now_pric2":"1","evlu_pfls_rt":"0"}]}`)
	})
	mux.HandleFunc(pathBuyingPower, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"rt_cd":"0","msg1":"ok","output":{"ovrs_ord_psbl_amt":"12,345.67"}}`)
	})
	mux.HandleFunc(pathOrder, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(orders, 1)
		var body dto.BrokerOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "190.25", body.Price)
		assert.Equal(t, "5", body.Quantity)
		if body.Symbol == "FAIL" {
			writeJSON(w, `{"rt_cd":"1","msg_cd":"APBK0013","msg1":"insufficient funds"}`)
			return
		}
		writeJSON(w, `{"rt_cd":"0","msg1":"accepted","output":{"ODNO":"0001234"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBrokerGetBalance(t *testing.T) {
	var tokenCalls, orders int32
	srv := newBrokerServer(t, &tokenCalls, &orders)
	cfg := newTestConfig(srv.URL)
	cfg.Broker.TokenCacheFile = filepath.Join(t.TempDir(), "token.json")

	broker := NewBrokerRepository(cfg, logger.NewNop(), NewFileTokenStore(cfg.Broker.TokenCacheFile))
	balance, err := broker.GetBalance(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 12345.67, balance.BuyingPower, 1e-9)
	require.Len(t, balance.Holdings, 1)
	assert.Equal(t, "AAPL", balance.Holdings[0].Symbol)
	assert.Equal(t, 10, balance.Holdings[0].Quantity)
	assert.InDelta(t, 190.25, balance.Holdings[0].CurrentPrice, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token is reused across calls")
}

func TestBrokerReusesCachedToken(t *testing.T) {
	var tokenCalls, orders int32
	srv := newBrokerServer(t, &tokenCalls, &orders)
	cfg := newTestConfig(srv.URL)
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	store := NewFileTokenStore(tokenFile)
	require.NoError(t, store.Save(&dto.AccessToken{AccessToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour).Unix()}))

	broker := NewBrokerRepository(cfg, logger.NewNop(), store)
	_, err := broker.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&tokenCalls))
}

func TestBrokerPlaceOrderReal(t *testing.T) {
	var tokenCalls, orders int32
	srv := newBrokerServer(t, &tokenCalls, &orders)
	cfg := newTestConfig(srv.URL)
	broker := NewBrokerRepository(cfg, logger.NewNop(), NewFileTokenStore(filepath.Join(t.TempDir(), "token.json")))

	res, err := broker.PlaceOrder(context.Background(), dto.OrderRequest{Symbol: "AAPL", Side: dto.OrderSideBuy, Quantity: 5, Price: 190.25})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0001234", res.OrderID)
	assert.NotEmpty(t, res.ClientOrderID)
	assert.False(t, res.Simulated)

	res, err = broker.PlaceOrder(context.Background(), dto.OrderRequest{Symbol: "FAIL", Side: dto.OrderSideSell, Quantity: 5, Price: 190.25})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "insufficient funds")
	assert.Equal(t, int32(2), atomic.LoadInt32(&orders))
}

func TestBrokerPlaceOrderPaperIsNotTransmitted(t *testing.T) {
	var tokenCalls, orders int32
	srv := newBrokerServer(t, &tokenCalls, &orders)
	cfg := newTestConfig(srv.URL)
	cfg.Broker.TradingMode = config.TradingModePaper
	broker := NewBrokerRepository(cfg, logger.NewNop(), NewFileTokenStore(filepath.Join(t.TempDir(), "token.json")))

	res, err := broker.PlaceOrder(context.Background(), dto.OrderRequest{Symbol: "AAPL", Side: dto.OrderSideBuy, Quantity: 5, Price: 190.25})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Simulated)
	assert.Contains(t, res.OrderID, "PAPER-")
	assert.Equal(t, int32(0), atomic.LoadInt32(&orders))
	assert.Equal(t, paperTrIDs, broker.(*brokerRepository).trIDs)
}

func TestBrokerPlaceOrderRejectsInvalid(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:1")
	broker := NewBrokerRepository(cfg, logger.NewNop(), NewFileTokenStore(filepath.Join(t.TempDir(), "token.json")))
	_, err := broker.PlaceOrder(context.Background(), dto.OrderRequest{Symbol: "AAPL", Side: dto.OrderSideBuy, Quantity: 0, Price: 10})
	assert.Error(t, err)
}

func TestFormatOrderPriceAndParseAmount(t *testing.T) {
	assert.Equal(t, "190.25", FormatOrderPrice(190.25))
	assert.Equal(t, "100.47", FormatOrderPrice(100.4700001))
	assert.Equal(t, "0.5123", FormatOrderPrice(0.51234))
	assert.Equal(t, 12345.67, parseAmount("12,345.67").InexactFloat64())
	assert.True(t, parseAmount("n/a").IsZero())
}
