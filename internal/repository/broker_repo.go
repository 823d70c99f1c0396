package repository

import (
	"context"
	"errors"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/httpclient"
	"golang-autotrade/pkg/logger"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	brokerSuccessCode = "0"

	pathToken       = "/oauth2/tokenP"
	pathBalance     = "/uapi/overseas-stock/v1/trading/inquire-balance"
	pathBuyingPower = "/uapi/overseas-stock/v1/trading/inquire-psamount"
	pathOrder       = "/uapi/overseas-stock/v1/trading/order"

	orderTypeLimit = "00"
)

// transaction ids differ between the real and the paper (virtual) account
type trIDs struct {
	Buy         string
	Sell        string
	Balance     string
	BuyingPower string
}

var (
	realTrIDs  = trIDs{Buy: "TTTT1002U", Sell: "TTTT1006U", Balance: "TTTS3012R", BuyingPower: "TTTS3007R"}
	paperTrIDs = trIDs{Buy: "VTTT1002U", Sell: "VTTT1001U", Balance: "VTTS3012R", BuyingPower: "VTTS3007R"}
)

type brokerRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
	tokenStore TokenStore
	trIDs      trIDs
	now        func() time.Time

	mu    sync.Mutex
	token *dto.AccessToken
}

func NewBrokerRepository(cfg *config.Config, log *logger.Logger, tokenStore TokenStore) contract.OrderClient {
	ids := realTrIDs
	if cfg.Broker.IsPaper() {
		ids = paperTrIDs
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Broker.MaxRequestPerSec), 1)
	return &brokerRepository{
		httpClient: httpclient.New(log, cfg.Broker.BaseURL, cfg.Broker.Timeout, "", httpclient.WithLimiter(limiter)),
		cfg:        cfg,
		logger:     log,
		tokenStore: tokenStore,
		trIDs:      ids,
		now:        time.Now,
	}
}

// accessToken reuses the in-memory or cached token until it is within the
// refresh buffer of expiry, then requests a new one.
func (r *brokerRepository) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buffer := r.cfg.Broker.TokenRefreshBuffer
	if checkToken(r.token, r.now(), buffer) == nil {
		return r.token.AccessToken, nil
	}

	if cached, err := r.tokenStore.Load(); err == nil {
		if checkToken(cached, r.now(), buffer) == nil {
			r.token = cached
			return cached.AccessToken, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		r.logger.DebugContext(ctx, "No usable cached broker token", logger.ErrorField(err))
	}

	var tokenResp dto.BrokerTokenResponse
	resp, err := r.httpClient.Post(ctx, pathToken, dto.BrokerTokenRequest{
		GrantType: "client_credentials",
		AppKey:    r.cfg.Broker.AppKey,
		AppSecret: r.cfg.Broker.AppSecret,
	}, nil, &tokenResp)
	if err != nil {
		return "", fmt.Errorf("failed to request broker token: %w", err)
	}
	if !resp.IsSuccess() || tokenResp.AccessToken == "" {
		return "", fmt.Errorf("broker token request returned status: %d", resp.StatusCode)
	}

	r.token = &dto.AccessToken{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   r.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Unix(),
	}
	if err := r.tokenStore.Save(r.token); err != nil {
		r.logger.WarnContext(ctx, "Failed to persist broker token", logger.ErrorField(err))
	}
	return r.token.AccessToken, nil
}

func (r *brokerRepository) headers(ctx context.Context, trID string) (map[string]string, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"authorization": "Bearer " + token,
		"appkey":        r.cfg.Broker.AppKey,
		"appsecret":     r.cfg.Broker.AppSecret,
		"tr_id":         trID,
		"custtype":      "P",
		"Content-Type":  "application/json; charset=utf-8",
	}, nil
}

func (r *brokerRepository) accountParams() map[string]string {
	return map[string]string{
		"CANO":         r.cfg.Broker.AccountNumber,
		"ACNT_PRDT_CD": r.cfg.Broker.AccountProductCode,
	}
}

func (r *brokerRepository) GetBalance(ctx context.Context) (*dto.Balance, error) {
	holdings, err := r.getHoldings(ctx)
	if err != nil {
		return nil, err
	}
	buyingPower, err := r.getBuyingPower(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.Balance{BuyingPower: buyingPower, Holdings: holdings}, nil
}

func (r *brokerRepository) getHoldings(ctx context.Context) ([]dto.Holding, error) {
	headers, err := r.headers(ctx, r.trIDs.Balance)
	if err != nil {
		return nil, err
	}
	params := r.accountParams()
	params["OVRS_EXCG_CD"] = r.cfg.Trading.Exchange
	params["TR_CRCY_CD"] = r.cfg.Broker.Currency
	params["CTX_AREA_FK200"] = ""
	params["CTX_AREA_NK200"] = ""

	var balanceResp dto.BrokerBalanceResponse
	resp, err := r.httpClient.Get(ctx, pathBalance, params, headers, &balanceResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if resp.StatusCode != http.StatusOK || balanceResp.ReturnCode != brokerSuccessCode {
		return nil, fmt.Errorf("broker balance error (status %d): %s", resp.StatusCode, balanceResp.Message)
	}

	holdings := make([]dto.Holding, 0, len(balanceResp.Output1))
	for _, h := range balanceResp.Output1 {
		qty := parseAmount(h.Quantity).IntPart()
		if qty <= 0 {
			continue
		}
		holdings = append(holdings, dto.Holding{
			Symbol:       strings.ToUpper(strings.TrimSpace(h.Symbol)),
			Exchange:     h.Exchange,
			Quantity:     int(qty),
			AvgPrice:     parseAmount(h.AvgPrice).InexactFloat64(),
			CurrentPrice: parseAmount(h.CurrentPrice).InexactFloat64(),
			ProfitRate:   parseAmount(h.ProfitRate).InexactFloat64(),
		})
	}
	return holdings, nil
}

func (r *brokerRepository) getBuyingPower(ctx context.Context) (float64, error) {
	headers, err := r.headers(ctx, r.trIDs.BuyingPower)
	if err != nil {
		return 0, err
	}
	params := r.accountParams()
	params["OVRS_EXCG_CD"] = r.cfg.Trading.Exchange
	params["OVRS_ORD_UNPR"] = "0"
	params["ITEM_CD"] = ""

	var bpResp dto.BrokerBuyingPowerResponse
	resp, err := r.httpClient.Get(ctx, pathBuyingPower, params, headers, &bpResp)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch buying power: %w", err)
	}
	if resp.StatusCode != http.StatusOK || bpResp.ReturnCode != brokerSuccessCode {
		return 0, fmt.Errorf("broker buying power error (status %d): %s", resp.StatusCode, bpResp.Message)
	}
	return parseAmount(bpResp.Output.OrderableAmount).InexactFloat64(), nil
}

// PlaceOrder submits a limit order. In PAPER mode the order is only logged
// and a simulated fill is returned.
func (r *brokerRepository) PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResult, error) {
	if req.Quantity <= 0 || req.Price <= 0 {
		return nil, fmt.Errorf("invalid order for %s: qty=%d price=%f", req.Symbol, req.Quantity, req.Price)
	}

	trID := r.trIDs.Buy
	if req.Side == dto.OrderSideSell {
		trID = r.trIDs.Sell
	}
	exchange := req.Exchange
	if exchange == "" {
		exchange = r.cfg.Trading.Exchange
	}

	body := dto.BrokerOrderRequest{
		AccountNumber: r.cfg.Broker.AccountNumber,
		ProductCode:   r.cfg.Broker.AccountProductCode,
		Exchange:      exchange,
		Symbol:        req.Symbol,
		Quantity:      decimal.NewFromInt(int64(req.Quantity)).String(),
		Price:         FormatOrderPrice(req.Price),
		OrderType:     orderTypeLimit,
		ServerUse:     "0",
	}
	clientOrderID := uuid.NewString()

	if r.cfg.Broker.IsPaper() {
		r.logger.InfoContext(ctx, "PAPER order, not transmitted",
			logger.StringField("client_order_id", clientOrderID),
			logger.StringField("tr_id", trID),
			logger.StringField("side", string(req.Side)),
			logger.SymbolField(req.Symbol),
			logger.StringField("exchange", exchange),
			logger.StringField("quantity", body.Quantity),
			logger.StringField("price", body.Price))
		return &dto.OrderResult{
			Success:       true,
			OrderID:       "PAPER-" + clientOrderID[:8],
			ClientOrderID: clientOrderID,
			Message:       "paper order logged",
			Simulated:     true,
		}, nil
	}

	headers, err := r.headers(ctx, trID)
	if err != nil {
		return nil, err
	}

	var orderResp dto.BrokerOrderResponse
	resp, err := r.httpClient.Post(ctx, pathOrder, body, headers, &orderResp)
	if err != nil {
		return nil, fmt.Errorf("failed to place order for %s: %w", req.Symbol, err)
	}
	if resp.StatusCode != http.StatusOK || orderResp.ReturnCode != brokerSuccessCode {
		return &dto.OrderResult{
			Success:       false,
			ClientOrderID: clientOrderID,
			Message:       strings.TrimSpace(fmt.Sprintf("%s %s", orderResp.MessageCode, orderResp.Message)),
		}, nil
	}

	return &dto.OrderResult{
		Success:       true,
		OrderID:       orderResp.Output.OrderNumber,
		ClientOrderID: clientOrderID,
		Message:       orderResp.Message,
	}, nil
}

// FormatOrderPrice renders a limit price with cent precision, or four
// decimals below one dollar.
func FormatOrderPrice(price float64) string {
	d := decimal.NewFromFloat(price)
	if d.LessThan(decimal.NewFromInt(1)) {
		return d.StringFixed(4)
	}
	return d.StringFixed(2)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
