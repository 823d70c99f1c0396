package dto

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type Holding struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange"`
	Quantity     int     `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	ProfitRate   float64 `json:"profit_rate"`
}

func (h Holding) MarketValue() float64 {
	return float64(h.Quantity) * h.CurrentPrice
}

type Balance struct {
	BuyingPower float64   `json:"buying_power"`
	Holdings    []Holding `json:"holdings"`
}

// HoldingsValue is the marked-to-market value of every holding.
func (b *Balance) HoldingsValue() float64 {
	total := 0.0
	for _, h := range b.Holdings {
		total += h.MarketValue()
	}
	return total
}

// TotalCapital is buying power plus holdings value.
func (b *Balance) TotalCapital() float64 {
	return b.BuyingPower + b.HoldingsValue()
}

type OrderRequest struct {
	Symbol   string    `json:"symbol" validate:"required"`
	Exchange string    `json:"exchange"`
	Side     OrderSide `json:"side" validate:"oneof=BUY SELL"`
	Quantity int       `json:"quantity" validate:"gt=0"`
	Price    float64   `json:"price" validate:"gt=0"`
}

type OrderResult struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Message       string `json:"message"`
	Simulated     bool   `json:"simulated"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type BrokerTokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type BrokerTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type BrokerBalanceResponse struct {
	ReturnCode string `json:"rt_cd"`
	Message    string `json:"msg1"`
	Output1    []struct {
		Symbol       string `json:"ovrs_pdno"`
		Exchange     string `json:"ovrs_excg_cd"`
		Quantity     string `json:"ovrs_cblc_qty"`
		AvgPrice     string `json:"pchs_avg_pric"`
		CurrentPrice string `json:"now_pric2"`
		ProfitRate   string `json:"evlu_pfls_rt"`
	} `json:"output1"`
}

type BrokerBuyingPowerResponse struct {
	ReturnCode string `json:"rt_cd"`
	Message    string `json:"msg1"`
	Output     struct {
		OrderableAmount string `json:"ovrs_ord_psbl_amt"`
	} `json:"output"`
}

type BrokerOrderRequest struct {
	AccountNumber string `json:"CANO"`
	ProductCode   string `json:"ACNT_PRDT_CD"`
	Exchange      string `json:"OVRS_EXCG_CD"`
	Symbol        string `json:"PDNO"`
	Quantity      string `json:"ORD_QTY"`
	Price         string `json:"OVRS_ORD_UNPR"`
	OrderType     string `json:"ORD_DVSN"`
	ServerUse     string `json:"ORD_SVR_DVSN_CD"`
}

type BrokerOrderResponse struct {
	ReturnCode  string `json:"rt_cd"`
	MessageCode string `json:"msg_cd"`
	Message     string `json:"msg1"`
	Output      struct {
		OrderNumber string `json:"ODNO"`
	} `json:"output"`
}
