package common

const (
	KEY_VOLATILITY    = "volatility:%s"
	KEY_MARKET_REGIME = "market_regime"
)

const (
	EXCHANGE_NASDAQ = "NASD"
	EXCHANGE_NYSE   = "NYSE"
	EXCHANGE_AMEX   = "AMEX"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)

// ExchangeFromYahoo maps Yahoo exchange codes to broker exchange codes.
func ExchangeFromYahoo(code string) string {
	switch code {
	case "NYQ", "NYSE", "PCX":
		return EXCHANGE_NYSE
	case "ASE", "AMEX":
		return EXCHANGE_AMEX
	case "NMS", "NGM", "NCM", "NASDAQ", "NasdaqGS", "NasdaqGM", "NasdaqCM":
		return EXCHANGE_NASDAQ
	default:
		return ""
	}
}
