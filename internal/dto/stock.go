package dto

type StockOHLCV struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

type Quote struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price"`
	Exchange  string   `json:"exchange"`
	PERatio   *float64 `json:"pe_ratio,omitempty"`
	PEGRatio  *float64 `json:"peg_ratio,omitempty"`
	MarketCap float64  `json:"market_cap"`
}

type GetStockDataParam struct {
	Symbol       string `json:"symbol"`
	Interval     string `json:"interval"`
	LookbackDays int    `json:"lookback_days"`
}

// Yahoo Finance chart API response
type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// Yahoo Finance quote API response
type YahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice float64  `json:"regularMarketPrice"`
			Exchange           string   `json:"exchange"`
			TrailingPE         *float64 `json:"trailingPE"`
			PEGRatio           *float64 `json:"pegRatio"`
			MarketCap          float64  `json:"marketCap"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// Yahoo Finance search API response, used for headlines
type YahooSearchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}
