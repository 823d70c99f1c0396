package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-autotrade/pkg/utils"
)

type AlertType string

const (
	Buy          AlertType = "BUY"
	TakeProfit   AlertType = "TAKE_PROFIT"
	StopLoss     AlertType = "STOP_LOSS"
	TrailingStop AlertType = "TRAILING_STOP"
	SignalSell   AlertType = "SIGNAL_SELL"
)

type TradeAlert struct {
	Type      AlertType
	Symbol    string
	Quantity  int
	Price     float64
	ReturnPct *float64
	Score     *float64
	OrderID   string
	Simulated bool
	Success   bool
	Message   string
	Time      time.Time
}

func alertTitle(alertType AlertType) (string, string) {
	switch alertType {
	case Buy:
		return "🟢", "Buy Executed"
	case TakeProfit:
		return "🎯", "Take Profit"
	case StopLoss:
		return "⚠️", "Stop Loss"
	case TrailingStop:
		return "📉", "Trailing Stop"
	case SignalSell:
		return "🔻", "Signal Sell"
	default:
		return "🔔", "Trade"
	}
}

// FormatTradeAlert renders an executed or failed order as a telegram message.
func FormatTradeAlert(a TradeAlert) string {
	var builder strings.Builder

	emoji, title := alertTitle(a.Type)
	if !a.Success {
		emoji, title = "❌", title+" Failed"
	}
	if a.Simulated {
		title += " (PAPER)"
	}

	builder.WriteString(fmt.Sprintf("%s [%s] %s\n", emoji, a.Symbol, title))
	builder.WriteString(fmt.Sprintf("Qty: %d @ %s\n", a.Quantity, utils.FormatUSD(a.Price)))
	if a.ReturnPct != nil {
		builder.WriteString(fmt.Sprintf("Return: %s\n", utils.FormatPercentage(*a.ReturnPct)))
	}
	if a.Score != nil {
		builder.WriteString(fmt.Sprintf("Score: %.1f\n", *a.Score))
	}
	if a.OrderID != "" {
		builder.WriteString(fmt.Sprintf("Order: %s\n", a.OrderID))
	}
	if a.Message != "" {
		builder.WriteString(fmt.Sprintf("Note: %s\n", a.Message))
	}
	builder.WriteString(utils.PrettyDate(a.Time))
	return builder.String()
}

func FormatCycleSummary(started time.Time, duration time.Duration, regime string, executed, failed int) string {
	return fmt.Sprintf(`📊 Cycle finished
%s
Regime: %s
Executed: %d | Failed: %d
Duration: %s`, utils.PrettyDate(started), regime, executed, failed, duration.Round(time.Millisecond))
}
