package telegram

import (
	"fmt"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/model"
	"golang-autotrade/pkg/utils"
	"strings"
	"time"
)

const helpMessage = `🤖 *Autotrade Bot*

/status - Trading mode, open positions and next scheduled run
/positions - Open positions with their stops
/regime - Current market regime and gating
/run - Run one trading cycle now
/help - Show this message`

type statusView struct {
	TradingMode  string
	CycleRunning bool
	Positions    int
	Exposure     float64
	NextRun      time.Time
}

func formatStatus(s statusView) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚙️ Mode: %s\n", s.TradingMode))
	if s.CycleRunning {
		sb.WriteString("🔄 Cycle: running\n")
	} else {
		sb.WriteString("💤 Cycle: idle\n")
	}
	sb.WriteString(fmt.Sprintf("📦 Positions: %d (%s invested)\n", s.Positions, utils.FormatUSD(s.Exposure)))
	if s.NextRun.IsZero() {
		sb.WriteString("⏰ Next run: not scheduled")
	} else {
		sb.WriteString(fmt.Sprintf("⏰ Next run: %s", utils.PrettyDate(s.NextRun)))
	}
	return sb.String()
}

func formatPositions(positions []*model.Position) string {
	if len(positions) == 0 {
		return "📭 No open positions."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Open positions (%d)\n", len(positions)))
	for _, p := range positions {
		sb.WriteString(fmt.Sprintf("\n[%s] %d/%d @ %s\n", p.Symbol, p.Quantity, p.OriginalQuantity, utils.FormatUSD(p.EntryPrice)))
		stop := "Stop"
		if p.TrailingStopActive {
			stop = "Trailing stop"
		}
		sb.WriteString(fmt.Sprintf("%s: %s | High: %s\n", stop, utils.FormatUSD(p.CurrentStopLoss), utils.FormatUSD(p.HighestPrice)))
		if len(p.TakeProfitLevelsHit) > 0 {
			levels := make([]string, 0, len(p.TakeProfitLevelsHit))
			for _, l := range p.TakeProfitLevelsHit {
				levels = append(levels, fmt.Sprintf("TP%d", l))
			}
			sb.WriteString(fmt.Sprintf("Hit: %s\n", strings.Join(levels, ", ")))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRegime(r dto.MarketRegime) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🌡 Regime: %s", r.Regime))
	if r.IsFallback {
		sb.WriteString(" (fallback)")
	}
	sb.WriteString(fmt.Sprintf("\nFear index: %.2f | Benchmark: %s\n", r.FearIndex, r.BenchmarkTrend))
	sb.WriteString(fmt.Sprintf("Session: %s\n", r.Session))
	sb.WriteString(fmt.Sprintf("Buy: %s | Sell: %s | Size x%.2f", yesNo(r.AllowBuy), yesNo(r.AllowSell), r.PositionSizeMultiplier))
	for _, reason := range r.Reasons {
		sb.WriteString("\n• " + reason)
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "✅"
	}
	return "⛔"
}
