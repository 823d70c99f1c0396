package utils

import (
	"bytes"
	"context"
	"fmt"
	"golang-autotrade/pkg/logger"
	"html"
	"log"
	"math"
	"runtime"
	"runtime/debug"
	"strings"
	"unicode/utf8"
)

func CleanToValidUTF8(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		buf.WriteRune(r)
		i += size
	}
	return buf.String()
}

func SafeText(text string) string {
	return CleanToValidUTF8(html.UnescapeString(text))
}

// GoSafe runs the given function in a new goroutine and recovers from any panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Panic Recovered] %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

func ToPointer[T any](value T) *T {
	return &value
}

func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		pc, _, _, ok := runtime.Caller(1)
		funcName := "unknown"
		if ok {
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				parts := strings.Split(fn.Name(), "/")
				funcName = parts[len(parts)-1]
			}
		}

		log.Warn("Context cancelled",
			logger.StringField("caller", funcName),
		)
		return false
	default:
		return true
	}
}

func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

func RoundTo(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(value*p) / p
}

// NormalizeSymbols upper-cases, trims and de-duplicates tickers, keeping order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func FormatPercentage(value float64) string {
	return fmt.Sprintf("%+.2f%%", value)
}

func FormatUSD(value float64) string {
	return fmt.Sprintf("$%.2f", value)
}
