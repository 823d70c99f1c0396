package logger

import (
	"fmt"
	"golang-autotrade/pkg/common"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// AlertSender delivers a formatted alert message, typically to telegram.
type AlertSender func(message string)

type AlertCore struct {
	core     zapcore.Core
	minLevel zapcore.Level
	send     AlertSender
}

func NewAlertCore(core zapcore.Core, minLevel zapcore.Level, send AlertSender) *AlertCore {
	return &AlertCore{core: core, minLevel: minLevel, send: send}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		core:     a.core.With(fields),
		minLevel: a.minLevel,
		send:     a.send,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	shouldSend := false
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			shouldSend = true
			break
		}
	}
	if entry.Level >= a.minLevel && shouldSend && a.send != nil {
		go a.send(FormatAlert(entry, fields))
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

// FormatAlert renders an entry and its fields as a plain-text alert.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 %s Alert\n\nMessage: %s\n", entry.Level.CapitalString(), entry.Message))
	if len(keys) > 0 {
		sb.WriteString("\nFields:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("• %s: %v\n", k, enc.Fields[k]))
		}
	}
	sb.WriteString(fmt.Sprintf("\nTime: %s", entry.Time.Format("2006-01-02 15:04:05")))
	return sb.String()
}
