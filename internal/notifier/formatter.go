package notifier

import (
	"fmt"
	"strings"

	"KumoSentinel/internal/model"
	"KumoSentinel/internal/strategy"
)

// FormatSignalAlert builds the subject and body for a BUY or SELL alert.
func FormatSignalAlert(symbol string, snap model.IchimokuSnapshot, sig model.Signal) (subject, body string) {
	subject = fmt.Sprintf("%s signal for %s on %s", sig, symbol, snap.Date.Format(model.DayLayout))
	body = FormatSnapshot(symbol, snap, sig)
	return subject, body
}

// FormatSnapshot renders the Ichimoku readings as plain text.
func FormatSnapshot(symbol string, snap model.IchimokuSnapshot, sig model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s | %s\n\n", symbol, snap.Date.Format(model.DayLayout)))
	b.WriteString(fmt.Sprintf("Signal: %s\n", sig))
	b.WriteString(fmt.Sprintf("Price: %.2f (%s)\n", snap.Price, strategy.Position(snap)))
	b.WriteString(fmt.Sprintf("Tenkan: %.2f | Kijun: %.2f (%s)\n", snap.Tenkan, snap.Kijun, strategy.Cross(snap)))
	b.WriteString(fmt.Sprintf("Senkou A: %.2f | Senkou B: %.2f (%s cloud)\n", snap.SenkouA, snap.SenkouB, strategy.CloudColor(snap)))
	return b.String()
}

// FormatHistory lists recorded alerts, newest last, capped at limit entries.
func FormatHistory(records []model.AlertRecord, limit int) string {
	if len(records) == 0 {
		return "No alerts recorded yet."
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	var b strings.Builder
	b.WriteString("Alert history:\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("  %s  %s\n", r.Date, r.Type))
	}
	return b.String()
}
