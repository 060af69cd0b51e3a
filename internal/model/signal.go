package model

// Signal is the discrete output of the classifier.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Valid reports whether s is one of the known signals.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalNeutral:
		return true
	}
	return false
}

// Actionable reports whether s should go through deduplication and notification.
func (s Signal) Actionable() bool {
	return s == SignalBuy || s == SignalSell
}

// AlertRecord is one previously notified signal, decoded from its store key.
type AlertRecord struct {
	Type Signal `json:"type"`
	Date string `json:"date"`
}
