package strategy

import "KumoSentinel/internal/model"

// CloudPosition describes where price sits relative to the cloud.
type CloudPosition string

const (
	AboveCloud CloudPosition = "above cloud"
	InCloud    CloudPosition = "in cloud"
	BelowCloud CloudPosition = "below cloud"
)

// Position returns the price's position against the cloud edges. Touching an
// edge counts as inside.
func Position(snap model.IchimokuSnapshot) CloudPosition {
	switch {
	case snap.Price > snap.CloudTop():
		return AboveCloud
	case snap.Price < snap.CloudBottom():
		return BelowCloud
	default:
		return InCloud
	}
}

// Cross describes the Tenkan/Kijun relationship.
func Cross(snap model.IchimokuSnapshot) string {
	switch {
	case snap.Tenkan > snap.Kijun:
		return "tenkan above kijun"
	case snap.Tenkan < snap.Kijun:
		return "tenkan below kijun"
	default:
		return "tenkan equals kijun"
	}
}

// CloudColor is "green" when Senkou A leads Senkou B, "red" when it trails, and
// "flat" on a tie.
func CloudColor(snap model.IchimokuSnapshot) string {
	switch {
	case snap.SenkouA > snap.SenkouB:
		return "green"
	case snap.SenkouA < snap.SenkouB:
		return "red"
	default:
		return "flat"
	}
}
