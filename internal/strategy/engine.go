package strategy

import "KumoSentinel/internal/model"

// Classify maps an Ichimoku snapshot to a signal.
//
// BUY needs Tenkan strictly above Kijun and price strictly above the top of the
// cloud; SELL is the mirror image against the cloud bottom. Anything else,
// including exact ties and a price inside the cloud, is NEUTRAL.
func Classify(snap model.IchimokuSnapshot) model.Signal {
	switch {
	case snap.Tenkan > snap.Kijun && snap.Price > snap.CloudTop():
		return model.SignalBuy
	case snap.Tenkan < snap.Kijun && snap.Price < snap.CloudBottom():
		return model.SignalSell
	default:
		return model.SignalNeutral
	}
}
