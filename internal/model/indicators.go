package model

import "time"

// IchimokuSnapshot holds the Ichimoku values evaluated at the latest bar.
type IchimokuSnapshot struct {
	Tenkan  float64
	Kijun   float64
	SenkouA float64
	SenkouB float64
	Price   float64
	Date    time.Time
}

// CloudTop returns the upper edge of the cloud.
func (s IchimokuSnapshot) CloudTop() float64 {
	if s.SenkouA > s.SenkouB {
		return s.SenkouA
	}
	return s.SenkouB
}

// CloudBottom returns the lower edge of the cloud.
func (s IchimokuSnapshot) CloudBottom() float64 {
	if s.SenkouA < s.SenkouB {
		return s.SenkouA
	}
	return s.SenkouB
}
