package calculator

import (
	"errors"

	"KumoSentinel/internal/model"
)

// Classical Ichimoku periods. They are fixed by the method, not configuration.
const (
	TenkanPeriod  = 9
	KijunPeriod   = 26
	SenkouBPeriod = 52
	Displacement  = 26

	// MinBars is the shortest series ComputeIchimoku accepts.
	MinBars = SenkouBPeriod + Displacement
)

// ComputeIchimoku evaluates Tenkan, Kijun and both Senkou spans at the latest bar.
// The spans come from the window ending Displacement bars before the latest bar,
// i.e. the cloud that was plotted forward onto today.
func ComputeIchimoku(series *model.BarSeries) (model.IchimokuSnapshot, error) {
	n := series.Len()
	if n < MinBars {
		return model.IchimokuSnapshot{}, &InsufficientHistoryError{Have: n, Need: MinBars}
	}

	tenkan, err := midpoint(series.Last(TenkanPeriod), TenkanPeriod, "tenkan")
	if err != nil {
		return model.IchimokuSnapshot{}, err
	}
	kijun, err := midpoint(series.Last(KijunPeriod), KijunPeriod, "kijun")
	if err != nil {
		return model.IchimokuSnapshot{}, err
	}

	histEnd := n - Displacement
	pastTenkan, err := midpoint(series.Window(histEnd, TenkanPeriod), TenkanPeriod, "senkou A (tenkan leg)")
	if err != nil {
		return model.IchimokuSnapshot{}, err
	}
	pastKijun, err := midpoint(series.Window(histEnd, KijunPeriod), KijunPeriod, "senkou A (kijun leg)")
	if err != nil {
		return model.IchimokuSnapshot{}, err
	}
	senkouB, err := midpoint(series.Window(histEnd, SenkouBPeriod), SenkouBPeriod, "senkou B")
	if err != nil {
		return model.IchimokuSnapshot{}, err
	}

	latest, _ := series.Latest()
	return model.IchimokuSnapshot{
		Tenkan:  tenkan,
		Kijun:   kijun,
		SenkouA: (pastTenkan + pastKijun) / 2,
		SenkouB: senkouB,
		Price:   latest.Close,
		Date:    latest.Date,
	}, nil
}

func midpoint(window []model.Bar, period int, name string) (float64, error) {
	v, err := PeriodMidpoint(window, period)
	var ihe *InsufficientHistoryError
	if errors.As(err, &ihe) {
		ihe.Window = name
	}
	return v, err
}
