package calculator

import (
	"math"

	"KumoSentinel/internal/model"
)

// PeriodRange scans exactly the last period bars of window and returns the highest
// high and lowest low. It fails when window holds fewer than period bars.
func PeriodRange(window []model.Bar, period int) (high, low float64, err error) {
	if period <= 0 || len(window) < period {
		return 0, 0, &InsufficientHistoryError{Have: len(window), Need: period}
	}
	n := len(window)
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := n - period; i < n; i++ {
		if window[i].High > high {
			high = window[i].High
		}
		if window[i].Low < low {
			low = window[i].Low
		}
	}
	return high, low, nil
}

// PeriodMidpoint returns (highest high + lowest low) / 2 over the last period bars.
func PeriodMidpoint(window []model.Bar, period int) (float64, error) {
	high, low, err := PeriodRange(window, period)
	if err != nil {
		return 0, err
	}
	return (high + low) / 2, nil
}
