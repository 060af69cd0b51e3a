package calculator

import (
	"errors"
	"fmt"
)

// ErrInsufficientHistory is matched by every InsufficientHistoryError.
var ErrInsufficientHistory = errors.New("insufficient history")

// InsufficientHistoryError reports how many bars a computation had against what it needs.
type InsufficientHistoryError struct {
	Have   int
	Need   int
	Window string // which window came up short, empty for the whole series
}

func (e *InsufficientHistoryError) Error() string {
	if e.Window != "" {
		return fmt.Sprintf("insufficient history for %s: have %d bars, need %d", e.Window, e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient history: have %d bars, need %d", e.Have, e.Need)
}

func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}
