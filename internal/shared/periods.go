package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period statuses reused outside the period module.
const (
	PeriodStatusOpen       = "open"
	PeriodStatusAdjustment = "adjustment"
	PeriodStatusClosed     = "closed"
)

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = errors.New("period transition invalid")

// ValidatePeriodTransition checks transitions according to policy.
func ValidatePeriodTransition(current, target string) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusAdjustment || target == PeriodStatusClosed {
			return nil
		}
	case PeriodStatusAdjustment:
		if target == PeriodStatusClosed || target == PeriodStatusOpen {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusOpen {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}

// PeriodOf derives the YYYY-MM period from a YYYY-MM-DD date string.
func PeriodOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// PeriodOfTime derives the YYYY-MM period from a time value.
func PeriodOfTime(t time.Time) string {
	return t.Format("2006-01")
}

// PrevPeriod returns the period preceding p, empty when p is malformed.
func PrevPeriod(p string) string {
	year, month, ok := splitPeriod(p)
	if !ok {
		return ""
	}
	if month == 1 {
		return fmt.Sprintf("%04d-12", year-1)
	}
	return fmt.Sprintf("%04d-%02d", year, month-1)
}

// NextPeriod returns the period following p, empty when p is malformed.
func NextPeriod(p string) string {
	year, month, ok := splitPeriod(p)
	if !ok {
		return ""
	}
	if month == 12 {
		return fmt.Sprintf("%04d-01", year+1)
	}
	return fmt.Sprintf("%04d-%02d", year, month+1)
}

// FirstDayOf returns the first legal posting date inside period p.
func FirstDayOf(p string) string {
	return p + "-01"
}

func splitPeriod(p string) (int, int, bool) {
	parts := strings.SplitN(p, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
