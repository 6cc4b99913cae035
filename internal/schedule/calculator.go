package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

// Delivery option codes understood besides the "<N>dni" family.
const (
	OptionZielonka  = "zielonka"
	OptionBialystok = "bialystok"
	OptionDepozyt   = "depozyt"
	OptionCustom    = "custom"

	daySuffix = "dni"

	// MaxDayCount bounds "<N>dni" options.
	MaxDayCount = 365
)

var warehouseNotes = map[string]string{
	OptionZielonka:  "Dostępne w Zielonce. ",
	OptionBialystok: "Dostępne w Białymstoku. ",
	OptionDepozyt:   "Depozyt. ",
}

var dayCountPattern = regexp.MustCompile(`^(\d+)` + daySuffix + `$`)

// Calculator derives delivery and validity dates in organization-local time.
type Calculator struct {
	now func() time.Time
}

// NewCalculator returns a calculator reading the wall clock; pass nil for timeutil.Now.
func NewCalculator(now func() time.Time) Calculator {
	if now == nil {
		now = timeutil.Now
	}
	return Calculator{now: now}
}

// Today returns local midnight of the current day.
func (c Calculator) Today() time.Time {
	now := c.now
	if now == nil {
		now = timeutil.Now
	}
	return timeutil.StartOfDay(now())
}

// DeliveryWindow resolves a delivery option into its start and end dates.
// customDate is only consulted for the custom option and must be YYYY-MM-DD.
func (c Calculator) DeliveryWindow(option, customDate string) (time.Time, time.Time, error) {
	option = strings.TrimSpace(option)
	today := c.Today()

	if IsWarehouse(option) {
		return today, today, nil
	}

	if option == OptionCustom {
		customDate = strings.TrimSpace(customDate)
		if customDate == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "custom delivery date is required")
		}
		d, err := timeutil.ParseDate(customDate)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "custom delivery date must be YYYY-MM-DD")
		}
		return d, d, nil
	}

	days, err := ParseDayCount(option)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return today, AddBusinessDays(today, days), nil
}

// ValidityDate returns today plus N calendar days for a "<N>dni" option.
func (c Calculator) ValidityDate(option string) (time.Time, error) {
	days, err := ParseDayCount(option)
	if err != nil {
		return time.Time{}, err
	}
	return c.Today().AddDate(0, 0, days), nil
}

// AddBusinessDays advances from day by n weekdays; Saturdays and Sundays are skipped.
// Whole weeks are added in one step.
func AddBusinessDays(day time.Time, n int) time.Time {
	if n <= 0 {
		return day
	}
	weeks := (n - 1) / 5
	current := day.AddDate(0, 0, 7*weeks)
	for added := 5 * weeks; added < n; {
		current = current.AddDate(0, 0, 1)
		if IsBusinessDay(current) {
			added++
		}
	}
	return current
}

// IsBusinessDay reports whether t falls on Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// ParseDayCount reads the N of a "<N>dni" option.
func ParseDayCount(option string) (int, error) {
	option = strings.TrimSpace(option)
	m := dayCountPattern.FindStringSubmatch(option)
	if m == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported day option %q", option)).
			WithDetails(map[string]string{"option": option})
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > MaxDayCount {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("day count must be at most %d", MaxDayCount)).
			WithDetails(map[string]string{"option": option})
	}
	return n, nil
}

// IsWarehouse reports whether the option means goods are in stock today.
func IsWarehouse(option string) bool {
	_, ok := warehouseNotes[strings.TrimSpace(option)]
	return ok
}

// WarehouseNote returns the response comment prefix for a stock option, or "".
func WarehouseNote(option string) string {
	return warehouseNotes[strings.TrimSpace(option)]
}
