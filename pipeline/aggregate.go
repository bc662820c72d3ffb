package pipeline

import (
	"fmt"
	"time"

	"github.com/NathanPalaiologos/usno-moon-monthly/models"
)

// MonthKey identifies one (year, month) accumulator bucket.
type MonthKey struct {
	Year  int
	Month int
}

// Accumulator keeps the running sum and count of valid daily values
// per (year, month) across the whole requested range. It is written
// only during ingest and read only after every year has been
// processed; there is exactly one worker, so no locking is needed.
type Accumulator struct {
	sums   map[MonthKey]float64
	counts map[MonthKey]int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		sums:   make(map[MonthKey]float64),
		counts: make(map[MonthKey]int),
	}
}

// Observe records one valid daily value. Pure bookkeeping; cannot fail.
func (a *Accumulator) Observe(year, month int, value float64) {
	key := MonthKey{Year: year, Month: month}
	a.sums[key] += value
	a.counts[key]++
}

// Count returns the number of observations for one (year, month).
func (a *Accumulator) Count(year, month int) int {
	return a.counts[MonthKey{Year: year, Month: month}]
}

// CheckCompleteness verifies that every (year, month) in the range
// accumulated exactly as many valid days as the calendar holds.
func (a *Accumulator) CheckCompleteness(startYear, endYear int) error {
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= models.MonthsPerYear; month++ {
			expected := daysInMonth(year, month)
			got := a.Count(year, month)
			if got != expected {
				return &CompletenessError{Year: year, Month: month, Expected: expected, Got: got}
			}
		}
	}
	return nil
}

// Summaries finalizes one row per (year, month) in ascending order.
// Call only after CheckCompleteness has succeeded.
func (a *Accumulator) Summaries(startYear, endYear int, tzHours float64, tzSign int, state string) []*models.MonthlySummary {
	rows := make([]*models.MonthlySummary, 0, (endYear-startYear+1)*models.MonthsPerYear)
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= models.MonthsPerYear; month++ {
			key := MonthKey{Year: year, Month: month}
			n := a.counts[key]
			if n == 0 {
				continue
			}
			rows = append(rows, &models.MonthlySummary{
				YearMonth: fmt.Sprintf("%04d-%02d", year, month),
				Year:      year,
				Month:     month,
				Mean:      a.sums[key] / float64(n),
				NDays:     n,
				TZHours:   tzHours,
				TZSign:    tzSign,
				State:     state,
			})
		}
	}
	return rows
}

// daysInMonth uses the day-zero normalization trick: day 0 of the
// next month is the last day of this one.
func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC).Day()
}

// validDate reports whether (year, month, day) is a real calendar
// date. Day 31 in a 30-day month is expected in the source layout and
// is skipped silently, not treated as an error.
func validDate(year, month, day int) bool {
	return day >= 1 && day <= daysInMonth(year, month)
}
