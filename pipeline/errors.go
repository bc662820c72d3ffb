package pipeline

import "fmt"

// ReconstructionError indicates a year page yielded too few day
// records to be a plausible year table.
type ReconstructionError struct {
	Year    int
	GotDays int
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("reconstruction failed for %d: only %d day records recovered", e.Year, e.GotDays)
}

// RangeError indicates a retained daily value outside [0, 1]. Values
// are never rounded or clamped into range.
type RangeError struct {
	Year  int
	Month int
	Day   int
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value out of [0,1] for %04d-%02d-%02d: %v", e.Year, e.Month, e.Day, e.Value)
}

// CompletenessError indicates a month whose valid-day count does not
// match the calendar day count. A partial month is fatal, never a
// warning: the output is a mean, and a silently incomplete mean is
// worse than a failed run.
type CompletenessError struct {
	Year     int
	Month    int
	Expected int
	Got      int
}

func (e *CompletenessError) Error() string {
	return fmt.Sprintf("day count mismatch for %04d-%02d: expected %d, got %d", e.Year, e.Month, e.Expected, e.Got)
}
