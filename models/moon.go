// Package models defines data structures for the monthly aggregator.
package models

import "time"

// MonthsPerYear is the width of one reconstructed day record (Jan..Dec).
const MonthsPerYear = 12

// DayRecord is one calendar day-of-month with its twelve monthly
// illumination fractions. A nil entry is a "--" placeholder in the
// source table (no value for that month).
type DayRecord struct {
	Day    int
	Values [MonthsPerYear]*float64
}

// MonthlySummary is the final aggregate for one (year, month) pair.
type MonthlySummary struct {
	YearMonth string  `csv:"year_month" json:"year_month"`
	Year      int     `csv:"year" json:"year"`
	Month     int     `csv:"month" json:"month"`
	Mean      float64 `csv:"moon_fracillum_mean" json:"moon_fracillum_mean"`
	NDays     int     `csv:"n_days" json:"n_days"`
	TZHours   float64 `csv:"tz_hours" json:"tz_hours"`
	TZSign    int     `csv:"tz_sign" json:"tz_sign"`
	State     string  `csv:"state" json:"state"`
}

// RunResult holds the overall result of a completed run.
type RunResult struct {
	Summaries         []*MonthlySummary
	StartTime         time.Time
	EndTime           time.Time
	YearsFetched      int
	DayRecords        int
	ValuesAccumulated int
}
