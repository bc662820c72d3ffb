// Package pipeline orchestrates the yearly fetch-normalize-
// reconstruct-validate-aggregate flow and writes the final monthly
// summaries. Years are processed strictly sequentially: the upstream
// endpoint is rate-sensitive, and the politeness delay between
// requests depends on one year finishing before the next starts.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/NathanPalaiologos/usno-moon-monthly/config"
	"github.com/NathanPalaiologos/usno-moon-monthly/models"
	"github.com/NathanPalaiologos/usno-moon-monthly/parser"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw year page for one calendar year.
type Fetcher interface {
	FetchYear(ctx context.Context, year int) (string, error)
}

// debugLineDump is how many normalized lines of the first year are
// dumped when diagnostics are requested.
const debugLineDump = 40

// Run processes every year in the configured range and returns the
// finalized monthly summaries. Any failure aborts the whole run: a
// partial mean must never reach the output. The clock is used for the
// inter-request politeness delay; pass nil for the real clock.
func Run(ctx context.Context, cfg *config.Config, f Fetcher, clock clockwork.Clock, logger *slog.Logger) (*models.RunResult, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	acc := NewAccumulator()
	result := &models.RunResult{StartTime: clock.Now()}

	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		raw, err := f.FetchYear(ctx, year)
		if err != nil {
			return nil, err
		}

		lines := parser.Normalize(raw)
		debug := cfg.Debug && year == cfg.StartYear
		if debug {
			dumpLines(logger, lines)
		}

		var recLogger *slog.Logger
		if debug {
			recLogger = logger
		}
		records := parser.Reconstruct(lines, recLogger)
		if len(records) < cfg.MinDayRows {
			return nil, &ReconstructionError{Year: year, GotDays: len(records)}
		}

		observed, err := ingestYear(acc, year, records)
		if err != nil {
			return nil, err
		}

		result.YearsFetched++
		result.DayRecords += len(records)
		result.ValuesAccumulated += observed
		logger.Info("year processed",
			slog.Int("year", year),
			slog.Int("day_records", len(records)),
		)

		if cfg.RequestDelay > 0 && year < cfg.EndYear {
			clock.Sleep(cfg.RequestDelay)
		}
	}

	if err := acc.CheckCompleteness(cfg.StartYear, cfg.EndYear); err != nil {
		return nil, err
	}

	result.Summaries = acc.Summaries(cfg.StartYear, cfg.EndYear, cfg.TZHours, cfg.TZSign, cfg.State)
	result.EndTime = clock.Now()
	return result, nil
}

// ingestYear validates each reconstructed value and feeds it into the
// accumulator. Impossible calendar dates within a month (day 31 in a
// 30-day month) are skipped silently; a retained value outside [0, 1]
// is fatal.
func ingestYear(acc *Accumulator, year int, records []models.DayRecord) (int, error) {
	observed := 0
	for _, rec := range records {
		for i, v := range rec.Values {
			if v == nil {
				continue
			}
			month := i + 1
			if !validDate(year, month, rec.Day) {
				continue
			}
			if *v < 0.0 || *v > 1.0 {
				return observed, &RangeError{Year: year, Month: month, Day: rec.Day, Value: *v}
			}
			acc.Observe(year, month, *v)
			observed++
		}
	}
	return observed, nil
}

func dumpLines(logger *slog.Logger, lines []string) {
	n := len(lines)
	if n > debugLineDump {
		n = debugLineDump
	}
	logger.Debug("first normalized lines", slog.Int("total", len(lines)))
	for i := 0; i < n; i++ {
		logger.Debug("normalized line", slog.Int("n", i), slog.String("text", lines[i]))
	}
}
