package parser

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/NathanPalaiologos/usno-moon-monthly/models"
)

var (
	// dayStartRe matches lines like "01 0.48 0.58 ...". A two-digit
	// day number followed by whitespace opens a new day record.
	dayStartRe = regexp.MustCompile(`^\s*(\d{2})\s+(.*)$`)
	// tokenRe matches one monthly value: a "--" placeholder or a
	// decimal fraction.
	tokenRe = regexp.MustCompile(`--|\d+\.\d+`)
)

const missingToken = "--"

// Reconstruct reassembles logical day records from normalized lines.
// The source wraps a single day across multiple physical lines, so
// tokens are buffered until exactly models.MonthsPerYear of them have
// been collected; only then is the record emitted. An open record
// interrupted by a new day-start line, or left short at end of input,
// is discarded. Pass a logger to trace reconstruction decisions, or
// nil to stay quiet.
func Reconstruct(lines []string, logger *slog.Logger) []models.DayRecord {
	r := &reconstructor{logger: logger}
	for _, line := range lines {
		r.feed(line)
	}
	r.finish()
	return r.records
}

type reconstructor struct {
	logger  *slog.Logger
	open    bool
	day     int
	tokens  []string
	records []models.DayRecord
}

func (r *reconstructor) feed(line string) {
	if m := dayStartRe.FindStringSubmatch(line); m != nil {
		if r.open && len(r.tokens) != models.MonthsPerYear {
			r.logf("dropping incomplete day record",
				slog.Int("day", r.day),
				slog.Int("tokens", len(r.tokens)),
			)
		}
		day, err := strconv.Atoi(m[1])
		if err != nil {
			// dayStartRe guarantees two digits; keep the open record.
			return
		}
		r.open = true
		r.day = day
		r.tokens = tokenRe.FindAllString(m[2], -1)
		r.flushIfComplete()
		return
	}

	if !r.open {
		return
	}
	more := tokenRe.FindAllString(line, -1)
	if len(more) == 0 {
		return
	}
	r.tokens = append(r.tokens, more...)
	r.flushIfComplete()
}

// flushIfComplete emits the open record the moment it reaches twelve
// tokens. Extra tokens beyond the twelfth are dropped.
func (r *reconstructor) flushIfComplete() {
	if len(r.tokens) < models.MonthsPerYear {
		return
	}

	record := models.DayRecord{Day: r.day}
	for i, token := range r.tokens[:models.MonthsPerYear] {
		if token == missingToken {
			continue
		}
		parsed, err := strconv.ParseFloat(token, 64)
		if err != nil {
			r.logf("unparsable token", slog.Int("day", r.day), slog.String("token", token))
			continue
		}
		value := parsed
		record.Values[i] = &value
	}

	r.records = append(r.records, record)
	r.logf("completed day record", slog.Int("day", r.day))
	r.open = false
	r.day = 0
	r.tokens = nil
}

func (r *reconstructor) finish() {
	if r.open {
		r.logf("dropping trailing incomplete day record",
			slog.Int("day", r.day),
			slog.Int("tokens", len(r.tokens)),
		)
	}
}

func (r *reconstructor) logf(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, args...)
}
