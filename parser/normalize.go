// Package parser converts USNO year pages into reconstructed day
// records. The source renders its year table with wide rows that wrap
// across physical lines, so parsing is split into a text normalizer
// that preserves table boundaries and a state machine that stitches
// wrapped day rows back together.
package parser

import (
	"html"
	"regexp"
	"strings"
)

var (
	cellCloseRe = regexp.MustCompile(`(?i)</(td|th)>`)
	rowCloseRe  = regexp.MustCompile(`(?i)</tr>`)
	lineBreakRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraCloseRe = regexp.MustCompile(`(?i)</p>`)
	scriptRe    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe     = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	hspaceRe    = regexp.MustCompile(`[ \t]+`)
	blankRunRe  = regexp.MustCompile(`\n{2,}`)
)

// Normalize converts a raw HTML page into trimmed, non-empty text
// lines. Cell-closing tags become spaces and row-closing tags become
// newlines BEFORE generic tag stripping; stripping first would merge
// adjacent cells and rows into unparsable runs of digits and silently
// corrupt day alignment.
func Normalize(raw string) []string {
	s := html.UnescapeString(raw)

	s = cellCloseRe.ReplaceAllString(s, " ")
	s = rowCloseRe.ReplaceAllString(s, "\n")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = paraCloseRe.ReplaceAllString(s, "\n")

	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")

	s = tagRe.ReplaceAllString(s, "")

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = hspaceRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
