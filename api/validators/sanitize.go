package validators

import (
	"strings"
	"unicode"
)

// Cleaner is implemented by request bodies that normalise their own free
// text. DecodeJSONBody calls Clean before validation so the validate tags
// see what will actually be used.
type Cleaner interface {
	Clean()
}

// CleanLine trims s, drops control characters and folds every whitespace
// run, newlines included, into one space. For names, phones and other
// single-line form fields.
func CleanLine(s string) string {
	return strings.Join(strings.Fields(stripControl(s, false)), " ")
}

// CleanText keeps line breaks but trims each line, drops other control
// characters and allows at most one blank line in a row. For message and
// requirements boxes that end up inside a WhatsApp message.
func CleanText(s string) string {
	lines := strings.Split(stripControl(strings.ReplaceAll(s, "\r\n", "\n"), true), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func stripControl(s string, keepNewlines bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && keepNewlines:
			return r
		case r == '\t', r == '\n', r == '\r':
			return ' '
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, s)
}
