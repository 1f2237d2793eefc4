package reply

import (
	"strings"
	"unicode/utf8"
)

// Split cuts text into chunks of at most limit characters, preferring line
// breaks. Lines longer than limit are cut mid-line.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if n > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln <= limit {
			cur.WriteString(line)
			n += ln
			continue
		}
		flush()
		for ln > limit {
			head, rest := cutRunes(line, limit)
			chunks = append(chunks, head)
			line, ln = rest, ln-limit
		}
		cur.WriteString(line)
		n = ln
	}
	flush()

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimRight(c, "\n"); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func cutRunes(s string, n int) (string, string) {
	i := 0
	for n > 0 && i < len(s) {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n--
	}
	return s[:i], s[i:]
}
