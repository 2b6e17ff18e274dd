package telegram

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	fence      = "```"
	fenceClose = "\n```"
	// below this a chunk has no room to close and reopen a fence
	minFenceSplit = 16
)

// SplitMessage cuts text into chunks of at most maxLen runes. A cut prefers a
// blank line, then a line break, then a space, as long as it falls in the
// second half of the chunk. A code fence left open by a cut is closed at the
// end of the chunk and reopened at the start of the next one.
func SplitMessage(text string, maxLen int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		cut := cutPoint(runes[:maxLen])
		part, rest := string(runes[:cut]), string(runes[cut:])

		if maxLen >= minFenceSplit && strings.Count(part, fence)%2 != 0 {
			cut = cutPoint(runes[:maxLen-len(fenceClose)])
			part, rest = string(runes[:cut]), string(runes[cut:])
			if strings.Count(part, fence)%2 != 0 {
				part = strings.TrimSuffix(part, "\n") + fenceClose
				rest = fence + "\n" + rest
			}
		}

		parts = append(parts, part)
		text = rest
	}
	return append(parts, text)
}

func cutPoint(chunk []rune) int {
	s := string(chunk)
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(s, sep); i >= 0 {
			if n := utf8.RuneCountInString(s[:i+len(sep)]); n > len(chunk)/2 {
				return n
			}
		}
	}
	return len(chunk)
}

// FixMarkdown repairs the legacy-Markdown mistakes Telegram rejects a message
// for: an unclosed code fence, an unclosed inline code span, and an unpaired
// * or _ outside code, which gets escaped.
func FixMarkdown(text string) string {
	if strings.Count(text, fence)%2 != 0 {
		text += fenceClose
	}

	runes := []rune(text)
	out := make([]rune, 0, len(runes)+2)
	inBlock, inInline := false, false
	last := map[rune]int{}
	count := map[rune]int{}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '`' && i+2 < len(runes) && runes[i+1] == '`' && runes[i+2] == '`':
			if inInline {
				out = append(out, '`')
				inInline = false
			}
			inBlock = !inBlock
			out = append(out, '`', '`', '`')
			i += 2
			continue
		case inBlock:
		case r == '\\' && !inInline && i+1 < len(runes):
			out = append(out, r, runes[i+1])
			i++
			continue
		case r == '`':
			inInline = !inInline
		case !inInline && (r == '*' || r == '_'):
			last[r] = len(out)
			count[r]++
		}
		out = append(out, r)
	}
	if inInline {
		out = append(out, '`')
	}

	var unpaired []int
	for _, marker := range []rune{'*', '_'} {
		if count[marker]%2 != 0 {
			unpaired = append(unpaired, last[marker])
		}
	}
	slices.Sort(unpaired)
	for i := len(unpaired) - 1; i >= 0; i-- {
		out = slices.Insert(out, unpaired[i], '\\')
	}
	return string(out)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes service-provided text for legacy Markdown.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
