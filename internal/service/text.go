package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	leadingNumber = regexp.MustCompile(`\d+`)
	hoursPart     = regexp.MustCompile(`(\d+)h`)
	minutesPart   = regexp.MustCompile(`(\d+)m`)
)

// plainText strips markup from descriptions the service sometimes returns as HTML.
func plainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// firstNumber returns the first run of digits in s, or def.
func firstNumber(s string, def int) int {
	m := leadingNumber.FindString(s)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return def
	}
	return n
}

// durationMinutes parses strings like "2h 30m".
func durationMinutes(s string) int {
	var total int
	if m := hoursPart.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesPart.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		total += mm
	}
	return total
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
