package utils

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const dateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD. Nil and zero times render as "".
func FormatDate(t *time.Time) string {
	v := Value(t)
	if v.IsZero() {
		return ""
	}
	return v.Format(dateLayout)
}

// ParseDate is the inverse of FormatDate. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return Ptr(t), nil
}

func CapitalizeFirstLetter(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// TruncateText shortens text to at most max runes, ending in "..." when cut.
func TruncateText(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimRightFunc(string(runes[:max]), unicode.IsSpace) + "..."
}
