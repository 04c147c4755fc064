// ABOUTME: Text preprocessing applied before embedding, indexing, and inference
// ABOUTME: Strips URLs and ornaments, collapses repeats and whitespace, derives cohort names
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern        = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.\-]*://\S+|www\.\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	trailingDigits    = regexp.MustCompile(`\d+$`)
)

// ornaments are decorative glyphs that carry no classification signal.
var ornaments = strings.NewReplacer(
	"■", " ", "□", " ", "▪", " ", "▫", " ", "◆", " ", "◇", " ", "◈", " ",
	"★", " ", "☆", " ", "♡", " ", "♥", " ", "❤", " ", "♣", " ", "♠", " ",
	"※", " ", "▶", " ", "▷", " ", "►", " ", "◀", " ", "◁", " ", "•", " ",
	"●", " ", "○", " ", "◎", " ", "➤", " ", "➜", " ", "✔", " ", "✓", " ",
	"✅", " ", "✨", " ", "👉", " ",
	"\u200b", " ", "\ufe0f", "", "\ufeff", "",
)

// UnknownCohort is the cohort assigned when no usable name is present.
const UnknownCohort = "Unknown"

// Normalize prepares raw feedback text for any classifier. It is pure,
// total, and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFC.String(ornaments.Replace(text))
	s = urlPattern.ReplaceAllString(s, " ")
	s = collapseRepeats(s, 4, 2)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// collapseRepeats shortens every run of at least min identical runes to keep runes.
func collapseRepeats(s string, min, keep int) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		if n >= min {
			n = keep
		}
		for k := 0; k < n; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

// Truncate returns at most maxRunes runes of s without splitting a rune.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}

// Clean flattens text onto one line and shortens it for report snippets,
// preferring a sentence end past half the budget and a word break past 70%.
func Clean(text string, maxRunes int) string {
	cleaned := strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	if cleaned == "" {
		return ""
	}

	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}

	truncated := runes[:maxRunes]
	lastStop := -1
	lastSpace := -1
	for i, r := range truncated {
		switch r {
		case '.', '!', '?', '~':
			lastStop = i
		case ' ':
			lastSpace = i
		}
	}

	if float64(lastStop) > float64(maxRunes)*0.5 {
		return string(truncated[:lastStop+1])
	}
	if float64(lastSpace) > float64(maxRunes)*0.7 {
		return string(truncated[:lastSpace]) + "…"
	}
	return string(truncated) + "…"
}

// CohortName collapses numbered name variants ("Name2", "Name3") into one cohort.
func CohortName(raw string) string {
	name := strings.TrimSpace(trailingDigits.ReplaceAllString(strings.TrimSpace(raw), ""))
	if name == "" {
		return UnknownCohort
	}
	return name
}
