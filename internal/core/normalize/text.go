package normalize

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"feedweave/internal/core/activity"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// DefaultMeaningfulMinLen is the free text length a list add must exceed to stand alone
const DefaultMeaningfulMinLen = 30

// foldPool holds transformer chains for title folding
// order: decompose, strip marks, NFKC, case fold, strip format runes, width fold
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// FoldTitle returns the comparison form of a media title
func FoldTitle(title string) string {
	title = Sanitize(title)
	if strings.TrimSpace(title) == "" {
		return ""
	}
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, title)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		out = strings.ToLower(title)
	}
	return collapseSpaces(out)
}

// collapseSpaces turns whitespace runs into one space and trims the edges
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}

var addedRE = regexp.MustCompile(`(?is)^"?added .+ to .+"?$`)

// IsAutoGenerated reports system phrasing like `Added Dune to Watchlist`
func IsAutoGenerated(content string) bool {
	c := strings.TrimSpace(content)
	if c == "" {
		return false
	}
	return strings.HasPrefix(c, "Added ") || addedRE.MatchString(c)
}

// FreeTextLen is the rune length of user-written text, 0 for empty or auto-generated content
func FreeTextLen(content string) int {
	c := strings.TrimSpace(content)
	if c == "" || IsAutoGenerated(c) {
		return 0
	}
	return utf8.RuneCountInString(c)
}

// HasMeaningfulContent reports a rating or free text longer than minLen
// minLen <= 0 falls back to DefaultMeaningfulMinLen
func HasMeaningfulContent(a activity.Activity, minLen int) bool {
	if minLen <= 0 {
		minLen = DefaultMeaningfulMinLen
	}
	return a.Rating > 0 || FreeTextLen(a.Content) > minLen
}
