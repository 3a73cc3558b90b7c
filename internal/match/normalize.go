package match

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes characters (NFKD) and removes combining marks,
// so "Café" normalizes the same as "Cafe".
var stripDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	nonDigit     = regexp.MustCompile(`\D`)
	multiSpace   = regexp.MustCompile(`\s+`)
	corpSuffixes = regexp.MustCompile(`\b(llc|inc|co|company|corp|corporation|pllc|plc|ltd)\b`)
)

// NormalizePhone strips every non-digit character, then drops a leading
// NANP country code so "+1-860-555-0100", "(860) 555-0100" and
// "8605550100" all normalize to the same ten digits.
func NormalizePhone(s string) string {
	digits := nonDigit.ReplaceAllString(s, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// NormalizeHost reduces a website or URL field to a bare lowercase hostname:
// scheme stripped, leading "www." stripped, path and query dropped. Values
// without a scheme are parsed as https URLs; on parse failure it falls back
// to plain string surgery.
func NormalizeHost(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	raw := s
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

// NormalizeName lowercases, folds "&" to "and", strips diacritics, drops
// everything that is not a letter, digit or space, and collapses whitespace.
// Idempotent: normalizing an already-normalized name is a no-op.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// StripCorpSuffixes removes common corporate suffixes as whole words from an
// already-normalized name, so "acme plumbing llc" compares equal to
// "acme plumbing".
func StripCorpSuffixes(s string) string {
	s = corpSuffixes.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}
