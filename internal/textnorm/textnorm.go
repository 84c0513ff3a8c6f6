// Package textnorm normalizes catalog titles and user queries.
//
// Upstream titles travel through chat callback payloads in an encoded form
// (underscores for spaces, short markers for punctuation, "=" separated
// parts). The Replacer holds the ordered substitution tables used to encode
// and decode them, plus a case-insensitive table applied to search queries.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	numericEntityRE = regexp.MustCompile(`&#(\d+);`)
	whitespaceRE    = regexp.MustCompile(`\s+`)
)

// CleanText decodes numeric HTML entities, drops backslashes, turns newlines
// into spaces and collapses whitespace. Empty input yields "".
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = numericEntityRE.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil || n <= 0 || n > 0x10FFFF {
			return m
		}
		return string(rune(n))
	})
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return norm.NFC.String(s)
}

// Pair is one ordered substitution.
type Pair struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Replacer applies ordered substitution tables.
type Replacer struct {
	mapping    []Pair
	mappingRev []Pair
	search     []searchRule
}

type searchRule struct {
	re *regexp.Regexp
	to string
}

// NewReplacer builds a Replacer. Pairs with an empty From are ignored.
func NewReplacer(mapping, mappingRev, searchMap []Pair) *Replacer {
	r := &Replacer{
		mapping:    compact(mapping),
		mappingRev: compact(mappingRev),
	}
	for _, p := range compact(searchMap) {
		r.search = append(r.search, searchRule{
			re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p.From)),
			to: p.To,
		})
	}
	return r
}

func compact(in []Pair) []Pair {
	out := make([]Pair, 0, len(in))
	for _, p := range in {
		if p.From != "" {
			out = append(out, p)
		}
	}
	return out
}

// Encode applies the forward mapping in order.
func (r *Replacer) Encode(s string) string { return apply(s, r.mapping) }

// Decode applies the reverse mapping in order.
func (r *Replacer) Decode(s string) string { return apply(s, r.mappingRev) }

// Search rewrites a user query with the case-insensitive search table.
func (r *Replacer) Search(s string) string {
	for _, rule := range r.search {
		s = rule.re.ReplaceAllLiteralString(s, rule.to)
	}
	return s
}

func apply(s string, pairs []Pair) string {
	for _, p := range pairs {
		s = strings.ReplaceAll(s, p.From, p.To)
	}
	return s
}

func decodeMarkers(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "ies", ":")
	s = strings.ReplaceAll(s, " TV", " (TV)")
	s = strings.ReplaceAll(s, "xb", ".")
	return strings.ReplaceAll(s, "dsj", ",")
}

// ConvertTitle decodes an encoded series title and returns its display part
// (the second "=" separated field). Input without "=" is returned decoded.
func (r *Replacer) ConvertTitle(s string) string {
	s = decodeMarkers(r.Decode(s))
	parts := strings.Split(s, "=")
	if len(parts) > 1 {
		return parts[1]
	}
	return s
}

// ConvertDownloadTitle is ConvertTitle for episode payloads, which carry the
// episode label in the third field.
func (r *Replacer) ConvertDownloadTitle(s string) string {
	s = decodeMarkers(r.Decode(s))
	parts := strings.Split(s, "=")
	switch {
	case len(parts) > 2:
		return parts[1] + " " + parts[2]
	case len(parts) == 2:
		return parts[1]
	}
	return s
}
