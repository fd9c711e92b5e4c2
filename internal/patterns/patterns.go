// Package patterns detects social-engineering indicators in transcribed or
// written text. Detection is pure regex matching over named families; risk
// grading weighs both indicator count and which families co-occur.
package patterns

import (
	"regexp"
	"strings"
)

// Family names are stable identifiers reported in evidence and used as keys
// in YAML pattern packs.
const (
	FamilyUrgency      = "urgency"
	FamilyAuthority    = "authority"
	FamilyPayment      = "payment"
	FamilyManipulation = "manipulation"
)

// Family is one named group of indicator patterns.
type Family struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Detection is the outcome of matching one text against a pattern set.
type Detection struct {
	// Matches maps family name to the matched phrases, in match order.
	Matches map[string][]string
	// Total is the indicator count across all families.
	Total int
	// RiskLevel is one of high, medium, low, minimal.
	RiskLevel string
	// Confidence is a 0-100 certainty grade derived from indicator density.
	Confidence float64
}

// Set is an ordered collection of families matched together.
type Set struct {
	families []Family
}

var builtin = []Family{
	{
		Name: FamilyUrgency,
		Patterns: compileAll(
			`(?i)\b(urgent|immediately|right now|act now|within \d+ (hours?|minutes?))\b`,
			`(?i)\b(expire|suspended|blocked|locked|terminated)\b`,
			`(?i)\b(last chance|final (notice|warning))\b`,
		),
	},
	{
		Name: FamilyAuthority,
		Patterns: compileAll(
			`(?i)\b(bank|police|IRS|tax|government|FBI|officer|agent|department)\b`,
			`(?i)\b(legal action|arrest|warrant|court|lawsuit)\b`,
			`(?i)\b(verify your (identity|account|information))\b`,
		),
	},
	{
		Name: FamilyPayment,
		Patterns: compileAll(
			`(?i)\b(gift card|iTunes|Google Play|Amazon card|prepaid)\b`,
			`(?i)\b(wire transfer|Western Union|MoneyGram|cryptocurrency|bitcoin)\b`,
			`(?i)\b(pay (now|immediately)|send money|transfer funds)\b`,
			`(?i)\b(refund|prize|won|lottery|inheritance)\b`,
		),
	},
	{
		Name: FamilyManipulation,
		Patterns: compileAll(
			`(?i)\b(don't tell anyone|keep this (private|confidential|secret))\b`,
			`(?i)\b(you're in trouble|serious consequences|penalty)\b`,
			`(?i)\b(congratulations|you've been selected|lucky winner)\b`,
		),
	},
}

// Builtin returns the compiled built-in pattern set.
func Builtin() *Set {
	return &Set{families: builtin}
}

// Detect matches text against every family and grades the result. The
// payment+urgency combination escalates to high regardless of raw count
// because that pairing is the classic extraction play.
func (s *Set) Detect(text string) Detection {
	lower := strings.ToLower(text)

	matches := make(map[string][]string, len(s.families))
	total := 0
	for _, fam := range s.families {
		var found []string
		for _, re := range fam.Patterns {
			for _, m := range re.FindAllString(lower, -1) {
				found = append(found, m)
			}
		}
		matches[fam.Name] = found
		total += len(found)
	}

	det := Detection{Matches: matches, Total: total}
	switch {
	case total >= 5 || (len(matches[FamilyPayment]) > 0 && len(matches[FamilyUrgency]) > 0):
		det.RiskLevel = "high"
		det.Confidence = minF(85+float64(total)*3, 98)
	case total >= 3:
		det.RiskLevel = "medium"
		det.Confidence = 60 + float64(total)*5
	case total >= 1:
		det.RiskLevel = "low"
		det.Confidence = 30 + float64(total)*10
	default:
		det.RiskLevel = "minimal"
		det.Confidence = 15
	}
	return det
}

// FamilyNames returns the set's family names in declaration order.
func (s *Set) FamilyNames() []string {
	names := make([]string, 0, len(s.families))
	for _, fam := range s.families {
		names = append(names, fam.Name)
	}
	return names
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
