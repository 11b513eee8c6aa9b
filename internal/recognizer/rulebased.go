package recognizer

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Pattern is one regular-expression rule of the offline recognizer.
type Pattern struct {
	Type       string
	Regex      *regexp.Regexp
	Score      float64
	Validators []func(string) bool
}

// RuleBasedRecognizer matches a fixed set of patterns locally. It emits the
// same entity vocabulary as Comprehend so events recorded in development
// classify the same way as in production.
type RuleBasedRecognizer struct {
	patterns []Pattern
}

func NewRuleBasedRecognizer() *RuleBasedRecognizer {
	return &RuleBasedRecognizer{patterns: defaultPatterns()}
}

func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Type:  "EMAIL",
			Regex: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Score: 0.95,
		},
		{
			Type:       "PHONE",
			Regex:      regexp.MustCompile(`(?:\b\+?1[-.\s]?)?\(?\b[0-9]{3}\)?[-.\s]?[0-9]{3,4}[-.\s]?[0-9]{4}\b`),
			Score:      0.85,
			Validators: []func(string) bool{validatePhone},
		},
		{
			Type:       "SSN",
			Regex:      regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`),
			Score:      0.90,
			Validators: []func(string) bool{validateSSN},
		},
		{
			Type:       "CREDIT_DEBIT_NUMBER",
			Regex:      regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
			Score:      0.92,
			Validators: []func(string) bool{validateLuhn},
		},
		{
			Type:  "IP_ADDRESS",
			Regex: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
			Score: 0.95,
		},
		{
			Type:  "AWS_ACCESS_KEY",
			Regex: regexp.MustCompile(`\b(?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16}\b`),
			Score: 0.95,
		},
		{
			Type:  "MAC_ADDRESS",
			Regex: regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
			Score: 0.90,
		},
	}
}

// AddPattern registers an extra rule.
func (r *RuleBasedRecognizer) AddPattern(p Pattern) {
	r.patterns = append(r.patterns, p)
}

// Detect ignores language; the patterns are script independent.
func (r *RuleBasedRecognizer) Detect(ctx context.Context, text, _ string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []Entity
	for _, p := range r.patterns {
		for _, m := range p.Regex.FindAllStringIndex(text, -1) {
			if !valid(text[m[0]:m[1]], p.Validators) {
				continue
			}
			entities = append(entities, Entity{
				Type:        p.Type,
				BeginOffset: m[0],
				EndOffset:   m[1],
				Score:       p.Score,
			})
		}
	}

	entities = dropContained(entities)
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].BeginOffset != entities[j].BeginOffset {
			return entities[i].BeginOffset < entities[j].BeginOffset
		}
		return entities[i].Type < entities[j].Type
	})
	return entities, nil
}

func valid(value string, validators []func(string) bool) bool {
	for _, v := range validators {
		if !v(value) {
			return false
		}
	}
	return true
}

// dropContained removes spans that sit inside another span with an equal or
// higher score.
func dropContained(entities []Entity) []Entity {
	out := make([]Entity, 0, len(entities))
	for i, e := range entities {
		contained := false
		for j, other := range entities {
			if i == j {
				continue
			}
			if e.BeginOffset >= other.BeginOffset && e.EndOffset <= other.EndOffset && other.Score >= e.Score {
				if e.BeginOffset == other.BeginOffset && e.EndOffset == other.EndOffset && e.Score == other.Score && i < j {
					continue
				}
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, e)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func validateSSN(ssn string) bool {
	clean := digitsOnly(ssn)
	if len(clean) != 9 {
		return false
	}
	area, group, serial := clean[:3], clean[3:5], clean[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

func validateLuhn(number string) bool {
	clean := digitsOnly(number)
	if len(clean) < 13 || len(clean) > 19 {
		return false
	}

	sum := 0
	alternate := false
	for i := len(clean) - 1; i >= 0; i-- {
		n := int(clean[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// validatePhone accepts 10 or 11 digit numbers that are not dominated by a
// single repeated digit.
func validatePhone(phone string) bool {
	clean := digitsOnly(phone)
	if len(clean) < 10 || len(clean) > 11 {
		return false
	}

	freq := make(map[rune]int)
	maxFreq := 0
	for _, c := range clean {
		freq[c]++
		if freq[c] > maxFreq {
			maxFreq = freq[c]
		}
	}
	return float64(maxFreq)/float64(len(clean)) <= 0.7
}
