// Package filter implements the pure license and keyword predicates applied
// to fetched records before translation.
package filter

import (
	"strings"

	"RxivScanner/internal/domain"
)

// KeywordMode selects how multiple keywords combine.
type KeywordMode string

const (
	MatchAny KeywordMode = "OR"
	MatchAll KeywordMode = "AND"
)

// LicenseRule describes the license constraints for one batch.
// The preset "any" (case-insensitive) or "" disables the exact match.
type LicenseRule struct {
	Preset    string
	RequireCC bool
	ExcludeBy bool
	ExcludeNC bool
	ExcludeND bool
	ExcludeSA bool
}

// KeywordRule matches keywords against title+abstract. An empty keyword
// list always matches.
type KeywordRule struct {
	Keywords []string
	Mode     KeywordMode
}

// ParseKeywords splits a comma-separated keyword string, dropping blanks.
func ParseKeywords(raw string) []string {
	var kws []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	return kws
}

// Matches combines both rules with logical AND.
func Matches(rec domain.Record, lic LicenseRule, kw KeywordRule) bool {
	return MatchesLicense(rec, lic) && MatchesKeywords(rec, kw)
}

// MatchesLicense evaluates the license rule against the record's
// lower-cased license string. Malformed licenses simply fail the match.
func MatchesLicense(rec domain.Record, rule LicenseRule) bool {
	lic := strings.ToLower(strings.TrimSpace(rec.License))

	preset := strings.ToLower(strings.TrimSpace(rule.Preset))
	if preset != "" && preset != "any" && lic != preset {
		return false
	}
	if rule.RequireCC && !isCCLicense(lic) {
		return false
	}
	if rule.ExcludeBy && strings.Contains(lic, "by") {
		return false
	}
	if rule.ExcludeNC && strings.Contains(lic, "nc") {
		return false
	}
	if rule.ExcludeND && strings.Contains(lic, "nd") {
		return false
	}
	if rule.ExcludeSA && strings.Contains(lic, "sa") {
		return false
	}
	return true
}

// isCCLicense accepts creative-commons markers but not the explicit
// no-redistribution marker.
func isCCLicense(lic string) bool {
	return strings.HasPrefix(lic, "cc_") && lic != "cc_no"
}

// MatchesKeywords does case-insensitive substring search over the
// concatenated title and abstract.
func MatchesKeywords(rec domain.Record, rule KeywordRule) bool {
	if len(rule.Keywords) == 0 {
		return true
	}
	text := strings.ToLower(rec.Title + " " + rec.Abstract)
	for _, kw := range rule.Keywords {
		found := strings.Contains(text, strings.ToLower(kw))
		if rule.Mode == MatchAll {
			if !found {
				return false
			}
		} else if found {
			return true
		}
	}
	return rule.Mode == MatchAll
}
