package filter

import (
	"testing"

	"RxivScanner/internal/domain"
)

func TestMatchesLicensePreset(t *testing.T) {
	t.Parallel()

	rec := domain.Record{License: "CC_BY"}
	if !MatchesLicense(rec, LicenseRule{Preset: "cc_by"}) {
		t.Fatalf("exact preset match should be case-insensitive")
	}
	if !MatchesLicense(rec, LicenseRule{Preset: "Any"}) {
		t.Fatalf(`preset "Any" disables the check`)
	}
	if MatchesLicense(rec, LicenseRule{Preset: "cc_by_nc"}) {
		t.Fatalf("non-matching preset should exclude")
	}
}

func TestMatchesLicenseExcludeComponents(t *testing.T) {
	t.Parallel()

	rec := domain.Record{License: "cc_by_nc"}
	if MatchesLicense(rec, LicenseRule{ExcludeNC: true}) {
		t.Fatalf("exclude_nc must reject cc_by_nc regardless of other settings")
	}
	if MatchesLicense(rec, LicenseRule{Preset: "cc_by_nc", ExcludeNC: true}) {
		t.Fatalf("exclusion applies even when the preset matches")
	}
	if !MatchesLicense(rec, LicenseRule{ExcludeND: true, ExcludeSA: true}) {
		t.Fatalf("unrelated exclusions should not reject")
	}
}

func TestMatchesLicenseRequireCC(t *testing.T) {
	t.Parallel()

	if !MatchesLicense(domain.Record{License: "cc_by"}, LicenseRule{RequireCC: true}) {
		t.Fatalf("cc_by satisfies the CC requirement")
	}
	if MatchesLicense(domain.Record{License: "cc_no"}, LicenseRule{RequireCC: true}) {
		t.Fatalf("cc_no is the no-redistribution marker and must fail")
	}
	if MatchesLicense(domain.Record{License: "all rights reserved"}, LicenseRule{RequireCC: true}) {
		t.Fatalf("non-CC license must fail the CC requirement")
	}
	if MatchesLicense(domain.Record{License: ""}, LicenseRule{RequireCC: true}) {
		t.Fatalf("empty license must fail the CC requirement")
	}
}

func TestMatchesKeywords(t *testing.T) {
	t.Parallel()

	rec := domain.Record{
		Title:    "Single-cell atlas of the zebrafish brain",
		Abstract: "We profile neuronal transcriptomes during development.",
	}

	if !MatchesKeywords(rec, KeywordRule{}) {
		t.Fatalf("empty keyword set always matches")
	}

	anyRule := KeywordRule{Keywords: []string{"missing", "Zebrafish"}, Mode: MatchAny}
	if !MatchesKeywords(rec, anyRule) {
		t.Fatalf("ANY mode should match on one hit")
	}

	allRule := KeywordRule{Keywords: []string{"zebrafish", "neuronal"}, Mode: MatchAll}
	if !MatchesKeywords(rec, allRule) {
		t.Fatalf("ALL mode should match when every keyword is present")
	}

	allMiss := KeywordRule{Keywords: []string{"zebrafish", "cortex"}, Mode: MatchAll}
	if MatchesKeywords(rec, allMiss) {
		t.Fatalf("ALL mode must fail when any keyword is absent")
	}
}

func TestParseKeywords(t *testing.T) {
	t.Parallel()

	kws := ParseKeywords(" brain , , zebrafish,")
	if len(kws) != 2 || kws[0] != "brain" || kws[1] != "zebrafish" {
		t.Fatalf("unexpected keywords: %v", kws)
	}
	if got := ParseKeywords(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestMatchesCombinesRules(t *testing.T) {
	t.Parallel()

	rec := domain.Record{Title: "Protein folding", License: "cc_by"}
	lic := LicenseRule{Preset: "cc_by"}
	kw := KeywordRule{Keywords: []string{"folding"}, Mode: MatchAny}

	if !Matches(rec, lic, kw) {
		t.Fatalf("both rules pass, record should match")
	}
	if Matches(rec, LicenseRule{Preset: "cc_by_nd"}, kw) {
		t.Fatalf("license failure must exclude despite keyword hit")
	}
	if Matches(rec, lic, KeywordRule{Keywords: []string{"plasma"}, Mode: MatchAny}) {
		t.Fatalf("keyword failure must exclude despite license hit")
	}
}
