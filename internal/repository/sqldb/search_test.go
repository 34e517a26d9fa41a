package sqldb

import (
	"strings"
	"testing"
)

func TestSearchPredicate(t *testing.T) {
	pg := postgresDialect.searchPredicate()
	if strings.Count(pg, "ILIKE ?") != 2 {
		t.Errorf("postgres predicate = %q, want two ILIKE placeholders", pg)
	}

	lite := sqliteDialect.searchPredicate()
	if strings.Count(lite, foldFunc+"(") != 2 {
		t.Errorf("sqlite predicate = %q, want both columns folded with %s", lite, foldFunc)
	}
	if strings.Contains(lite, "LOWER(") {
		t.Errorf("sqlite predicate = %q uses ASCII-only LOWER", lite)
	}
}

func TestSearchPattern(t *testing.T) {
	tests := map[string]string{
		"Go":     "%go%",
		"ÉCOLE":  "%école%",
		"100%":   `%100\%%`,
		"a_b":    `%a\_b%`,
		"Straße": "%straße%",
	}
	for in, want := range tests {
		if got := searchPattern(in); got != want {
			t.Errorf("searchPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
