package rewrite

import (
	"testing"

	"github.com/rowcap/rowcap/pkg/parse"
)

func rewriteSQL(t *testing.T, sql string, limit int) string {
	t.Helper()
	st, err := parse.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	return WithLimit(st, limit)
}

func TestWithLimit_WrapWhenNoLimit(t *testing.T) {
	got := rewriteSQL(t, "SELECT * FROM t", 100)
	want := "SELECT TOP 100 FROM (\nSELECT * FROM t\n)"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_WrapStripsTrailingSemicolon(t *testing.T) {
	got := rewriteSQL(t, "SELECT * FROM t;\n", 10)
	want := "SELECT TOP 10 FROM (\nSELECT * FROM t\n)"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_SubstituteBareForm(t *testing.T) {
	got := rewriteSQL(t, "SELECT TOP 10 * FROM t", 50)
	want := "SELECT TOP 50 * FROM t"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_SubstituteFunctionForm(t *testing.T) {
	got := rewriteSQL(t, "SELECT TOP(10) * FROM t", 50)
	want := "SELECT TOP(50) * FROM t"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_CTEWithoutLimit(t *testing.T) {
	got := rewriteSQL(t, "WITH a AS (SELECT * FROM t) SELECT * FROM a", 20)
	want := "WITH a AS (SELECT * FROM t), inner_qry as (\n" +
		"SELECT * FROM a\n" +
		")\n" +
		"SELECT TOP 20 * FROM inner_qry"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_CTEWithExistingLimit(t *testing.T) {
	got := rewriteSQL(t, "WITH a AS (SELECT * FROM t) SELECT TOP 10 * FROM a", 5)
	want := "WITH a AS (SELECT * FROM t) SELECT TOP 5 * FROM a"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_CTELimitInsideDefinitionIsIgnored(t *testing.T) {
	// The TOP inside the definition is not the statement's limit, so
	// this statement takes the inner_qry wrapper and the definition's
	// clause survives untouched.
	got := rewriteSQL(t, "WITH a AS (SELECT TOP 10 * FROM t) SELECT * FROM a", 20)
	want := "WITH a AS (SELECT TOP 10 * FROM t), inner_qry as (\n" +
		"SELECT * FROM a\n" +
		")\n" +
		"SELECT TOP 20 * FROM inner_qry"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithLimit_SubstitutionPreservesSurroundingBytes(t *testing.T) {
	// Only the literal changes; every other byte comes back verbatim,
	// including irregular spacing, comments, and casing.
	tests := []struct {
		in   string
		want string
	}{
		{
			"select\ttop  10\n* from [my table] -- cap\n",
			"select\ttop  50\n* from [my table] -- cap\n",
		},
		{
			"SELECT TOP /* keep */ 10 * FROM t",
			"SELECT TOP /* keep */ 50 * FROM t",
		},
		{
			"SELECT Top(10) a, 'top' FROM t WHERE x <= 3",
			"SELECT Top(50) a, 'top' FROM t WHERE x <= 3",
		},
	}
	for _, tt := range tests {
		if got := rewriteSQL(t, tt.in, 50); got != tt.want {
			t.Errorf("got  %q\nwant %q", got, tt.want)
		}
	}
}

func TestWithLimit_RaisingAndLowering(t *testing.T) {
	// Substitution is unconditional at this layer; the caller decides
	// whether the new limit should apply.
	if got := rewriteSQL(t, "SELECT TOP 10 * FROM t", 1000); got != "SELECT TOP 1000 * FROM t" {
		t.Errorf("raise: got %q", got)
	}
	if got := rewriteSQL(t, "SELECT TOP 1000 * FROM t", 1); got != "SELECT TOP 1 * FROM t" {
		t.Errorf("lower: got %q", got)
	}
}

func TestWithSuffixLimit_Append(t *testing.T) {
	got, err := WithSuffixLimit("SELECT * FROM t", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT * FROM t\nLIMIT 100"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithSuffixLimit_AppendStripsTrailingSemicolon(t *testing.T) {
	got, err := WithSuffixLimit("SELECT * FROM t;\n", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT * FROM t\nLIMIT 100"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithSuffixLimit_ReplaceInPlace(t *testing.T) {
	got, err := WithSuffixLimit("SELECT * FROM t LIMIT 10", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT * FROM t LIMIT 50"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestWithSuffixLimit_SubqueryLimitIsNotTopLevel(t *testing.T) {
	got, err := WithSuffixLimit("SELECT * FROM (SELECT * FROM t LIMIT 5) x", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT * FROM (SELECT * FROM t LIMIT 5) x\nLIMIT 50"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestSuffixLimit(t *testing.T) {
	tests := []struct {
		sql       string
		wantLimit int
		wantOK    bool
	}{
		{"SELECT * FROM t", 0, false},
		{"SELECT * FROM t LIMIT 10", 10, true},
		{"select * from t limit 25", 25, true},
		{"SELECT * FROM (SELECT * FROM t LIMIT 5) x", 0, false},
	}
	for _, tt := range tests {
		limit, ok, err := SuffixLimit(tt.sql)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.sql, err)
			continue
		}
		if ok != tt.wantOK || limit != tt.wantLimit {
			t.Errorf("%q: SuffixLimit = (%d, %v), want (%d, %v)",
				tt.sql, limit, ok, tt.wantLimit, tt.wantOK)
		}
	}
}
