package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rowcap/rowcap/pkg/parse"
	"github.com/rowcap/rowcap/pkg/rewrite"
)

// MSSQL is the SQL Server dialect spec. Its grammar has no trailing
// LIMIT clause; rows are capped with the TOP prefix form, in either the
// bare (TOP n) or call-like (TOP(n)) surface syntax.
type MSSQL struct{}

func init() {
	Register(&MSSQL{})
}

func (*MSSQL) Name() string             { return "mssql" }
func (*MSSQL) DriverName() string       { return "sqlserver" }
func (*MSSQL) LimitFamily() LimitFamily { return FamilyPrefix }

// MaxColumnNameLength is the SQL Server identifier cap.
const MaxColumnNameLength = 128

// ApplyLimit rewrites sql so it returns at most limit rows, preserving
// every untouched token byte for byte. Statements that already carry a
// TOP clause get the literal substituted in place; statements without
// one are wrapped.
func (e *MSSQL) ApplyLimit(sql string, limit int) (string, error) {
	if err := validateLimit(limit); err != nil {
		return "", err
	}
	st, err := parse.Parse(sql)
	if err != nil {
		return "", err
	}
	return rewrite.WithLimit(st, limit), nil
}

// ExtractLimit reports the TOP value already present in sql. When the
// statement opens with a CTE prologue only the main query is searched.
func (e *MSSQL) ExtractLimit(sql string) (int, bool, error) {
	st, err := parse.Parse(sql)
	if err != nil {
		return 0, false, err
	}
	limit, ok := st.Limit()
	return limit, ok, nil
}

// ConvertDateTime formats t as a CONVERT(DATETIME, ...) literal using
// ISO 8601 style 126.
func (e *MSSQL) ConvertDateTime(t time.Time) string {
	iso := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us > 0 {
		iso = fmt.Sprintf("%s.%06d", iso, us)
	}
	return fmt.Sprintf("CONVERT(DATETIME, '%s', 126)", iso)
}

// EpochToDateTime returns the expression template converting a Unix
// epoch column to a datetime. The {col} placeholder stands for the
// column expression.
func (e *MSSQL) EpochToDateTime() string {
	return "dateadd(S, {col}, '1970-01-01')"
}

// timeGrains maps ISO 8601 duration designators to truncation
// expressions over the {col} placeholder.
var timeGrains = map[string]string{
	"":       "{col}",
	"PT1S":   "DATEADD(second, DATEDIFF(second, '2000-01-01', {col}), '2000-01-01')",
	"PT1M":   "DATEADD(minute, DATEDIFF(minute, 0, {col}), 0)",
	"PT5M":   "DATEADD(minute, DATEDIFF(minute, 0, {col}) / 5 * 5, 0)",
	"PT10M":  "DATEADD(minute, DATEDIFF(minute, 0, {col}) / 10 * 10, 0)",
	"PT15M":  "DATEADD(minute, DATEDIFF(minute, 0, {col}) / 15 * 15, 0)",
	"PT0.5H": "DATEADD(minute, DATEDIFF(minute, 0, {col}) / 30 * 30, 0)",
	"PT1H":   "DATEADD(hour, DATEDIFF(hour, 0, {col}), 0)",
	"P1D":    "DATEADD(day, DATEDIFF(day, 0, {col}), 0)",
	"P1W":    "DATEADD(week, DATEDIFF(week, 0, {col}), 0)",
	"P1M":    "DATEADD(month, DATEDIFF(month, 0, {col}), 0)",
	"P0.25Y": "DATEADD(quarter, DATEDIFF(quarter, 0, {col}), 0)",
	"P1Y":    "DATEADD(year, DATEDIFF(year, 0, {col}), 0)",
}

// TimeGrainExpr returns the expression truncating col to the given
// grain, and whether the grain is supported.
func (e *MSSQL) TimeGrainExpr(grain, col string) (string, bool) {
	tpl, ok := timeGrains[grain]
	if !ok {
		return "", false
	}
	return ExpandColumn(tpl, col), true
}

// ExpandColumn substitutes col for the {col} placeholder in an
// expression template.
func ExpandColumn(template, col string) string {
	return strings.ReplaceAll(template, "{col}", col)
}

// ColumnKind classifies a column datatype string for value handling.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindString
	KindUnicodeText
)

var (
	unicodeTypeRe = regexp.MustCompile(`(?i)^N((VAR)?CHAR|TEXT)`)
	stringTypeRe  = regexp.MustCompile(`(?i)^((VAR)?CHAR|TEXT|STRING)`)
)

// ColumnType classifies a declared column type. The unicode check runs
// first because Go's regexp has no lookbehind to exclude the N prefix
// from the plain-string match.
func (e *MSSQL) ColumnType(declared string) ColumnKind {
	switch {
	case unicodeTypeRe.MatchString(declared):
		return KindUnicodeText
	case stringTypeRe.MatchString(declared):
		return KindString
	default:
		return KindUnknown
	}
}

// ColumnDatatypeToString trims the verbose collation suffix SQL Server
// reports, as in "VARCHAR(255) COLLATE SQL_Latin1_General_CP1_CI_AS".
func (e *MSSQL) ColumnDatatypeToString(datatype string) string {
	if idx := strings.Index(datatype, " COLLATE "); idx >= 0 {
		return datatype[:idx]
	}
	return datatype
}
