package engine

import (
	"fmt"
	"time"

	"github.com/rowcap/rowcap/pkg/rewrite"
)

// SQLite is the SQLite dialect spec. Like Postgres it caps rows with a
// trailing LIMIT clause.
type SQLite struct{}

func init() {
	Register(&SQLite{})
}

func (*SQLite) Name() string             { return "sqlite" }
func (*SQLite) DriverName() string       { return "sqlite3" }
func (*SQLite) LimitFamily() LimitFamily { return FamilySuffix }

func (e *SQLite) ApplyLimit(sql string, limit int) (string, error) {
	if err := validateLimit(limit); err != nil {
		return "", err
	}
	return rewrite.WithSuffixLimit(sql, limit)
}

func (e *SQLite) ExtractLimit(sql string) (int, bool, error) {
	return rewrite.SuffixLimit(sql)
}

func (e *SQLite) ConvertDateTime(t time.Time) string {
	return fmt.Sprintf("'%s'", t.Format("2006-01-02T15:04:05"))
}
