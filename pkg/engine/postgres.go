package engine

import (
	"fmt"
	"time"

	"github.com/rowcap/rowcap/pkg/rewrite"
)

// Postgres is the PostgreSQL dialect spec, served through pgx's
// database/sql adapter. Its grammar uses the trailing LIMIT clause, so
// limit application is a replace-or-append on the outer query.
type Postgres struct{}

func init() {
	Register(&Postgres{})
}

func (*Postgres) Name() string             { return "postgres" }
func (*Postgres) DriverName() string       { return "pgx" }
func (*Postgres) LimitFamily() LimitFamily { return FamilySuffix }

func (e *Postgres) ApplyLimit(sql string, limit int) (string, error) {
	if err := validateLimit(limit); err != nil {
		return "", err
	}
	return rewrite.WithSuffixLimit(sql, limit)
}

func (e *Postgres) ExtractLimit(sql string) (int, bool, error) {
	return rewrite.SuffixLimit(sql)
}

func (e *Postgres) ConvertDateTime(t time.Time) string {
	return fmt.Sprintf("TIMESTAMP '%s'", t.Format("2006-01-02 15:04:05"))
}
