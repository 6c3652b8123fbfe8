// Package fetch executes limit-capped queries through database/sql.
//
// A Runner pairs a database handle with the engine spec that knows the
// dialect's limiting syntax. Queries are rewritten before execution
// only when the statement does not already carry a limit at or below
// the cap, and the cap is enforced again while collecting rows so a
// missed rewrite can never return more than asked for.
package fetch

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rowcap/rowcap/pkg/engine"
	"github.com/rowcap/rowcap/pkg/errors"
	"github.com/rowcap/rowcap/pkg/log"

	// Drivers for the registered engines (register via init())
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// Runner executes queries against one database through its engine spec.
type Runner struct {
	db     *sql.DB
	spec   engine.Spec
	logger *log.Logger
}

// Open connects a runner using the spec's database/sql driver.
func Open(spec engine.Spec, dsn string) (*Runner, error) {
	db, err := sql.Open(spec.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFetchConnect,
			"open %s connection", spec.Name()).WithOp("fetch.Open").Err()
	}
	return NewRunner(db, spec), nil
}

// NewRunner wraps an existing database handle.
func NewRunner(db *sql.DB, spec engine.Spec) *Runner {
	return &Runner{db: db, spec: spec, logger: log.Default()}
}

// SetLogger overrides the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// DB returns the underlying database handle.
func (r *Runner) DB() *sql.DB {
	return r.db
}

// Close closes the underlying database handle.
func (r *Runner) Close() error {
	return r.db.Close()
}

// Result holds a collected, normalized result set.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// QueryWithLimit runs query capped at limit rows. A limit of 0 runs the
// query unmodified and uncapped.
func (r *Runner) QueryWithLimit(ctx context.Context, query string, limit int) (*Result, error) {
	capped := query
	if limit > 0 {
		existing, ok, err := r.spec.ExtractLimit(query)
		if err != nil {
			return nil, err
		}
		if !ok || existing > limit {
			capped, err = r.spec.ApplyLimit(query, limit)
			if err != nil {
				return nil, err
			}
			r.logger.Fetch().Debug("applied row limit",
				"engine", r.spec.Name(), "limit", limit)
		}
	}

	rows, err := r.db.QueryContext(ctx, capped)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetchQuery, "query failed").
			WithOp("Runner.QueryWithLimit").Err()
	}
	defer rows.Close()

	return collect(rows, limit)
}

// collect drains rows into a Result, normalizing driver values and
// enforcing the row cap client side.
func collect(rows *sql.Rows, limit int) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetchScan, "read columns").Err()
	}

	dbTypes := make([]string, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			dbTypes[i] = t.DatabaseTypeName()
		}
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(res.Rows) >= limit {
			break
		}

		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFetchScan, "scan row").Err()
		}

		for i, v := range values {
			values[i] = normalizeValue(v, dbTypes[i])
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetchScan, "iterate rows").Err()
	}
	return res, nil
}

// normalizeValue converts raw driver values into stable Go types:
// byte slices become strings, and exact numeric columns become
// decimal values instead of lossy floats.
func normalizeValue(v interface{}, dbType string) interface{} {
	switch x := v.(type) {
	case []byte:
		s := string(x)
		if isExactNumeric(dbType) {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
		return s
	case string:
		if isExactNumeric(dbType) {
			if d, err := decimal.NewFromString(x); err == nil {
				return d
			}
		}
		return x
	default:
		return v
	}
}

func isExactNumeric(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
