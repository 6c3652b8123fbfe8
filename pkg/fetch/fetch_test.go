package fetch

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rowcap/rowcap/pkg/engine"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		dbType string
		want   interface{}
	}{
		{"bytes to string", []byte("hello"), "VARCHAR", "hello"},
		{"bytes decimal", []byte("12.34"), "DECIMAL", decimal.RequireFromString("12.34")},
		{"string decimal", "99.95", "NUMERIC", decimal.RequireFromString("99.95")},
		{"money", []byte("100.0000"), "MONEY", decimal.RequireFromString("100.0000")},
		{"lowercase type", "1.5", "numeric", decimal.RequireFromString("1.5")},
		{"malformed decimal stays string", []byte("n/a"), "DECIMAL", "n/a"},
		{"plain string untouched", "abc", "VARCHAR", "abc"},
		{"int64 untouched", int64(42), "BIGINT", int64(42)},
		{"nil untouched", nil, "VARCHAR", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in, tt.dbType)
			if d, ok := got.(decimal.Decimal); ok {
				want, isDec := tt.want.(decimal.Decimal)
				if !isDec || !d.Equal(want) {
					t.Errorf("got %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestIsExactNumeric(t *testing.T) {
	exact := []string{"DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY", "decimal"}
	for _, dt := range exact {
		if !isExactNumeric(dt) {
			t.Errorf("%q: expected exact numeric", dt)
		}
	}
	inexact := []string{"FLOAT", "REAL", "INT", "VARCHAR", ""}
	for _, dt := range inexact {
		if isExactNumeric(dt) {
			t.Errorf("%q: expected not exact numeric", dt)
		}
	}
}

func openTestDB(t *testing.T) *Runner {
	t.Helper()
	spec, err := engine.Lookup("sqlite")
	if err != nil {
		t.Fatalf("Lookup(sqlite): %v", err)
	}
	runner, err := Open(spec, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { runner.Close() })

	ctx := context.Background()
	if _, err := runner.DB().ExecContext(ctx,
		"CREATE TABLE nums (n INTEGER, label TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 1; i <= 10; i++ {
		if _, err := runner.DB().ExecContext(ctx,
			"INSERT INTO nums (n, label) VALUES (?, ?)", i, "row"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return runner
}

func TestQueryWithLimit_CapsRows(t *testing.T) {
	runner := openTestDB(t)

	res, err := runner.QueryWithLimit(context.Background(),
		"SELECT n, label FROM nums ORDER BY n", 3)
	if err != nil {
		t.Fatalf("QueryWithLimit: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "n" {
		t.Errorf("columns = %v", res.Columns)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(res.Rows))
	}
	if res.Rows[0][0] != int64(1) {
		t.Errorf("first value = %v (%T), want 1", res.Rows[0][0], res.Rows[0][0])
	}
}

func TestQueryWithLimit_ZeroRunsUncapped(t *testing.T) {
	runner := openTestDB(t)

	res, err := runner.QueryWithLimit(context.Background(),
		"SELECT n FROM nums", 0)
	if err != nil {
		t.Fatalf("QueryWithLimit: %v", err)
	}
	if len(res.Rows) != 10 {
		t.Errorf("got %d rows, want 10", len(res.Rows))
	}
}

func TestQueryWithLimit_KeepsTighterExistingLimit(t *testing.T) {
	runner := openTestDB(t)

	res, err := runner.QueryWithLimit(context.Background(),
		"SELECT n FROM nums ORDER BY n LIMIT 2", 10)
	if err != nil {
		t.Fatalf("QueryWithLimit: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("got %d rows, want 2", len(res.Rows))
	}
}

func TestQueryWithLimit_TightensLooserExistingLimit(t *testing.T) {
	runner := openTestDB(t)

	res, err := runner.QueryWithLimit(context.Background(),
		"SELECT n FROM nums ORDER BY n LIMIT 8", 4)
	if err != nil {
		t.Fatalf("QueryWithLimit: %v", err)
	}
	if len(res.Rows) != 4 {
		t.Errorf("got %d rows, want 4", len(res.Rows))
	}
}

func TestQueryWithLimit_QueryError(t *testing.T) {
	runner := openTestDB(t)

	_, err := runner.QueryWithLimit(context.Background(),
		"SELECT * FROM missing_table", 5)
	if err == nil {
		t.Fatal("expected an error")
	}
}
