// rowcap rewrites SQL statements to cap the number of rows they
// return, using the limiting syntax of the chosen engine, and can
// optionally execute the capped query against a live database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rowcap/rowcap/pkg/engine"
	"github.com/rowcap/rowcap/pkg/fetch"
	"github.com/rowcap/rowcap/pkg/log"
	"github.com/rowcap/rowcap/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rowcap", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		engineName = fs.String("engine", "mssql", "Target engine (mssql, postgres, sqlite)")
		limit      = fs.Int("limit", 1000, "Row limit to apply")
		extract    = fs.Bool("extract", false, "Print the statement's existing limit instead of rewriting")
		dsn        = fs.String("dsn", "", "Execute the capped query against this DSN and print rows")
		timeout    = fs.Duration("timeout", 30*time.Second, "Query timeout when executing")

		logLevel  = fs.String("log-level", "warn", "Log level (debug, info, warn, error, off)")
		logFormat = fs.String("log-format", "text", "Log format (text, json)")

		showHelp    = fs.Bool("h", false, "Show help")
		showVersion = fs.Bool("v", false, "Show version")
	)

	fs.Usage = func() {
		printUsage(stderr)
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showHelp {
		printUsage(stdout)
		return 0
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.Full())
		return 0
	}

	// Configure logging
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(*logLevel); err == nil {
		cfg.DefaultLevel = level
	}
	if strings.EqualFold(*logFormat, "json") {
		cfg.Format = log.FormatJSON
	}
	cfg.Output = stderr
	log.SetDefault(log.New(cfg))

	sql, err := readSQL(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "rowcap: %v\n", err)
		return 1
	}

	spec, err := engine.Lookup(*engineName)
	if err != nil {
		fmt.Fprintf(stderr, "rowcap: %v (known: %s)\n", err, strings.Join(engine.Names(), ", "))
		return 1
	}

	if *extract {
		value, ok, err := spec.ExtractLimit(sql)
		if err != nil {
			fmt.Fprintf(stderr, "rowcap: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(stdout, "none")
			return 0
		}
		fmt.Fprintln(stdout, value)
		return 0
	}

	capped, err := spec.ApplyLimit(sql, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "rowcap: %v\n", err)
		return 1
	}

	if *dsn == "" {
		fmt.Fprintln(stdout, capped)
		return 0
	}

	runner, err := fetch.Open(spec, *dsn)
	if err != nil {
		fmt.Fprintf(stderr, "rowcap: %v\n", err)
		return 1
	}
	defer runner.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := runner.QueryWithLimit(ctx, sql, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "rowcap: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(stdout, strings.Join(fields, "\t"))
	}
	return 0
}

// readSQL takes the statement from the remaining arguments, or stdin
// when none are given.
func readSQL(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `rowcap - SQL row-limit rewriter

Usage:
  rowcap [options] [SQL]

SQL is read from the arguments, or from stdin when none are given.

Options:
  -engine name     Target engine: mssql, postgres, sqlite (default mssql)
  -limit n         Row limit to apply (default 1000)
  -extract         Print the existing limit ("none" when absent)
  -dsn string      Execute the capped query against this DSN
  -timeout d       Query timeout when executing (default 30s)
  -log-level s     Log level: debug, info, warn, error, off (default warn)
  -log-format s    Log format: text, json (default text)
  -v               Show version
  -h               Show help

Examples:
  rowcap -limit 100 "SELECT * FROM sales"
  rowcap -extract "SELECT TOP 10 * FROM sales"
  rowcap -engine sqlite -dsn file.db -limit 50 "SELECT * FROM t"
`)
}
