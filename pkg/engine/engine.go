// Package engine defines per-database dialect specs and their
// row-limit behavior. Each spec declares which limiting-syntax family
// its grammar uses, so the execution layer can decide when a rewrite is
// needed, and knows the database/sql driver that serves it.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/rowcap/rowcap/pkg/errors"
)

// LimitFamily classifies how a dialect's grammar caps result rows.
type LimitFamily int

const (
	// FamilyPrefix is the SELECT TOP n form attached to the SELECT
	// keyword.
	FamilyPrefix LimitFamily = iota
	// FamilySuffix is the trailing LIMIT n clause.
	FamilySuffix
)

func (f LimitFamily) String() string {
	switch f {
	case FamilyPrefix:
		return "prefix"
	case FamilySuffix:
		return "suffix"
	default:
		return "unknown"
	}
}

// Spec is one database dialect.
type Spec interface {
	// Name is the registry key, e.g. "mssql".
	Name() string

	// DriverName is the database/sql driver serving this engine.
	DriverName() string

	// LimitFamily reports the dialect's limiting-syntax family.
	LimitFamily() LimitFamily

	// ApplyLimit returns sql capped at limit rows. limit must be
	// positive; both ApplyLimit and ExtractLimit are pure functions of
	// their input text.
	ApplyLimit(sql string, limit int) (string, error)

	// ExtractLimit reports the row limit already present in sql, if
	// any. Absence of a limit clause is a value, not an error.
	ExtractLimit(sql string) (int, bool, error)

	// ConvertDateTime formats t as a dialect-native timestamp literal.
	ConvertDateTime(t time.Time) string
}

// validateLimit rejects non-positive limits before any rewriting.
func validateLimit(limit int) error {
	if limit <= 0 {
		return errors.InvalidLimit(limit).WithOp("Engine.ApplyLimit").Err()
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Spec)
)

// Register adds a spec to the registry, replacing any previous spec of
// the same name.
func Register(s Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

// Lookup returns the spec registered under name.
func Lookup(name string) (Spec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, errors.UnknownEngine(name).WithOp("Engine.Lookup").Err()
	}
	return s, nil
}

// Names returns the registered engine names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
