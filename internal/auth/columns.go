package auth

import (
	"sort"
	"strings"

	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

// ColumnSet is the set of record columns a role may write. The wildcard set
// permits every column; the empty set permits none (read-only role).
type ColumnSet struct {
	all     bool
	columns map[string]string // folded key -> canonical column name
}

// AllColumns returns the wildcard column set.
func AllColumns() ColumnSet {
	return ColumnSet{all: true}
}

// NewColumnSet builds an explicit column set. Matching is case-insensitive
// and whitespace-trimmed.
func NewColumnSet(names ...string) ColumnSet {
	cols := make(map[string]string, len(names))
	for _, n := range names {
		canonical := strings.TrimSpace(n)
		if canonical == "" {
			continue
		}
		cols[foldColumn(canonical)] = canonical
	}
	return ColumnSet{columns: cols}
}

// IsWildcard reports whether the set is the "all" sentinel.
func (c ColumnSet) IsWildcard() bool {
	return c.all
}

// IsEmpty reports whether the set permits no columns at all.
func (c ColumnSet) IsEmpty() bool {
	return !c.all && len(c.columns) == 0
}

// Contains reports whether the set covers the given column name.
func (c ColumnSet) Contains(name string) bool {
	if c.all {
		return true
	}
	_, ok := c.columns[foldColumn(name)]
	return ok
}

// Names returns the explicit column names, sorted. Nil for the wildcard set.
func (c ColumnSet) Names() []string {
	if c.all {
		return nil
	}
	names := make([]string, 0, len(c.columns))
	for _, canonical := range c.columns {
		names = append(names, canonical)
	}
	sort.Strings(names)
	return names
}

func foldColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FilterWritableFields trims a write payload down to the columns the set
// permits. Keys are matched case-insensitively after trimming; unmatched keys
// are returned in rejected, sorted, and dropped from the filtered payload.
// For the wildcard set the payload is returned unchanged.
func FilterWritableFields(payload map[string]any, allowed ColumnSet) (map[string]any, []string) {
	if allowed.IsWildcard() {
		return payload, nil
	}
	filtered := make(map[string]any, len(payload))
	var rejected []string
	for key, value := range payload {
		if allowed.Contains(key) {
			filtered[key] = value
		} else {
			rejected = append(rejected, key)
		}
	}
	sort.Strings(rejected)
	return filtered, rejected
}

// FilterForUpdate applies FilterWritableFields with update semantics: a
// non-empty payload that filters down to nothing fails instead of silently
// becoming a no-op write. Creation paths must not use this; an insert with no
// permitted fields is left to the business handler's required-field checks.
func FilterForUpdate(roleLabel string, payload map[string]any, allowed ColumnSet) (map[string]any, []string, error) {
	filtered, rejected := FilterWritableFields(payload, allowed)
	if len(filtered) == 0 && len(payload) > 0 {
		return nil, rejected, apperrors.NoPermittedFields(roleLabel, rejected)
	}
	return filtered, rejected, nil
}
