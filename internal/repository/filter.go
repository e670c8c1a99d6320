package repository

import (
	"strings"
	"time"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// where accumulates AND-ed conditions with their positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// dateRange adds an inclusive day range on col.  to covers the whole day.
func (w *where) dateRange(col string, from, to *time.Time) {
	if from != nil {
		w.add(col+" >= ?", *from)
	}
	if to != nil {
		w.add(col+" < ?", to.AddDate(0, 0, 1))
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// clampLimit applies the default and the upper bound of list queries.
func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}
