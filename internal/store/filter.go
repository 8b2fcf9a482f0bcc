package store

import (
	"strconv"
	"strings"
)

// Filter is an opaque predicate carrying a single SQL-fragment string,
// appended to a WHERE clause by the entity-specific list/filter queries.
// Its shape is pinned to original_source/src/db.rs's Filter: a bare query
// string, nothing richer.
type Filter struct {
	query string
}

// NewFilter wraps an already-built fragment, mostly useful for tests.
func NewFilter(query string) Filter {
	return Filter{query: query}
}

// Query returns the raw SQL boolean fragment.
func (f Filter) Query() string {
	return f.query
}

var filterOperators = map[string]bool{
	"=":    true,
	"!=":   true,
	"like": true,
}

// ParseFilter implements the filter-language grammar:
//
//	filter   := ε  |  "where" term (ws term)*
//	term     := key "=" value        // single-token k=v
//	          | key                  // bare identifier / operator / keyword
//	value    := token                // after '=', 'like', '!=' a literal
//
// An empty token list yields the match-all predicate "1". A non-empty
// list must begin with "where" (case-insensitive) or parsing fails with
// FilterSyntaxError.
func ParseFilter(args []string) (Filter, error) {
	if len(args) == 0 {
		return NewFilter("1"), nil
	}

	if !strings.EqualFold(args[0], "where") {
		return Filter{}, &FilterSyntaxError{Reason: "filter must begin with WHERE"}
	}
	args = args[1:]

	var b strings.Builder
	expectValue := false

	for _, arg := range args {
		if idx := strings.Index(arg, "="); idx > 0 && !filterOperators[strings.ToLower(arg)] {
			key, value := arg[:idx], arg[idx+1:]
			b.WriteString(" ")
			b.WriteString(key)
			b.WriteString(" = ")
			b.WriteString(strconv.Quote(value))
			continue
		}

		if expectValue {
			b.WriteString(" ")
			b.WriteString(strconv.Quote(arg))
			expectValue = false
			continue
		}

		if filterOperators[strings.ToLower(arg)] {
			expectValue = true
		}
		b.WriteString(" ")
		b.WriteString(arg)
	}

	return NewFilter(b.String()), nil
}
