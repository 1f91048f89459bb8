package dialect

import (
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	SQLite    = "sqlite3"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// Placeholder is a parameter marker style understood by a driver.
type Placeholder uint8

// Placeholder styles.
const (
	Named Placeholder = iota
	Question
	Dollar
	AtP
	ColonNum
)

var placeholderNames = [...]string{
	Named:    "named",
	Question: "question",
	Dollar:   "dollar",
	AtP:      "atp",
	ColonNum: "colon",
}

// String returns the style name.
func (p Placeholder) String() string {
	if int(p) < len(placeholderNames) {
		return placeholderNames[p]
	}
	return fmt.Sprintf("Placeholder(%d)", p)
}

// Positional reports whether arguments are bound by position rather than name.
func (p Placeholder) Positional() bool { return p != Named }

// Indexed reports whether a repeated marker reuses the same numbered placeholder.
func (p Placeholder) Indexed() bool {
	return p == Dollar || p == AtP || p == ColonNum
}

// Marker returns the placeholder text for the n-th (1-based) argument.
func (p Placeholder) Marker(name string, n int) string {
	switch p {
	case Question:
		return "?"
	case Dollar:
		return fmt.Sprintf("$%d", n)
	case AtP:
		return fmt.Sprintf("@p%d", n)
	case ColonNum:
		return fmt.Sprintf(":%d", n)
	default:
		return "@" + name
	}
}

// PlaceholderFor returns the placeholder style used by the given dialect.
// Unknown dialects keep named markers.
func PlaceholderFor(name string) Placeholder {
	switch Canonical(name) {
	case MySQL, SQLite:
		return Question
	case Postgres:
		return Dollar
	case SQLServer:
		return AtP
	case Oracle:
		return ColonNum
	default:
		return Named
	}
}

// ParsePlaceholder parses a style name as written in configuration files.
// Dialect names are accepted as well.
func ParsePlaceholder(s string) (Placeholder, error) {
	for i, n := range placeholderNames {
		if strings.EqualFold(s, n) {
			return Placeholder(i), nil
		}
	}
	if Canonical(s) != "" {
		return PlaceholderFor(s), nil
	}
	return Named, fmt.Errorf("dialect: unknown placeholder style %q", s)
}

// Canonical maps driver names and their wrapped variants (for example
// "postgres+otel" or "sqlite") to one of the dialect constants. It returns
// "" for unknown names.
func Canonical(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "pgx"), strings.HasPrefix(name, Postgres):
		return Postgres
	case strings.HasPrefix(name, MySQL):
		return MySQL
	case strings.HasPrefix(name, "sqlite"):
		return SQLite
	case strings.HasPrefix(name, SQLServer), strings.HasPrefix(name, "mssql"):
		return SQLServer
	case strings.HasPrefix(name, Oracle), strings.HasPrefix(name, "godror"):
		return Oracle
	}
	return ""
}
