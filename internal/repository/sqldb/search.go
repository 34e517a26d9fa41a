package sqldb

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// foldFunc is registered on every SQLite connection. SQLite's built-in
// LOWER only folds ASCII, so search folds both the column and the pattern
// with Go's Unicode-aware strings.ToLower instead.
const foldFunc = "wiki_fold"

func init() {
	err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return nil, fmt.Errorf("%s: unsupported argument type %T", foldFunc, v)
			}
		},
	)
	if err != nil {
		panic(fmt.Sprintf("sqldb: registering %s: %v", foldFunc, err))
	}
}

// searchPredicate matches a LIKE pattern (two placeholders, title then
// content) case-insensitively.
func (d dialect) searchPredicate() string {
	if d.name == DriverPostgres {
		return `a.title ILIKE ? ESCAPE '\' OR a.content ILIKE ? ESCAPE '\'`
	}
	return foldFunc + `(a.title) LIKE ? ESCAPE '\' OR ` + foldFunc + `(a.content) LIKE ? ESCAPE '\'`
}

// searchPattern turns a user query into a substring pattern. LIKE wildcards
// typed by the user are escaped.
func searchPattern(query string) string {
	return "%" + escapeLike(strings.ToLower(query)) + "%"
}
