// Package roledb resolves IRC user masks to role names via the
// configured SQLite database (spec.md §4.5, §5 admin plugin).
//
// Ported from original_source/plugins/admin_plugin.py's _resolve_roles
// and its _user_query. The connection is opened and closed per lookup
// the way the Python original opens a fresh sqlite3.connect() inside
// the handler; nanobot's command volume never justifies a pooled
// connection.
package roledb

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

const userRolesQuery = `
select roles.name from roles where roles.oid in
(select userroles.oid from (users natural join usermask)
natural join userroles where usermask.mask=?)`

// DB resolves roles for a user mask against a SQLite file.
type DB struct {
	path string
}

// Open returns a DB bound to the SQLite file at path. No connection
// is made until Roles is called.
func Open(path string) *DB {
	return &DB{path: path}
}

// Roles returns the role names assigned to mask (e.g. "nick!user@host").
// An empty path yields no roles, matching the Python original's
// behavior when core.db is unset.
func (d *DB) Roles(ctx context.Context, mask string) ([]string, error) {
	if d.path == "" {
		return nil, nil
	}

	conn, err := sql.Open("sqlite", d.path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, userRolesQuery, mask)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// HasRole reports whether roles contains want.
func HasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
