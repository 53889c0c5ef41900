package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableColumns describes a table through PRAGMA table_info.
func (s *SQLiteStore) TableColumns(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []domain.ColumnInfo
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, domain.ColumnInfo{Name: name, Type: ctype, NotNull: notnull == 1, PrimaryKey: pk > 0})
	}
	return columns, rows.Err()
}

// Authorizer action codes and results from sqlite3.h.
const (
	authOK        = 0
	authDeny      = 1
	authRead      = 20
	authSelect    = 21
	authFunction  = 31
	authRecursive = 33
)

// readAuthorizer lets a statement select from the named tables and call
// functions. Every other action fails at prepare time.
func readAuthorizer(tables []string) func(int, string, string, string) int {
	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[strings.ToLower(t)] = true
	}
	return func(action int, arg1, arg2, _ string) int {
		switch action {
		case authSelect, authRecursive:
			return authOK
		case authRead:
			if allowed[strings.ToLower(arg1)] {
				return authOK
			}
		case authFunction:
			if !strings.EqualFold(arg2, "load_extension") {
				return authOK
			}
		}
		return authDeny
	}
}

func setAuthorizer(conn *sql.Conn, fn func(int, string, string, string) int) error {
	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		c.RegisterAuthorizer(fn)
		return nil
	})
}

// QueryReadOnly runs a statement on a connection switched to query_only and
// returns at most maxRows rows in column order. SQLite refuses to prepare
// the statement if it reads any table outside tables.
func (s *SQLiteStore) QueryReadOnly(ctx context.Context, query string, tables []string, maxRows int) ([]string, [][]any, error) {
	if s.inTx {
		return nil, nil, fmt.Errorf("read-only queries cannot run inside a transaction")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, nil, fmt.Errorf("failed to enable query_only: %w", err)
	}
	defer func() {
		// The connection goes back to the pool; it must be writable again.
		_, _ = conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")
	}()

	if err := setAuthorizer(conn, readAuthorizer(tables)); err != nil {
		return nil, nil, fmt.Errorf("failed to install authorizer: %w", err)
	}
	defer func() { _ = setAuthorizer(conn, nil) }()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		if maxRows > 0 && len(out) >= maxRows {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		out = append(out, values)
	}
	return columns, out, rows.Err()
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
