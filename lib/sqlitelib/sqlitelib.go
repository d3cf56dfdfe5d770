// Package sqlitelib exposes SQLite to scripts as a global sql table
// with open, close, exec and query. Database handles are userdata boxes
// carrying a *sql.DB behind the "sql.DB" metatable; query results come
// back as an array of row tables keyed by column name, with each value
// pushed by its dynamic type.
package sqlitelib

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/marshal"
	"github.com/moonstack/luastack/state"
)

// metaName is the registry name of the database handle metatable.
const metaName = "sql.DB"

// Config adjusts the library and supplies pool settings for handles
// opened through it.
type Config struct {
	// DSN is the data source sql.open falls back to when called without
	// an argument.
	DSN string

	// Pool settings per opened handle. Zero values mean 10 open
	// connections, 5 idle, 5 minute lifetime.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type lib struct {
	cfg Config
}

// conn is the Go value boxed inside a database handle userdata.
type conn struct {
	db  *sql.DB
	dsn string
}

// DSN decorates a database path with the connection settings the library
// expects: WAL journaling, a busy timeout, and foreign keys on.
func DSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Open registers the sql table as a global on l.
func Open(l *state.State, cfg Config) error {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	s := &lib{cfg: cfg}

	l.NewMetatable(metaName)
	l.Pop(1)

	l.CreateTable(0, 4)
	funcs := map[string]state.Function{
		"open":  s.open,
		"close": s.close,
		"exec":  s.exec,
		"query": s.query,
	}
	for name, fn := range funcs {
		marshal.PushFunc(l, fn)
		l.NameFunction(-1, "sql."+name)
		if err := l.RawSetField(-2, name); err != nil {
			return err
		}
	}
	return l.SetGlobal("sql")
}

// open connects to the argument DSN, or the configured default without
// one, and returns the boxed handle.
func (s *lib) open(l *state.State) (int, error) {
	dsn := s.cfg.DSN
	if l.Top() >= 1 {
		v, ok := l.ToString(1)
		if !ok {
			return 0, errors.BadArgument("sql.open", 1, "string expected, got "+l.TypeName(1))
		}
		dsn = v
	}
	if dsn == "" {
		return 0, errors.BadArgument("sql.open", 1, "data source name expected")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, errors.OpenFailed(dsn, err)
	}
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
	if err := db.Ping(); err != nil {
		db.Close()
		return 0, errors.OpenFailed(dsn, err)
	}
	debugf("open: %s", dsn)

	l.PushUserdata(&conn{db: db, dsn: dsn})
	l.MetatableNamed(metaName)
	l.SetMetatable(-2)
	return 1, nil
}

func (s *lib) close(l *state.State) (int, error) {
	c, err := toConn(l, "sql.close")
	if err != nil {
		return 0, err
	}
	debugf("close: %s", c.dsn)
	if err := c.db.Close(); err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindIO, err, "close %s", c.dsn)
	}
	return 0, nil
}

// exec runs a statement that returns no rows and pushes the affected row
// count.
func (s *lib) exec(l *state.State) (int, error) {
	c, err := toConn(l, "sql.exec")
	if err != nil {
		return 0, err
	}
	query, ok := l.ToString(2)
	if !ok {
		return 0, errors.BadArgument("sql.exec", 2, "statement expected, got "+l.TypeName(2))
	}
	args, err := slotArgs(l, "sql.exec", 3)
	if err != nil {
		return 0, err
	}

	res, err := c.db.Exec(query, args...)
	if err != nil {
		return 0, errors.QueryFailed(query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.QueryFailed(query, err)
	}
	debugf("exec: %d rows affected", n)
	marshal.Push(l, n)
	return 1, nil
}

// query runs a statement and pushes its rows as an array of column-keyed
// tables.
func (s *lib) query(l *state.State) (int, error) {
	c, err := toConn(l, "sql.query")
	if err != nil {
		return 0, err
	}
	query, ok := l.ToString(2)
	if !ok {
		return 0, errors.BadArgument("sql.query", 2, "statement expected, got "+l.TypeName(2))
	}
	args, err := slotArgs(l, "sql.query", 3)
	if err != nil {
		return 0, err
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return 0, errors.QueryFailed(query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, errors.QueryFailed(query, err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	l.CreateTable(0, 0)
	n := int64(0)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return 0, errors.QueryFailed(query, err)
		}
		l.CreateTable(0, len(cols))
		for i, col := range cols {
			pushColumn(l, values[i])
			if err := l.RawSetField(-2, col); err != nil {
				return 0, err
			}
		}
		n++
		if err := l.RawSetIndex(-2, n); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errors.QueryFailed(query, err)
	}
	debugf("query: %d rows", n)
	return 1, nil
}

func toConn(l *state.State, fn string) (*conn, error) {
	v, ok := l.ToUserdata(1)
	if !ok {
		return nil, errors.BadArgument(fn, 1, "database handle expected, got "+l.TypeName(1))
	}
	c, ok := v.(*conn)
	if !ok {
		return nil, errors.BadArgument(fn, 1, "database handle expected")
	}
	return c, nil
}

// slotArgs reads statement parameters from slot start on, binding each
// by its dynamic kind.
func slotArgs(l *state.State, fn string, start int) ([]any, error) {
	var args []any
	for i := start; i <= l.Top(); i++ {
		switch l.Type(i) {
		case state.TypeNil:
			args = append(args, nil)
		case state.TypeBoolean:
			args = append(args, l.ToBoolean(i))
		case state.TypeNumber:
			if l.IsInteger(i) {
				n, _ := l.ToInteger(i)
				args = append(args, n)
			} else {
				f, _ := l.ToNumber(i)
				args = append(args, f)
			}
		case state.TypeString:
			s, _ := l.ToString(i)
			args = append(args, s)
		default:
			return nil, errors.BadArgument(fn, i, "cannot bind a "+l.TypeName(i)+" parameter")
		}
	}
	return args, nil
}

// pushColumn pushes one scanned column value. Blobs land as strings;
// anything the driver returns outside the scalar set renders through %v.
func pushColumn(l *state.State, v any) {
	switch x := v.(type) {
	case nil:
		marshal.Push(l, marshal.Nil)
	case bool:
		marshal.Push(l, x)
	case int64:
		marshal.Push(l, x)
	case float64:
		marshal.Push(l, x)
	case string:
		marshal.Push(l, x)
	case []byte:
		marshal.Push(l, x)
	case time.Time:
		marshal.Push(l, x.Format(time.RFC3339Nano))
	default:
		marshal.Push(l, fmt.Sprintf("%v", x))
	}
}
