// Package sqlstore persists polls, choices, voters and users through
// database/sql. The same queries run on Postgres (lib/pq) and SQLite
// (modernc.org/sqlite); queries are written with ? placeholders and rebound
// for Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", errors.Errorf("unsupported database type %q", s)
}

type DB struct {
	db      *sql.DB
	dialect Dialect
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func Open(dialect Dialect, dsn string) (*DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", dialect)
	}
	if dialect == SQLite {
		// a single connection serializes writers and keeps in-memory databases alive
		db.SetMaxOpenConns(1)
	}
	return New(db, dialect), nil
}

func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

func (d *DB) SQL() *sql.DB {
	return d.db
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// WithinTx implements ports.Transactor. Nested calls join the outer transaction.
func (d *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (d *DB) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.db
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.conn(ctx).ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.conn(ctx).QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.conn(ctx).QueryRowContext(ctx, d.rebind(query), args...)
}

func (d *DB) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	return d.conn(ctx).PrepareContext(ctx, d.rebind(query))
}

func (d *DB) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lockClause is appended to SELECTs that must hold a row lock. SQLite locks
// the whole database on the first write of a transaction instead.
func (d *DB) lockClause() string {
	if d.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Migrate applies every embedded up migration in name order. Migrations are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return errors.Wrap(err, "failed to list migrations")
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := migrationsFS.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", name)
		}
		if err := d.execScript(ctx, string(content)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", name)
		}
	}
	return nil
}

// ApplyMigration runs the single embedded migration file whose name ends with name.sql.
func (d *DB) ApplyMigration(ctx context.Context, name string) error {
	content, err := MigrationFile(name)
	if err != nil {
		return err
	}
	return d.execScript(ctx, string(content))
}

func MigrationFile(name string) ([]byte, error) {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(name)))
	if err != nil {
		return nil, errors.Wrap(err, "invalid migration name")
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migrations")
	}
	for _, e := range entries {
		if !e.IsDir() && pattern.MatchString(e.Name()) {
			return migrationsFS.ReadFile("migrations/" + e.Name())
		}
	}
	return nil, errors.Errorf("migration file %q not found", name)
}

func (d *DB) execScript(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := d.conn(ctx).ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

// dbTime normalizes timestamps so both dialects store and compare them the same way.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

var timeNow = time.Now
