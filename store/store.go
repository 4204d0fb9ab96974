package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrBookNotFound         = errors.New("book not found")
	ErrNoCopiesAvailable    = errors.New("no copies available")
	ErrBorrowNotFound       = errors.New("transaction not found")
	ErrAlreadyReturned      = errors.New("already returned")
	ErrNotActive            = errors.New("not active")
	ErrConflict             = errors.New("concurrent modification, retry")
	ErrDueDateOutOfRange    = errors.New("due date out of range")
	ErrOrderNotFound        = errors.New("order not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrReviewExists         = errors.New("you have already reviewed this book")
	ErrCommunityNotFound    = errors.New("community not found")
	ErrAlreadyMember        = errors.New("you are already a member")
	ErrNotMember            = errors.New("you are not a member of this community")
	ErrCommunityFull        = errors.New("community is full")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

const (
	dialectMySQL    = "mysql"
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// handle runs queries written with '?' placeholders against a connection or
// transaction, rebinding them for the active dialect.
type handle struct {
	conn    dbtx
	dialect string
}

func (h handle) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.conn.ExecContext(ctx, rebind(h.dialect, query), args...)
}

func (h handle) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.conn.QueryContext(ctx, rebind(h.dialect, query), args...)
}

func (h handle) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return h.conn.QueryRowContext(ctx, rebind(h.dialect, query), args...)
}

// Store is the SQL-backed persistence layer for every library entity.
type Store struct {
	handle
	db *sql.DB

	// Now is the clock used for every timestamp the store writes.
	Now func() time.Time
}

// Open connects to the database identified by driver ("mysql", "postgres"
// or "sqlite3") and dsn and verifies the connection.
func Open(driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case dialectMySQL:
		db, err = sql.Open("mysql", dsn)
	case dialectPostgres:
		db, err = sql.Open("pgx", dsn)
	case dialectSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err = sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dsn))
		if err == nil {
			// SQLite allows a single writer; one connection keeps
			// transactions from tripping over each other.
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver != dialectSQLite {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &Store{
		handle: handle{conn: db, dialect: driver},
		db:     db,
		Now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the driver name the store was opened with.
func (s *Store) Dialect() string {
	return s.dialect
}

// now returns the store clock in UTC at the precision every supported
// database can hold.
func (s *Store) now() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

// withTx runs fn inside a database transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(h handle) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(handle{conn: tx, dialect: s.dialect}); err != nil {
		return err
	}
	return tx.Commit()
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func rebind(dialect, query string) string {
	if dialect != dialectPostgres || !strings.Contains(query, "?") {
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

// isUniqueViolation reports whether err is a unique-constraint failure from
// any of the supported drivers.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// pageBounds normalises page/limit query values.
func pageBounds(page, limit, def int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func utcPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
