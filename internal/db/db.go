package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/secretkeeper/internal/db/migrations"
)

// Goose dialect names
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dialect string
}

// Init opens the database described by dsn and runs migrations. Postgres URLs
// (postgres:// or postgresql://) go through pgx; anything else is treated as
// a SQLite file path.
func Init(dsn string) (*DB, error) {
	driver, dialect, source, err := resolveDSN(dsn)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	db := Wrap(sqlDB, dialect)
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Wrap builds a DB over an already opened pool without running migrations
func Wrap(sqlDB *sql.DB, dialect string) *DB {
	return &DB{DB: sqlDB, dialect: dialect}
}

// Dialect returns the goose dialect of the underlying database
func (db *DB) Dialect() string {
	return db.dialect
}

func resolveDSN(dsn string) (driver, dialect, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", "", fmt.Errorf("database URL is empty")
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", DialectPostgres, dsn, nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", "", fmt.Errorf("create database directory: %w", err)
		}
	}
	return "sqlite", DialectSQLite, path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
}

// migrate applies the embedded goose migrations
func (db *DB) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect(db.dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, ".")
}

// gooseLogger routes goose output through slog
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	os.Exit(1)
}
