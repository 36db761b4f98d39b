// Package mysql stores spots and tickets in the MySQL "parking" and
// "ticket" tables through sqlx.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Open connects to MySQL and verifies the connection. DATETIME columns are
// always read as UTC time.Time values whatever the DSN says. Queries are
// traced and pool stats exported through otelsql.
func Open(dsn string) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	sqlDB := otelsql.OpenDB(connector, otelsql.WithAttributes(semconv.DBSystemMySQL))
	if err := otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(semconv.DBSystemMySQL)); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, "mysql")

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
