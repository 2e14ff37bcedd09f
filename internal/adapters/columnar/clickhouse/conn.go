// Package clickhouse appends pageview batches to a ClickHouse table
package clickhouse

import (
	"context"
	"fmt"
	"regexp"

	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/validate"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures the ClickHouse sink
type Config struct {
	DSN         string `validate:"required"`
	Table       string `validate:"required,max=128"`
	CreateTable bool
	Role        string
	Version     string
}

// Batch is the slice of driver.Batch the sink uses
type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// Conn is the slice of driver.Conn the sink uses
type Conn interface {
	PrepareBatch(ctx context.Context, query string) (Batch, error)
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

type driverConn struct{ c driver.Conn }

func (d driverConn) PrepareBatch(ctx context.Context, q string) (Batch, error) {
	return d.c.PrepareBatch(ctx, q)
}
func (d driverConn) Exec(ctx context.Context, q string, args ...any) error {
	return d.c.Exec(ctx, q, args...)
}
func (d driverConn) Close() error { return d.c.Close() }

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Open dials ClickHouse from cfg.DSN, pings it, and optionally creates the table
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	if err := validate.Struct(cfg, perr.ErrorCodeInvalidArgument); err != nil {
		return nil, perr.WithOp(err, "clickhouse.open")
	}
	if !identRe.MatchString(cfg.Table) {
		return nil, perr.WithField(perr.InvalidArgf("clickhouse: invalid table name %q", cfg.Table), "table")
	}
	opts, err := ch.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "clickhouse: parse dsn"), "dsn")
	}
	opts.ClientInfo = BuildClientInfo(cfg.Role, cfg.Version)

	c, err := ch.Open(opts)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "clickhouse: open")
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "clickhouse: ping")
	}
	conn := driverConn{c: c}
	if cfg.CreateTable {
		if err := conn.Exec(ctx, CreateTableSQL(cfg.Table)); err != nil {
			_ = c.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "clickhouse: create table %s", cfg.Table)
		}
	}
	return NewSink(conn, cfg.Table), nil
}

// CreateTableSQL returns the DDL for the pageview table
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	domain_code LowCardinality(String),
	page_title  String,
	views       UInt32,
	language    LowCardinality(String),
	domain      LowCardinality(Nullable(String)),
	mobile      Bool
) ENGINE = MergeTree
ORDER BY (domain_code, page_title)`, table)
}
