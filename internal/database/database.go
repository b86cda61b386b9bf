package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/itstheanurag/codejudge/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const DatabasePingTimeout = 10

type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

type multiTracer struct {
	tracers []any
}

func (mt *multiTracer) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}

	return ctx
}

func (mt *multiTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryLogger logs every query at debug level and failed ones at warn.
type queryLogger struct {
	log *zerolog.Logger
}

func (l *queryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: time.Now()})
}

func (l *queryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, _ := ctx.Value(queryStartKey{}).(queryStart)
	var ev *zerolog.Event
	if data.Err != nil {
		ev = l.log.Warn().Err(data.Err)
	} else {
		ev = l.log.Debug()
	}
	ev.Str("sql", start.sql).
		Int64("rows", data.CommandTag.RowsAffected()).
		Dur("elapsed", time.Since(start.at)).
		Msg("query")
}

// DSN builds the connection string for conf.
func DSN(conf config.DbConfig) string {
	host := net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	encodedPassword := url.QueryEscape(conf.Password)

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		conf.User,
		encodedPassword,
		host,
		conf.Name,
		conf.SSLMode,
	)
}

func New(conf config.DbConfig, log *zerolog.Logger) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(DSN(conf))

	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pgxPoolConfig.ConnConfig.RuntimeParams["application_name"] = "codejudge"
	pgxPoolConfig.ConnConfig.Tracer = &multiTracer{tracers: []any{&queryLogger{log: log}}}
	if conf.MaxConns > 0 {
		pgxPoolConfig.MaxConns = int32(conf.MaxConns)
	}

	pgxPoolConfig.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		return dialer.DialContext(ctx, network, addr)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)

	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connection established")

	return &Database{Pool: pool, log: log}, nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *Database) Close() error {
	db.log.Info().Msg("Closing database connection pool")
	db.Pool.Close()
	return nil
}
