// Package postgres provides a catalog store backed by a pgstac database.
// Reads go to the reader pool and writes to the writer pool.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ConnectionConfig holds database connection configuration.
type ConnectionConfig struct {
	User     string
	Password string
	Database string
	Port     int

	// ReaderHost serves reads. Empty means WriterHost.
	ReaderHost string
	WriterHost string

	// SSLMode is passed to lib/pq. Empty means "disable".
	SSLMode string

	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DSN builds a connection URL for host. The pgstac schema is put first on
// the search path so its functions resolve unqualified.
func (c ConnectionConfig) DSN(host string) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("search_path", "pgstac,public")
	if c.Timeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.Timeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Pools is the reader and writer connection pair.
type Pools struct {
	writer *sql.DB
	reader *sql.DB
}

// Open connects both pools and pings them.
func Open(ctx context.Context, cfg ConnectionConfig) (*Pools, error) {
	if cfg.WriterHost == "" {
		return nil, fmt.Errorf("writer host is required")
	}
	readerHost := cfg.ReaderHost
	if readerHost == "" {
		readerHost = cfg.WriterHost
	}

	writer, err := openPool(ctx, cfg, cfg.DSN(cfg.WriterHost))
	if err != nil {
		return nil, fmt.Errorf("writer: %w", err)
	}
	if readerHost == cfg.WriterHost {
		return &Pools{writer: writer, reader: writer}, nil
	}

	reader, err := openPool(ctx, cfg, cfg.DSN(readerHost))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("reader: %w", err)
	}
	return &Pools{writer: writer, reader: reader}, nil
}

// NewPools wraps existing handles. reader may equal writer.
func NewPools(writer, reader *sql.DB) *Pools {
	if reader == nil {
		reader = writer
	}
	return &Pools{writer: writer, reader: reader}
}

func openPool(ctx context.Context, cfg ConnectionConfig, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// Writer returns the pool for writes.
func (p *Pools) Writer() *sql.DB { return p.writer }

// Reader returns the pool for reads.
func (p *Pools) Reader() *sql.DB { return p.reader }

// HealthCheck pings both pools.
func (p *Pools) HealthCheck(ctx context.Context) error {
	if err := p.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("writer unhealthy: %w", err)
	}
	if p.reader != p.writer {
		if err := p.reader.PingContext(ctx); err != nil {
			return fmt.Errorf("reader unhealthy: %w", err)
		}
	}
	return nil
}

// Close closes both pools.
func (p *Pools) Close() error {
	err := p.writer.Close()
	if p.reader != p.writer {
		if rerr := p.reader.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
