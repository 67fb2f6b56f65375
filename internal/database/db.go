// Package database opens the shared MySQL handle every repository works
// through.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool bounds the shared connection pool. Zero values fall back to defaults
// sized for a single API instance.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

const (
	defaultMaxOpen     = 25
	defaultMaxIdle     = 25
	defaultMaxLifetime = 30 * time.Minute
)

func (p Pool) withDefaults() Pool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = defaultMaxOpen
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = defaultMaxIdle
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = defaultMaxLifetime
	}
	return p
}

// dsn renders the driver connection string. parseTime maps DATETIME columns
// onto time.Time and loc=UTC keeps fecha_creacion/fecha_actualizacion stable
// across server timezones.
func dsn(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = user + ":" + pass
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)
}

// Open connects to MySQL, applies the pool bounds and verifies connectivity
// with a bounded ping before handing the handle out.
func Open(user, pass, host, port, name string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	pool = pool.withDefaults()
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
