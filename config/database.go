package config

import "time"

const (
	DATABASE_SLOW_QUERY_THRESHOLD = "DATABASE_SLOW_QUERY_THRESHOLD" //nolint:staticcheck
)

// Database holds settings shared by every database-tier driver, plus the
// postgres connection itself (the only database backend wired: see
// DESIGN.md for why mysql/sqlite/sqlserver/clickhouse were dropped).
type Database struct {
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" mapstructure:"slow_query_threshold" ini:"slow_query_threshold" yaml:"slow_query_threshold" default:"200ms"`
	MaxOpenConns       int           `json:"max_open_conns" mapstructure:"max_open_conns" ini:"max_open_conns" yaml:"max_open_conns" default:"50"`
	MaxIdleConns       int           `json:"max_idle_conns" mapstructure:"max_idle_conns" ini:"max_idle_conns" yaml:"max_idle_conns" default:"10"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime" ini:"conn_max_lifetime" yaml:"conn_max_lifetime" default:"1h"`
}

func (d *Database) setDefault() {
	cv.SetDefault("database.slow_query_threshold", "200ms")
	cv.SetDefault("database.max_open_conns", 50)
	cv.SetDefault("database.max_idle_conns", 10)
	cv.SetDefault("database.conn_max_lifetime", "1h")
}

// Postgres is the authoritative tier's connection settings, consumed by
// tierdrivers/database/postgres.
type Postgres struct {
	Host     string `json:"host" mapstructure:"host" ini:"host" yaml:"host" default:"127.0.0.1"`
	Port     int    `json:"port" mapstructure:"port" ini:"port" yaml:"port" default:"5432"`
	Database string `json:"database" mapstructure:"database" ini:"database" yaml:"database" default:"tierserve"`
	Username string `json:"username" mapstructure:"username" ini:"username" yaml:"username" default:"tierserve"`
	Password string `json:"password" mapstructure:"password" ini:"password" yaml:"password"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode" ini:"sslmode" yaml:"sslmode" default:"disable"`
}

func (p *Postgres) setDefault() {
	cv.SetDefault("postgres.host", "127.0.0.1")
	cv.SetDefault("postgres.port", 5432)
	cv.SetDefault("postgres.database", "tierserve")
	cv.SetDefault("postgres.username", "tierserve")
	cv.SetDefault("postgres.password", "")
	cv.SetDefault("postgres.sslmode", "disable")
}
