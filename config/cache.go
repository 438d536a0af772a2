package config

import "time"

// Redis is the fast tier's connection settings, consumed by
// tierdrivers/cache/redis.
type Redis struct {
	Addr     string        `json:"addr" mapstructure:"addr" ini:"addr" yaml:"addr" default:"127.0.0.1:6379"`
	Password string        `json:"password" mapstructure:"password" ini:"password" yaml:"password"`
	DB       int           `json:"db" mapstructure:"db" ini:"db" yaml:"db" default:"0"`
	PoolSize int           `json:"pool_size" mapstructure:"pool_size" ini:"pool_size" yaml:"pool_size" default:"20"`
	DialTimeout time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" ini:"dial_timeout" yaml:"dial_timeout" default:"5s"`
}

func (r *Redis) setDefault() {
	cv.SetDefault("redis.addr", "127.0.0.1:6379")
	cv.SetDefault("redis.password", "")
	cv.SetDefault("redis.db", 0)
	cv.SetDefault("redis.pool_size", 20)
	cv.SetDefault("redis.dial_timeout", "5s")
}
