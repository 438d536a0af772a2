package config

import (
	"strconv"
	"time"
)

const (
	SERVER_HOST             = "SERVER_HOST"             //nolint:staticcheck
	SERVER_PORT             = "SERVER_PORT"             //nolint:staticcheck
	SERVER_READ_TIMEOUT     = "SERVER_READ_TIMEOUT"      //nolint:staticcheck
	SERVER_WRITE_TIMEOUT    = "SERVER_WRITE_TIMEOUT"     //nolint:staticcheck
	SERVER_SHUTDOWN_TIMEOUT = "SERVER_SHUTDOWN_TIMEOUT"  //nolint:staticcheck
)

// CircuitBreaker configures the sony/gobreaker instance middleware.Init
// builds when Enable is set. Requests pass through it only on routes that
// install middleware.CircuitBreaker(); router.Init does not install it.
type CircuitBreaker struct {
	Enable               bool          `json:"enable" mapstructure:"enable" ini:"enable" yaml:"enable"`
	MaxRequests          uint32        `json:"max_requests" mapstructure:"max_requests" ini:"max_requests" yaml:"max_requests" default:"5"`
	Interval             time.Duration `json:"interval" mapstructure:"interval" ini:"interval" yaml:"interval" default:"60s"`
	Timeout              time.Duration `json:"timeout" mapstructure:"timeout" ini:"timeout" yaml:"timeout" default:"30s"`
	ConsecutiveFailures  uint32        `json:"consecutive_failures" mapstructure:"consecutive_failures" ini:"consecutive_failures" yaml:"consecutive_failures" default:"5"`
}

// Server holds the gin engine's network and lifecycle settings.
type Server struct {
	Host string `json:"host" mapstructure:"host" ini:"host" yaml:"host" default:"0.0.0.0"`
	Port int    `json:"port" mapstructure:"port" ini:"port" yaml:"port" default:"8080"`

	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout" ini:"read_timeout" yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout" ini:"write_timeout" yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" ini:"shutdown_timeout" yaml:"shutdown_timeout" default:"30s"`

	CircuitBreaker CircuitBreaker `json:"circuit_breaker" mapstructure:"circuit_breaker" ini:"circuit_breaker" yaml:"circuit_breaker"`
}

func (s *Server) setDefault() {
	cv.SetDefault("server.host", "0.0.0.0")
	cv.SetDefault("server.port", 8080)
	cv.SetDefault("server.read_timeout", "15s")
	cv.SetDefault("server.write_timeout", "15s")
	cv.SetDefault("server.shutdown_timeout", "30s")
	cv.SetDefault("server.circuit_breaker.enable", false)
	cv.SetDefault("server.circuit_breaker.max_requests", 5)
	cv.SetDefault("server.circuit_breaker.interval", "60s")
	cv.SetDefault("server.circuit_breaker.timeout", "30s")
	cv.SetDefault("server.circuit_breaker.consecutive_failures", 5)
}

// Addr returns the host:port pair net/http.Server.ListenAndServe expects.
func (s *Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}
