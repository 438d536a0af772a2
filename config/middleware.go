package config

const (
	MIDDLEWARE_ENABLE_AUTH = "MIDDLEWARE_ENABLE_AUTH" //nolint:staticcheck
)

// Middleware toggles the cross-cutting gin middleware registered ahead of
// every materialized route.
type Middleware struct {
	EnableAuth             bool     `json:"enable_auth" mapstructure:"enable_auth" ini:"enable_auth" yaml:"enable_auth" default:"true"`
	MaxRequestBodyBytes    int64    `json:"max_request_body_bytes" mapstructure:"max_request_body_bytes" ini:"max_request_body_bytes" yaml:"max_request_body_bytes" default:"10485760"`
	IPAllowlist            []string `json:"ip_allowlist" mapstructure:"ip_allowlist" ini:"ip_allowlist" yaml:"ip_allowlist"`
	IPDenylist             []string `json:"ip_denylist" mapstructure:"ip_denylist" ini:"ip_denylist" yaml:"ip_denylist"`
}

func (m *Middleware) setDefault() {
	cv.SetDefault("middleware.enable_auth", true)
	cv.SetDefault("middleware.max_request_body_bytes", 10<<20)
	cv.SetDefault("middleware.ip_allowlist", []string{})
	cv.SetDefault("middleware.ip_denylist", []string{})
}
