package config

import "time"

const (
	AUTH_JWT_SECRET       = "AUTH_JWT_SECRET"       //nolint:staticcheck
	AUTH_ACCESS_TOKEN_TTL = "AUTH_ACCESS_TOKEN_TTL"  //nolint:staticcheck
)

// Auth configures the bearer-token codec the auth gate uses to mint and
// verify tokens (identity/jwt), independent of the per-schema AAA level
// each registered model declares.
type Auth struct {
	JwtSecret       string        `json:"jwt_secret" mapstructure:"jwt_secret" ini:"jwt_secret" yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl" mapstructure:"access_token_ttl" ini:"access_token_ttl" yaml:"access_token_ttl" default:"15m"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl" mapstructure:"refresh_token_ttl" ini:"refresh_token_ttl" yaml:"refresh_token_ttl" default:"168h"`
	RequireTenant   bool          `json:"require_tenant" mapstructure:"require_tenant" ini:"require_tenant" yaml:"require_tenant" default:"true"`
	DefaultRealm    string        `json:"default_realm" mapstructure:"default_realm" ini:"default_realm" yaml:"default_realm" default:"default"`
}

func (a *Auth) setDefault() {
	cv.SetDefault("auth.jwt_secret", "")
	cv.SetDefault("auth.access_token_ttl", "15m")
	cv.SetDefault("auth.refresh_token_ttl", "168h")
	cv.SetDefault("auth.require_tenant", true)
	cv.SetDefault("auth.default_realm", "default")
}
