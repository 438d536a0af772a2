package config

import "time"

// Ldap configures the external identity provider the auth gate's third
// resolution step enriches a bare token against when no cached AuthInfo
// is found in-process or in the shared tier.
type Ldap struct {
	Enable       bool          `json:"enable" mapstructure:"enable" ini:"enable" yaml:"enable"`
	Host         string        `json:"host" mapstructure:"host" ini:"host" yaml:"host" default:"127.0.0.1"`
	Port         int           `json:"port" mapstructure:"port" ini:"port" yaml:"port" default:"389"`
	BindDN       string        `json:"bind_dn" mapstructure:"bind_dn" ini:"bind_dn" yaml:"bind_dn"`
	BindPassword string        `json:"bind_password" mapstructure:"bind_password" ini:"bind_password" yaml:"bind_password"`
	BaseDN       string        `json:"base_dn" mapstructure:"base_dn" ini:"base_dn" yaml:"base_dn"`
	UserFilter   string        `json:"user_filter" mapstructure:"user_filter" ini:"user_filter" yaml:"user_filter" default:"(uid=%s)"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" ini:"dial_timeout" yaml:"dial_timeout" default:"5s"`
}

func (l *Ldap) setDefault() {
	cv.SetDefault("ldap.enable", false)
	cv.SetDefault("ldap.host", "127.0.0.1")
	cv.SetDefault("ldap.port", 389)
	cv.SetDefault("ldap.bind_dn", "")
	cv.SetDefault("ldap.bind_password", "")
	cv.SetDefault("ldap.base_dn", "")
	cv.SetDefault("ldap.user_filter", "(uid=%s)")
	cv.SetDefault("ldap.dial_timeout", "5s")
}
