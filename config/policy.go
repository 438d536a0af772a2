package config

import "time"

// Policy configures the two refresher loops: the policy snapshot loop
// that pushes registered policy rows into every AuthDriver, and the
// AuthInfo invalidation loop that evicts the process-local memo.
type Policy struct {
	SnapshotInterval   time.Duration `json:"snapshot_interval" mapstructure:"snapshot_interval" ini:"snapshot_interval" yaml:"snapshot_interval" default:"30s"`
	InvalidateInterval time.Duration `json:"invalidate_interval" mapstructure:"invalidate_interval" ini:"invalidate_interval" yaml:"invalidate_interval" default:"10s"`
	AuthInfoTTL        time.Duration `json:"auth_info_ttl" mapstructure:"auth_info_ttl" ini:"auth_info_ttl" yaml:"auth_info_ttl" default:"5m"`
	MemoSize           int           `json:"memo_size" mapstructure:"memo_size" ini:"memo_size" yaml:"memo_size" default:"10000"`
}

func (p *Policy) setDefault() {
	cv.SetDefault("policy.snapshot_interval", "30s")
	cv.SetDefault("policy.invalidate_interval", "10s")
	cv.SetDefault("policy.auth_info_ttl", "5m")
	cv.SetDefault("policy.memo_size", 10000)
}
