package config

// Debug holds the [debug] config section. Pprof is loaded from config, but
// no code in this module reads it or registers pprof handlers.
type Debug struct {
	Pprof bool `json:"pprof" mapstructure:"pprof" ini:"pprof" yaml:"pprof"`
}

func (d *Debug) setDefault() {
	cv.SetDefault("debug.pprof", false)
}
