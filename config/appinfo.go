package config

const (
	APP_NAME = "APP_NAME" //nolint:staticcheck
	APP_MODE = "APP_MODE" //nolint:staticcheck
	APP_DIR  = "APP_DIR"  //nolint:staticcheck
)

// Mode names the deployment profile. The version command prints it; no
// other code branches on it.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeTest Mode = "test"
	ModeProd Mode = "prod"
)

// AppInfo carries process-wide identity: the name the serve command uses
// for the health route and the version command prints, the working
// directory every relative path (logger file, temp config) resolves
// against, and the deployment mode.
type AppInfo struct {
	Name string `json:"name" mapstructure:"name" ini:"name" yaml:"name" default:"tierserve"`
	Mode Mode   `json:"mode" mapstructure:"mode" ini:"mode" yaml:"mode" default:"dev"`
	Dir  string `json:"dir" mapstructure:"dir" ini:"dir" yaml:"dir"`
}

func (a *AppInfo) setDefault() {
	cv.SetDefault("app.name", "tierserve")
	cv.SetDefault("app.mode", string(ModeDev))
	cv.SetDefault("app.dir", ".")
}
