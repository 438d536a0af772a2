package config

const (
	LOGGER_DIR   = "LOGGER_DIR"   //nolint:staticcheck
	LOGGER_FILE  = "LOGGER_FILE"  //nolint:staticcheck
	LOGGER_LEVEL = "LOGGER_LEVEL" //nolint:staticcheck
)

// Logger configures every package-level logger built by logger/zap.Init:
// where rotated files land, the minimum level, and the wire encoding.
type Logger struct {
	Dir        string `json:"dir" mapstructure:"dir" ini:"dir" yaml:"dir" default:"logs"`
	File       string `json:"file" mapstructure:"file" ini:"file" yaml:"file"`
	Level      string `json:"level" mapstructure:"level" ini:"level" yaml:"level" default:"info"`
	Format     string `json:"format" mapstructure:"format" ini:"format" yaml:"format" default:"json"`
	MaxAge     int    `json:"max_age" mapstructure:"max_age" ini:"max_age" yaml:"max_age" default:"7"`
	MaxSize    int    `json:"max_size" mapstructure:"max_size" ini:"max_size" yaml:"max_size" default:"100"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups" ini:"max_backups" yaml:"max_backups" default:"10"`
}

func (l *Logger) setDefault() {
	cv.SetDefault("logger.dir", "logs")
	cv.SetDefault("logger.file", "")
	cv.SetDefault("logger.level", "info")
	cv.SetDefault("logger.format", "json")
	cv.SetDefault("logger.max_age", 7)
	cv.SetDefault("logger.max_size", 100)
	cv.SetDefault("logger.max_backups", 10)
}
