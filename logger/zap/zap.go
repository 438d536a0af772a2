package zap

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gorml "gorm.io/gorm/logger"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	logDir        string
	logFile       string
	logLevel      string
	logFormat     string
	logMaxAge     int
	logMaxSize    int
	logMaxBackups int
)

// Option configures encoder behavior for constructors. DisableMsg and
// DisableLevel hide the "msg"/"level" fields; TSLayout overrides the
// default timestamp layout.
type Option struct {
	DisableMsg   bool
	DisableLevel bool
	TSLayout     string
}

// Init builds every package-level logger.* var from config.App.Logger and
// replaces zap's global logger so third-party libraries that call
// zap.L()/zap.S() land in the same sink.
func Init() error {
	readConf()
	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
	))

	logger.Runtime = New("runtime.log")
	logger.Lifecycle = New("lifecycle.log")

	logger.Coordinator = New("coordinator.log")
	logger.Controller = New("controller.log")
	logger.AuthGate = New("authgate.log")
	logger.Policy = New("policy.log")
	logger.Refresolve = New("refresolve.log")

	logger.Database = New("database.log")
	logger.Search = New("search.log")
	logger.Cache = New("cache.log")

	logger.Identity = New("identity.log")
	logger.Protocol = New("protocol.log")

	return nil
}

// Clean flushes every package-level logger's underlying sink. Call once,
// at the very end of shutdown.
func Clean() {
	_ = zap.L().Sync()
	logs := []types.Logger{
		logger.Runtime, logger.Lifecycle,
		logger.Coordinator, logger.Controller, logger.AuthGate, logger.Policy, logger.Refresolve,
		logger.Database, logger.Search, logger.Cache,
		logger.Identity, logger.Protocol,
	}
	for _, l := range logs {
		if l == nil {
			continue
		}
		if zl, ok := l.(*Logger); ok {
			_ = zl.zlog.Sync()
		}
	}
}

// New builds a types.Logger backed by *zap.Logger. filename is the target
// log file name relative to config.App.Logger.Dir, or "/dev/stdout" /
// "/dev/stderr" for console output.
func New(filename string, opts ...Option) *Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	zl := zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(), newLogLevel(opts...)),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &Logger{zlog: zl}
}

// NewGorm builds a gorm logger.Interface backed by the same rotation and
// level configuration as New, for the postgres tier driver.
func NewGorm(filename string) gorml.Interface {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	zl := zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddCallerSkip(5),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &GormLogger{l: &Logger{zlog: zl}}
}

// NewGin builds a *zap.Logger shaped for gin-contrib/zap's access-log
// middleware: no "msg"/"level" fields, since the middleware supplies its
// own structured fields per request.
func NewGin(filename string) *zap.Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	return zap.New(zapcore.NewCore(newLogEncoder(Option{DisableMsg: true, DisableLevel: true}), newLogWriter(), newLogLevel()))
}

// NewStdLog builds a *log.Logger backed by zap, for third-party code that
// only accepts the standard library's logger type.
func NewStdLog() *log.Logger {
	return zap.NewStdLog(NewZap(""))
}

// NewSugared builds a *zap.SugaredLogger, the type a tier.Coordinator logs
// through.
func NewSugared(filename string, opts ...Option) *zap.SugaredLogger {
	return NewZap(filename, opts...).Sugar()
}

// NewZap builds a bare *zap.Logger with optional filename and options.
func NewZap(filename string, opts ...Option) *zap.Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	return zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(), newLogLevel(opts...)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel))
}

func newLogWriter() zapcore.WriteSyncer {
	switch strings.TrimSpace(logFile) {
	case "/dev/stdout":
		return zapcore.AddSync(os.Stdout)
	case "/dev/stderr":
		return zapcore.AddSync(os.Stderr)
	case "":
		return zapcore.AddSync(os.Stdout)
	default:
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, logFile),
			MaxAge:     logMaxAge,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
			LocalTime:  true,
		})
	}
}

func newLogLevel(_ ...Option) zapcore.Level {
	if len(logLevel) == 0 {
		return zapcore.InfoLevel
	}
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return *level
}

func newLogEncoder(opt ...Option) zapcore.Encoder {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consts.LayoutTimeEncoder)
	encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if len(opt) > 0 {
		o := opt[0]
		if o.DisableMsg {
			encConfig.MessageKey = ""
		}
		if o.DisableLevel {
			encConfig.LevelKey = ""
		}
		if len(o.TSLayout) > 0 {
			encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(o.TSLayout)
		}
	}
	switch strings.ToLower(logFormat) {
	case "console", "text":
		return zapcore.NewConsoleEncoder(encConfig)
	default:
		return zapcore.NewJSONEncoder(encConfig)
	}
}

func readConf() {
	logDir = config.App.Logger.Dir
	logFile = config.App.Logger.File
	logLevel = config.App.Logger.Level
	logFormat = config.App.Logger.Format
	logMaxAge = config.App.Logger.MaxAge
	logMaxSize = config.App.Logger.MaxSize
	logMaxBackups = config.App.Logger.MaxBackups
}
