package types

import (
	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrEntryNotFound names an absent cache key, distinct from a
// tier.NotFound. No driver in this module returns it: the redis cache
// driver reports a miss as a tier LookupError.
var ErrEntryNotFound = errors.New("cache entry not found")

// Initializer is implemented by every component the lifecycle sequencer
// brings up in order: config, logger, metrics, tier drivers, identity,
// schema registration, policy refresher, router.
type Initializer interface {
	Init() error
}

// StandardLogger provides the traditional log.Print-shaped methods.
type StandardLogger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// StructuredLogger provides key-value structured logging; the 'w' suffix
// stands for "with".
type StructuredLogger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)
}

// ZapLogger provides typed-field logging; the 'z' suffix distinguishes it
// from StructuredLogger's any-typed variant.
type ZapLogger interface {
	Debugz(msg string, fields ...zap.Field)
	Infoz(msg string, fields ...zap.Field)
	Warnz(msg string, fields ...zap.Field)
	Errorz(msg string, fields ...zap.Field)
	Fatalz(msg string, fields ...zap.Field)
}

// Logger is the unified logging contract every package in this module
// depends on instead of *zap.Logger directly, so the concrete backend
// (logger/zap) stays swappable.
type Logger interface {
	With(fields ...string) Logger

	WithObject(name string, obj zapcore.ObjectMarshaler) Logger
	WithArray(name string, arr zapcore.ArrayMarshaler) Logger

	WithControllerContext(*ControllerContext, consts.Phase) Logger
	WithServiceContext(*ServiceContext, consts.Phase) Logger
	WithDatabaseContext(*DatabaseContext, consts.Phase) Logger

	StandardLogger
	StructuredLogger
	ZapLogger
}
