package zap

import (
	"strings"

	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger implements types.Logger interface.
type Logger struct {
	zlog *zap.Logger
}

var _ types.Logger = (*Logger)(nil)

func (l *Logger) Debug(args ...any) { l.zlog.Sugar().Debug(args...) }
func (l *Logger) Info(args ...any)  { l.zlog.Sugar().Info(args...) }
func (l *Logger) Warn(args ...any)  { l.zlog.Sugar().Warn(args...) }
func (l *Logger) Error(args ...any) { l.zlog.Sugar().Error(args...) }
func (l *Logger) Fatal(args ...any) { l.zlog.Sugar().Fatal(args...) }

func (l *Logger) Debugf(format string, args ...any) { l.zlog.Sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zlog.Sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zlog.Sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zlog.Sugar().Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.zlog.Sugar().Fatalf(format, args...) }

func (l *Logger) Debugw(msg string, keysValues ...any) { l.zlog.Sugar().Debugw(msg, keysValues...) }
func (l *Logger) Infow(msg string, keysValues ...any)  { l.zlog.Sugar().Infow(msg, keysValues...) }
func (l *Logger) Warnw(msg string, keysValues ...any)  { l.zlog.Sugar().Warnw(msg, keysValues...) }
func (l *Logger) Errorw(msg string, keysValues ...any) { l.zlog.Sugar().Errorw(msg, keysValues...) }
func (l *Logger) Fatalw(msg string, keysValues ...any) { l.zlog.Sugar().Fatalw(msg, keysValues...) }

func (l *Logger) Debugz(msg string, fields ...zap.Field) { l.zlog.Debug(msg, fields...) }
func (l *Logger) Infoz(msg string, fields ...zap.Field)  { l.zlog.Info(msg, fields...) }
func (l *Logger) Warnz(msg string, fields ...zap.Field)  { l.zlog.Warn(msg, fields...) }
func (l *Logger) Errorz(msg string, fields ...zap.Field) { l.zlog.Error(msg, fields...) }
func (l *Logger) Fatalz(msg string, fields ...zap.Field) { l.zlog.Fatal(msg, fields...) }

func (l *Logger) ZapLogger() *zap.Logger { return l.zlog }

func (l *Logger) WithObject(name string, obj zapcore.ObjectMarshaler) types.Logger {
	return &Logger{zlog: l.zlog.With(zap.Object(name, obj))}
}

func (l *Logger) WithArray(name string, arr zapcore.ArrayMarshaler) types.Logger {
	return &Logger{zlog: l.zlog.With(zap.Array(name, arr))}
}

// With creates a new logger with additional string key-value pairs. Each
// pair of arguments must be a key followed by its value; an odd number of
// arguments gets an empty string appended as the last value.
//
//	logger.With("phase", "update").With("user", "admin")
//	logger.With("phase", "update", "user", "admin")
//
// Returns the original logger if no fields are provided.
func (l *Logger) With(fields ...string) types.Logger {
	if len(fields) == 0 {
		return l
	}
	if len(fields) == 1 && len(fields[0]) == 0 {
		return l
	}
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}

	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if len(fields[i]) == 0 {
			continue
		}
		zapFields = append(zapFields, zap.String(fields[i], fields[i+1]))
	}
	return &Logger{zlog: l.zlog.With(zapFields...)}
}

// WithControllerContext extends the base logger with phase, route, user
// and trace fields from *types.ControllerContext.
func (l *Logger) WithControllerContext(ctx *types.ControllerContext, phase consts.Phase) types.Logger {
	return l.With(
		consts.PHASE, string(phase),
		consts.CTX_ROUTE, ctx.Route,
		consts.CTX_USERNAME, ctx.Username,
		consts.CTX_USER_ID, ctx.UserID,
		consts.TRACE_ID, ctx.TraceID).
		WithObject(consts.PARAMS, paramsObject(ctx.Params)).
		WithObject(consts.QUERY, queryObject(ctx.Query))
}

// WithServiceContext extends the base logger with phase, route, user and
// trace fields from *types.ServiceContext.
func (l *Logger) WithServiceContext(ctx *types.ServiceContext, phase consts.Phase) types.Logger {
	return l.With(
		consts.PHASE, string(phase),
		consts.CTX_ROUTE, ctx.Route,
		consts.CTX_USERNAME, ctx.Username,
		consts.CTX_USER_ID, ctx.UserID,
		consts.TRACE_ID, ctx.TraceID).
		WithObject(consts.PARAMS, paramsObject(ctx.Params)).
		WithObject(consts.QUERY, queryObject(ctx.Query))
}

// WithDatabaseContext extends the base logger with phase, route, user and
// trace fields from *types.DatabaseContext.
func (l *Logger) WithDatabaseContext(ctx *types.DatabaseContext, phase consts.Phase) types.Logger {
	return l.With(
		consts.PHASE, string(phase),
		consts.CTX_ROUTE, ctx.Route,
		consts.CTX_USERNAME, ctx.Username,
		consts.CTX_USER_ID, ctx.UserID,
		consts.TRACE_ID, ctx.TraceID).
		WithObject(consts.PARAMS, paramsObject(ctx.Params)).
		WithObject(consts.QUERY, queryObject(ctx.Query))
}

type paramsObject map[string]string

func (o paramsObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if o == nil {
		return nil
	}
	for k, v := range o {
		enc.AddString(k, v)
	}
	return nil
}

type queryObject map[string][]string

func (o queryObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if o == nil {
		return nil
	}
	for k, v := range o {
		enc.AddString(k, strings.Join(v, ","))
	}
	return nil
}
