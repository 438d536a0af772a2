package zap

import (
	"context"
	"time"

	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
	"github.com/tierforge/tierserve/util"
	"go.uber.org/zap"
	gorml "gorm.io/gorm/logger"
)

// GormLogger adapts types.Logger to gorm's logger.Interface, used by the
// postgres database tier driver.
type GormLogger struct{ l types.Logger }

var _ gorml.Interface = (*GormLogger)(nil)

func (g *GormLogger) LogMode(gorml.LogLevel) gorml.Interface           { return g }
func (g *GormLogger) Info(_ context.Context, str string, args ...any)  { g.l.Infow(str, args) }
func (g *GormLogger) Warn(_ context.Context, str string, args ...any)  { g.l.Warnw(str, args) }
func (g *GormLogger) Error(_ context.Context, str string, args ...any) { g.l.Errorw(str, args) }

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	username, _ := ctx.Value(consts.CTX_USERNAME).(string)
	userID, _ := ctx.Value(consts.CTX_USER_ID).(string)
	traceID, _ := ctx.Value(consts.TRACE_ID).(string)
	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil {
		g.l.Errorz("", zap.String("sql", sql), zap.Int64("rows", rows), zap.String("elapsed", util.FormatDurationSmart(elapsed)), zap.Error(err))
		return
	}
	if elapsed > config.App.Database.SlowQueryThreshold {
		g.l.Warnz("slow SQL detected",
			zap.String(consts.CTX_USERNAME, username),
			zap.String(consts.CTX_USER_ID, userID),
			zap.String(consts.TRACE_ID, traceID),
			zap.String("sql", sql),
			zap.String("elapsed", util.FormatDurationSmart(elapsed)),
			zap.String("threshold", config.App.Database.SlowQueryThreshold.String()),
			zap.Int64("rows", rows))
		return
	}
	g.l.Infoz("sql executed",
		zap.String(consts.CTX_USERNAME, username),
		zap.String(consts.CTX_USER_ID, userID),
		zap.String(consts.TRACE_ID, traceID),
		zap.String("sql", sql),
		zap.String("elapsed", util.FormatDurationSmart(elapsed)),
		zap.Int64("rows", rows))
}
