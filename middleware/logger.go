package middleware

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/metrics"
	"github.com/tierforge/tierserve/types/consts"
	"github.com/tierforge/tierserve/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func Logger(filename ...string) gin.HandlerFunc {
	// return ginzap.Ginzap(pkgzap.NewGinLogger(filename...), time.RFC3339, true)
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		labelPath := sanitizeLabelValue(path)
		query := c.Request.URL.RawQuery
		c.Set(consts.CTX_ROUTE, path)
		c.Next()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, labelPath, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, labelPath, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())

		//nolint:prealloc
		fields := []zapcore.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String(consts.CTX_USERNAME, c.GetString(consts.CTX_USERNAME)),
			zap.String(consts.CTX_USER_ID, c.GetString(consts.CTX_USER_ID)),
			zap.String(consts.REQUEST_ID, c.GetString(consts.REQUEST_ID)),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("latency", util.FormatDurationSmart(time.Since(start))),
		}

		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logger.Protocol.Errorz(e, fields...)
			}
		} else {
			logger.Protocol.Infoz(path, fields...)
		}
	}
}

// sanitizeLabelValue ensures we never export non UTF-8 label values to Prometheus.
func sanitizeLabelValue(value string) string {
	if value == "" {
		return "<empty>"
	}

	if utf8.ValidString(value) {
		return value
	}

	return "<invalid>"
}
