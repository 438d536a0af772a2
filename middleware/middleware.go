package middleware

import (
	"fmt"
	"net/http"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/tierforge/tierserve/response"
	"github.com/tierforge/tierserve/config"
	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	cb                *gobreaker.CircuitBreaker
	RouteManager      *routeParamsManager
	CommonMiddlewares = []gin.HandlerFunc{}
	AuthMiddlewares   = []gin.HandlerFunc{}
)

// Register adds global middlewares that apply to all routes.
// Must be called before router.Init.
// Middlewares are auto-wrapped for slow-middleware logging; name is inferred via reflection.
func Register(middlewares ...gin.HandlerFunc) {
	for _, middleware := range middlewares {
		if middleware == nil {
			continue
		}
		// Extract function name for logging
		name := getFunctionName(middleware)
		// Wrap middleware with slow-call logging
		wrapped := middlewareWrapper(name, middleware)
		CommonMiddlewares = append(CommonMiddlewares, wrapped)
	}
}

// RegisterAuth adds authentication/authorization middlewares.
// Must be called before router.Init.
// Middlewares are auto-wrapped for slow-middleware logging; name is inferred via reflection.
func RegisterAuth(middlewares ...gin.HandlerFunc) {
	for _, middleware := range middlewares {
		if middleware == nil {
			continue
		}
		// Extract function name for logging
		name := getFunctionName(middleware)
		// Wrap middleware with slow-call logging
		wrapped := middlewareWrapper(name, middleware)
		AuthMiddlewares = append(AuthMiddlewares, wrapped)
	}
}

func Init() (err error) {
	cbCfg := config.App.Server.CircuitBreaker
	if cbCfg.Enable {
		if cbCfg.MaxRequests == 0 {
			return errors.New("circuit breaker max_requests cannot be 0")
		}
		if cbCfg.ConsecutiveFailures == 0 {
			return errors.New("circuit breaker consecutive_failures cannot be 0")
		}

		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "tierserve",
			MaxRequests: cbCfg.MaxRequests,
			Interval:    cbCfg.Interval,
			Timeout:     cbCfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cbCfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				zap.S().Infow("circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		})
		zap.S().Infow("circuit breaker initialized",
			"max_requests", cbCfg.MaxRequests,
			"consecutive_failures", cbCfg.ConsecutiveFailures,
			"interval", cbCfg.Interval,
			"timeout", cbCfg.Timeout,
		)
	}

	// Init route params manager
	RouteManager = NewRouteParamsManager()

	return nil
}

// CircuitBreaker returns a middleware that routes every request through
// the shared sony/gobreaker instance built by Init. When the breaker is
// open it short-circuits with ServiceUnavailable instead of invoking the
// handler chain. A no-op if the breaker was never enabled.
func CircuitBreaker() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cb == nil {
			c.Next()
			return
		}
		_, err := cb.Execute(func() (any, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errors.Newf("handler returned status %d", c.Writer.Status())
			}
			return nil, nil
		})
		if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
			if !c.Writer.Written() {
				ResponseJSON(c, CodeServiceUnavailable.WithMsg("circuit breaker open"))
				c.Abort()
			}
		}
	}
}

// middlewareWrapper wraps a middleware so a slow run logs its own name and
// latency, making a hang inside Register/RegisterAuth's chain attributable
// without per-middleware instrumentation.
func middlewareWrapper(name string, middleware gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		middleware(c)
		if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
			zap.S().Warnw("slow middleware", "name", name, "elapsed", elapsed.String())
		}
	}
}

// getFunctionName extracts the function name from a gin.HandlerFunc using reflection
func getFunctionName(fn gin.HandlerFunc) string {
	if fn == nil {
		return "unknown"
	}

	// Get the function pointer
	fnPtr := reflect.ValueOf(fn).Pointer()

	// Get function information from runtime
	fnInfo := runtime.FuncForPC(fnPtr)
	if fnInfo == nil {
		return "unknown"
	}

	// Get the full function name and location
	fullName := fnInfo.Name()
	file, line := fnInfo.FileLine(fnPtr)

	// Parse the function name
	// Example formats:
	// - package.FunctionName (regular function)
	// - package.Type.Method (method)
	// - package.FunctionName.func1 (closure inside FunctionName)
	// - package.glob..func1 (anonymous function at package level)

	// Remove package path, keep only the last part
	lastDot := strings.LastIndex(fullName, "/")
	if lastDot >= 0 {
		fullName = fullName[lastDot+1:]
	}

	// Split by dots to analyze structure
	parts := strings.Split(fullName, ".")
	if len(parts) < 2 {
		return cleanFunctionName(fullName)
	}

	// Get the last part (actual function/method name)
	funcName := parts[len(parts)-1]

	// Handle anonymous functions and closures
	if strings.HasPrefix(funcName, "func") || strings.Contains(funcName, "glob..func") {
		// Check if this is a closure from a named function
		if len(parts) >= 3 {
			// Check the parent context
			parentName := parts[len(parts)-2]

			// If parent is "glob" or starts with number, it's a package-level anonymous
			if parentName == "glob" || (len(parentName) > 0 && isNumeric(parentName[0])) {
				// Use file location for package-level anonymous functions
				if file != "" {
					return fmt.Sprintf("%s_L%d", filepath.Base(strings.TrimSuffix(file, ".go")), line)
				}
				return fmt.Sprintf("anonymous_L%d", line)
			}

			// If parent looks like a function name, use it
			// This handles cases like identifySession() returning a closure
			if parentName != "" && !strings.Contains(parentName, "..") {
				return parentName
			}
		}

		// Fallback to file and line for inline anonymous functions
		if file != "" {
			return fmt.Sprintf("%s_L%d", filepath.Base(strings.TrimSuffix(file, ".go")), line)
		}
		return "anonymous"
	}

	// Handle numbered functions (e.g., "1", "2" from init functions)
	if len(funcName) > 0 && isNumeric(funcName[0]) {
		if file != "" {
			return fmt.Sprintf("%s_L%d", filepath.Base(strings.TrimSuffix(file, ".go")), line)
		}
		return fmt.Sprintf("func%s", funcName)
	}

	return cleanFunctionName(funcName)
}

// cleanFunctionName removes common suffixes and returns a clean function name
func cleanFunctionName(name string) string {
	// Remove method value suffix
	name = strings.TrimSuffix(name, "-fm")
	// Remove other potential suffixes
	name = strings.TrimSuffix(name, ".func1")
	name = strings.TrimSuffix(name, ".func2")
	return name
}

// isNumeric checks if a byte represents a numeric character
func isNumeric(b byte) bool {
	return b >= '0' && b <= '9'
}
