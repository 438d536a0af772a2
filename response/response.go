// Package response renders the JSON envelope every materialized route
// returns: a numeric code, a human message, a data payload and the
// request's trace id.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tierforge/tierserve/types/consts"
	"github.com/tierforge/tierserve/util"
)

// Success/failure sentinels.
const (
	CodeSuccess Code = 0
	CodeFailure Code = -1
)

// Codes mirroring the eight HTTP statuses a tier.Error can carry, plus
// the validation/rate-limit codes the controller and middleware raise
// before a request ever reaches the coordinator.
const (
	CodeInvalidParam Code = 1000 + iota
	CodeBadRequest
	CodeUnauthorized
	CodeForbidden
	CodeNotFound
	CodeMethodNotAllowed
	CodeConflict
	CodeNotImplemented
	CodeServiceUnavailable
	CodeTooManyRequests
	CodeContextTimeout
)

type codeValue struct {
	Status int
	Msg    string
}

var defaultCodeValueMap = map[Code]codeValue{
	CodeSuccess: {http.StatusOK, "success"},
	CodeFailure: {http.StatusBadRequest, "failure"},

	CodeInvalidParam:       {http.StatusBadRequest, "invalid parameters in the request"},
	CodeBadRequest:         {http.StatusBadRequest, "malformed or illegal request"},
	CodeUnauthorized:       {http.StatusUnauthorized, "authentication required"},
	CodeForbidden:          {http.StatusForbidden, "insufficient privileges for the requested operation"},
	CodeNotFound:           {http.StatusNotFound, "requested resource not found"},
	CodeMethodNotAllowed:   {http.StatusMethodNotAllowed, "method not allowed for this resource"},
	CodeConflict:           {http.StatusConflict, "resource already exists or was modified concurrently"},
	CodeNotImplemented:     {http.StatusNotImplemented, "operation not implemented for this resource"},
	CodeServiceUnavailable: {http.StatusServiceUnavailable, "dependent service unavailable"},
	CodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests, please try again later"},
	CodeContextTimeout:     {http.StatusGatewayTimeout, "request exceeded its processing deadline"},
}

var customCodeValueMap = make(map[Code]codeValue)

type Code int32

// CodeInstance carries an optional status/message override on top of a
// base Code, produced by Code.WithStatus/WithErr/WithMsg.
type CodeInstance struct {
	code   Code
	status *int
	msg    *string
}

func (r Code) Msg() string {
	if val, ok := customCodeValueMap[r]; ok {
		return val.Msg
	}
	if val, ok := defaultCodeValueMap[r]; ok {
		return val.Msg
	}
	return defaultCodeValueMap[CodeFailure].Msg
}

func (r Code) WithStatus(status int) CodeInstance {
	return CodeInstance{code: r, status: &status}
}

func (r Code) WithErr(err error) CodeInstance {
	msg := err.Error()
	return CodeInstance{code: r, msg: &msg}
}

func (r Code) WithMsg(msg string) CodeInstance {
	return CodeInstance{code: r, msg: &msg}
}

func (r Code) Status() int {
	if val, ok := customCodeValueMap[r]; ok {
		return val.Status
	}
	if val, ok := defaultCodeValueMap[r]; ok {
		return val.Status
	}
	return http.StatusBadRequest
}

func (r Code) Code() int { return int(r) }

func (ci CodeInstance) Msg() string {
	if ci.msg != nil {
		return *ci.msg
	}
	return ci.code.Msg()
}

func (ci CodeInstance) Status() int {
	if ci.status != nil {
		return *ci.status
	}
	return ci.code.Status()
}

func (ci CodeInstance) Code() int { return ci.code.Code() }

// Responder unifies Code and CodeInstance so every Response* function
// accepts either.
type Responder interface {
	Msg() string
	Status() int
	Code() int
}

var (
	_ Responder = Code(0)
	_ Responder = CodeInstance{}
)

// NewCode registers a status/message pair for a caller-defined code value,
// for components outside this package that need their own code space.
func NewCode(code Code, status int, msg string) Code {
	customCodeValueMap[code] = codeValue{Status: status, Msg: msg}
	return code
}

func ResponseJSON(c *gin.Context, responder Responder, data ...any) {
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	c.JSON(responder.Status(), gin.H{
		"code":            responder.Code(),
		"msg":             responder.Msg(),
		"data":            payload,
		consts.REQUEST_ID: c.GetString(consts.REQUEST_ID),
	})
}

func ResponseBytes(c *gin.Context, responder Responder, data ...[]byte) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	var dataStr string
	if len(data) > 0 {
		dataStr = fmt.Sprintf(`{"code":%d,"msg":"%s","data":%s,"request_id":"%s"}`, responder.Code(), responder.Msg(), util.BytesToString(data[0]), c.GetString(consts.REQUEST_ID))
	} else {
		dataStr = fmt.Sprintf(`{"code":%d,"msg":"%s","data":null,"request_id":"%s"}`, responder.Code(), responder.Msg(), c.GetString(consts.REQUEST_ID))
	}
	c.Writer.WriteHeader(responder.Status())
	_, _ = c.Writer.Write(util.StringToBytes(dataStr))
}

// ResponseList renders a paginated search/count result: total plus items.
func ResponseList(c *gin.Context, responder Responder, total int64, items []byte) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	if items == nil {
		items = []byte("[]")
	}
	dataStr := fmt.Sprintf(`{"code":%d,"msg":"%s","data":{"total":%d,"items":%s},"request_id":"%s"}`,
		responder.Code(), responder.Msg(), total, util.BytesToString(items), c.GetString(consts.REQUEST_ID))
	c.Writer.WriteHeader(responder.Status())
	_, _ = c.Writer.Write(util.StringToBytes(dataStr))
}

func ResponseText(c *gin.Context, responder Responder, data ...any) {
	if len(data) > 0 {
		c.String(responder.Status(), stringAny(data[0]))
	} else {
		c.String(responder.Status(), "")
	}
}

func stringAny(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case []string:
		return strings.Join(val, ",")
	case [][]byte:
		return string(bytes.Join(val, []byte(",")))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
