package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindAuthentication ErrorKind = "AuthenticationRequired"
	KindAuthorization  ErrorKind = "AuthorizationDenied"
	KindValidation     ErrorKind = "ValidationFailed"
	KindNotFound       ErrorKind = "NotFound"
	KindConflict       ErrorKind = "Conflict"
	KindUpstream       ErrorKind = "UpstreamFailure"
	KindInternal       ErrorKind = "InternalError"
)

// Status 对应的 HTTP 状态码
func (k ErrorKind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AppError 业务错误
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AsAppError 尝试转换为 *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind 判断错误分类
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindAuthentication, Message: message}
}

func Forbid(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: message}
}

func Invalid(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// InvalidField 单字段校验失败
func InvalidField(field, message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: map[string]string{field: message}}
}

func NotFoundErr(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func Upstream(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}

// ValidationErrors 把 validator 的错误转换为字段级提示
func ValidationErrors(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Invalid("无效的请求数据")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = describe(fe)
	}
	return &AppError{Kind: KindValidation, Message: "请求参数校验失败", Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min":
		return "不能小于 " + fe.Param()
	case "max":
		return "不能大于 " + fe.Param()
	case "oneof":
		return "必须是 " + fe.Param() + " 之一"
	case "email":
		return "邮箱格式不正确"
	case "gte":
		return "必须大于等于 " + fe.Param()
	case "gt":
		return "必须大于 " + fe.Param()
	case "lte":
		return "必须小于等于 " + fe.Param()
	}
	return "格式不正确"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
