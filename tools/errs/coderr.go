package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// 错误码
const (
	CodeOK              = 0
	ServerInternalError = 500
	ArgsError           = 1001
	TokenInvalidError   = 1501
	TokenMissingError   = 1502
)

var (
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrTokenInvalid   = NewCodeError(TokenInvalidError, "TokenInvalid")
	ErrTokenMissing   = NewCodeError(TokenMissingError, "TokenMissing")
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
)

type CodeErrorI interface {
	ECode() int
	EMsg() string
	DDetail() string
	error
}

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) ECode() int      { return e.Code }
func (e CodeError) EMsg() string    { return e.Msg }
func (e CodeError) DDetail() string { return e.Detail }

func (e CodeError) WithDetail(detail string) CodeError {
	var d string
	if e.Detail == "" {
		d = detail
	} else {
		d = e.Detail + ", " + detail
	}
	return CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

// Wrap attaches a stack trace.
func (e CodeError) Wrap() error {
	return errors.WithStack(e)
}

func (e CodeError) WrapMsg(msg string, kv ...any) error {
	ret := e
	if msg != "" || len(kv) > 0 {
		ret = e.WithDetail(toString(msg, kv))
	}
	return errors.WithStack(ret)
}

// Is matches any error in the chain carrying the same code.
func (e CodeError) Is(err error) bool {
	var codeErr CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return codeErr.Code == e.Code
}

const initialCapacity = 3

func (e CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// As extracts the CodeError from err, falling back to ErrInternalServer.
func As(err error) CodeError {
	var codeErr CodeError
	if errors.As(err, &codeErr) {
		return codeErr
	}
	return ErrInternalServer.WithDetail(err.Error())
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(anyString(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(anyString(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
