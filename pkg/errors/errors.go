// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1002"
	CodeConflict           ErrorCode = "1003"
	CodeInternalError      ErrorCode = "1004"
	CodeServiceUnavailable ErrorCode = "1005"

	// 会话错误 (2xxx)
	CodeSessionNotFound     ErrorCode = "2001"
	CodeSessionExpired      ErrorCode = "2002"
	CodeSessionVideoLimit   ErrorCode = "2003"
	CodeDuplicateInProgress ErrorCode = "2004"

	// 视频处理错误 (3xxx)
	CodeInvalidVideoURL ErrorCode = "3001"
	CodeNoTranscript    ErrorCode = "3002"
	CodeVideoNotReady   ErrorCode = "3003"
	CodeIngestFailed    ErrorCode = "3004"

	// 检索与生成错误 (4xxx)
	CodeRetrievalFailed   ErrorCode = "4001"
	CodeEmbeddingDegraded ErrorCode = "4002"
	CodeEmbeddingFailed   ErrorCode = "4003"
	CodeLLMCallFailed     ErrorCode = "4004"
	CodeGenerationTimeout ErrorCode = "4005"
	CodeQuotaExceeded     ErrorCode = "4006"

	// 外部服务错误 (5xxx)
	CodeVectorDBError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeUpstreamError ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidVideoURL:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound, CodeSessionExpired:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateInProgress, CodeVideoNotReady, CodeSessionVideoLimit:
		return http.StatusConflict
	case CodeNoTranscript:
		return http.StatusUnprocessableEntity
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeGenerationTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrSessionNotFound     = New(CodeSessionNotFound, "session not found")
	ErrSessionVideoLimit   = New(CodeSessionVideoLimit, "session already holds the maximum number of videos")
	ErrDuplicateInProgress = New(CodeDuplicateInProgress, "video ingestion already in progress")

	ErrInvalidVideoURL = New(CodeInvalidVideoURL, "invalid video url")
	ErrNoTranscript    = New(CodeNoTranscript, "video has no transcript")
	ErrVideoNotReady   = New(CodeVideoNotReady, "video is not ready for queries")

	ErrRetrievalFailed   = New(CodeRetrievalFailed, "retrieval failed")
	ErrEmbeddingFailed   = New(CodeEmbeddingFailed, "embedding failed")
	ErrLLMCallFailed     = New(CodeLLMCallFailed, "LLM call failed")
	ErrGenerationTimeout = New(CodeGenerationTimeout, "generation timed out")
	ErrQuotaExceeded     = New(CodeQuotaExceeded, "LLM quota exceeded")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
