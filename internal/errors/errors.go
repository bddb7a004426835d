package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按类别分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005
	ErrCanceled         ErrorCode = 1006
	ErrNotImplemented   ErrorCode = 1007

	// 校验错误 (2000-2999)
	ErrInvalidAnswer      ErrorCode = 2000
	ErrInvalidGuessWord   ErrorCode = 2001
	ErrInvalidPermutation ErrorCode = 2002
	ErrInvalidBox         ErrorCode = 2003
	ErrInvalidCardIndex   ErrorCode = 2004
	ErrInvalidTarget      ErrorCode = 2005
	ErrInvalidDisplayName ErrorCode = 2006

	// 状态错误 (3000-3999)
	ErrSessionNotFound  ErrorCode = 3000
	ErrSessionLocked    ErrorCode = 3001
	ErrSessionNotLocked ErrorCode = 3002
	ErrSessionComplete  ErrorCode = 3003
	ErrNoActiveRound    ErrorCode = 3004
	ErrRoundNotFound    ErrorCode = 3005
	ErrWrongBox         ErrorCode = 3006
	ErrBoxNotReady      ErrorCode = 3007
	ErrPrizeMissing     ErrorCode = 3008
	ErrNoPendingAction  ErrorCode = 3009
	ErrNoAttemptPending ErrorCode = 3010
	ErrEliminationsLock ErrorCode = 3011
	ErrNoSlotHolder     ErrorCode = 3012

	// 授权错误 (4000-4999)
	ErrNotParticipant ErrorCode = 4000
	ErrEliminated     ErrorCode = 4001
	ErrNotSlotHolder  ErrorCode = 4002
	ErrNotPreviewHost ErrorCode = 4003
	ErrNotBoxOwner    ErrorCode = 4004

	// 冲突错误 (5000-5999)
	ErrDuplicateSubmission ErrorCode = 5000
	ErrIndexRevealed       ErrorCode = 5001
	ErrNoTurnsLeft         ErrorCode = 5002
	ErrPendingBlocked      ErrorCode = 5003
	ErrSelfTarget          ErrorCode = 5004
	ErrAlreadyOwned        ErrorCode = 5005

	// 数据库错误 (6000-6999)
	ErrDatabaseConnect ErrorCode = 6000
	ErrDatabaseQuery   ErrorCode = 6001
	ErrDatabaseInsert  ErrorCode = 6002
	ErrDatabaseUpdate  ErrorCode = 6003
	ErrDatabaseDelete  ErrorCode = 6004
	ErrTransaction     ErrorCode = 6005
	ErrDataIntegrity   ErrorCode = 6006

	// 配置错误 (7000-7999)
	ErrConfigLoad     ErrorCode = 7000
	ErrConfigParse    ErrorCode = 7001
	ErrConfigValidate ErrorCode = 7002
	ErrConfigMissing  ErrorCode = 7003

	// 安全错误 (8000-8999)
	ErrAuthentication    ErrorCode = 8000
	ErrAuthorization     ErrorCode = 8001
	ErrTokenExpired      ErrorCode = 8002
	ErrTokenInvalid      ErrorCode = 8003
	ErrRateLimitExceeded ErrorCode = 8004
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",
	ErrCanceled:         "操作已取消",
	ErrNotImplemented:   "功能未实现",

	// 校验错误
	ErrInvalidAnswer:      "答案不是有效的整数",
	ErrInvalidGuessWord:   "猜测词不合法",
	ErrInvalidPermutation: "排序提交不是有效的排列",
	ErrInvalidBox:         "无效的盒子编号",
	ErrInvalidCardIndex:   "无效的卡片序号",
	ErrInvalidTarget:      "无效的目标玩家",
	ErrInvalidDisplayName: "无效的显示名称",

	// 状态错误
	ErrSessionNotFound:  "会话不存在",
	ErrSessionLocked:    "报名已锁定",
	ErrSessionNotLocked: "报名尚未锁定",
	ErrSessionComplete:  "会话已结束",
	ErrNoActiveRound:    "当前盒子没有进行中的回合",
	ErrRoundNotFound:    "回合不存在",
	ErrWrongBox:         "不是当前盒子",
	ErrBoxNotReady:      "盒子尚未确认解谜",
	ErrPrizeMissing:     "奖品尚未填写",
	ErrNoPendingAction:  "没有待处理的特殊卡",
	ErrNoAttemptPending: "没有待核对的猜测",
	ErrEliminationsLock: "淘汰尚未解锁",
	ErrNoSlotHolder:     "当前没有操作位持有人",

	// 授权错误
	ErrNotParticipant: "不是已登记的参与者",
	ErrEliminated:     "参与者已被淘汰",
	ErrNotSlotHolder:  "不是当前操作位持有人",
	ErrNotPreviewHost: "不是该预览的发起主持人",
	ErrNotBoxOwner:    "不是该盒子的所有者",

	// 冲突错误
	ErrDuplicateSubmission: "已提交过答案",
	ErrIndexRevealed:       "该卡片已被翻开",
	ErrNoTurnsLeft:         "没有剩余回合数",
	ErrPendingBlocked:      "特殊卡待处理中，无法翻卡",
	ErrSelfTarget:          "不能选择自己",
	ErrAlreadyOwned:        "已拥有该盒子",

	// 数据库错误
	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrDatabaseDelete:  "数据库删除失败",
	ErrTransaction:     "事务处理失败",
	ErrDataIntegrity:   "数据完整性错误",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",
	ErrConfigMissing:  "配置项缺失",

	// 安全错误
	ErrAuthentication:    "认证失败",
	ErrAuthorization:     "授权失败",
	ErrTokenExpired:      "令牌已过期",
	ErrTokenInvalid:      "无效的令牌",
	ErrRateLimitExceeded: "请求频率超限",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/MugzLord/WIB/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrNotFound || e.Code == ErrSessionNotFound || e.Code == ErrRoundNotFound:
		return 404 // Not Found
	case e.Code == ErrInvalidParam || e.Code == ErrAlreadyExists:
		return 400 // Bad Request
	case e.Code == ErrPermissionDenied:
		return 403 // Forbidden
	case e.Code == ErrTimeout:
		return 408 // Request Timeout
	case e.Code >= 2000 && e.Code <= 2999:
		return 400 // 校验错误
	case e.Code >= 3000 && e.Code <= 3999:
		return 409 // 状态错误
	case e.Code >= 4000 && e.Code <= 4999:
		return 403 // 授权错误
	case e.Code >= 5000 && e.Code <= 5999:
		return 409 // 冲突错误
	case e.Code >= 6000 && e.Code <= 6999:
		return 503 // Service Unavailable
	case e.Code >= 8000 && e.Code <= 8003:
		return 401 // Unauthorized
	case e.Code == ErrRateLimitExceeded:
		return 429 // Too Many Requests
	default:
		return 500 // Internal Server Error
	}
}

// IsValidation 判断是否为校验类错误
func IsValidation(err error) bool {
	code := GetCode(err)
	return code >= 2000 && code <= 2999
}

// IsState 判断是否为状态类错误
func IsState(err error) bool {
	code := GetCode(err)
	return code >= 3000 && code <= 3999
}

// IsAuthorization 判断是否为授权类错误
func IsAuthorization(err error) bool {
	code := GetCode(err)
	return code >= 4000 && code <= 4999
}

// IsConflict 判断是否为冲突类错误
func IsConflict(err error) bool {
	code := GetCode(err)
	return code >= 5000 && code <= 5999
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrTimeout,
		ErrDatabaseConnect,
		ErrTransaction:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrDatabaseConnect,
		ErrConfigLoad,
		ErrConfigMissing,
		ErrDataIntegrity:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
