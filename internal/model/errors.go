package model

import (
	"errors"
	"fmt"
)

// ErrCancelled 生成链被调用方主动取消，区别于失败
var ErrCancelled = errors.New("generation cancelled")

// InvalidInputError 调用方输入不合法，不重试
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NetworkError 传输层失败（DNS、TLS、连接被重置等），携带底层原因
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// TimeoutError 超出硬性墙钟超时，连接已被拆除
type TimeoutError struct {
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out after %s", e.Timeout)
}

// NoJsonFoundError 响应文本里找不到任何配平的 JSON 对象
type NoJsonFoundError struct {
	ResponseText string
}

func (e *NoJsonFoundError) Error() string {
	return "no balanced JSON object found in model response"
}

// MalformedJsonError 找到了配平片段但不是合法 JSON，区别于"没找到"
type MalformedJsonError struct {
	RawText string
	Cause   error
}

func (e *MalformedJsonError) Error() string {
	return fmt.Sprintf("model response contains malformed JSON: %v", e.Cause)
}

func (e *MalformedJsonError) Unwrap() error { return e.Cause }

// SchemaError 载荷不符合表结构约定。Row 为 -1 表示表级错误而非某一行。
type SchemaError struct {
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("table schema error: %s", e.Reason)
	}
	return fmt.Sprintf("table schema error at row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// UnsupportedSchemaError 表结构里没有可识别的考勤信号，统计不可用。
// 这是软失败：生成本身成功，只是对用户展示"无统计数据"。
type UnsupportedSchemaError struct {
	Reason string
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("statistics unavailable: %s", e.Reason)
}

// IsRetryableTransport 传输类错误由调用方按固定次数退避重试
func IsRetryableTransport(err error) bool {
	var ne *NetworkError
	var te *TimeoutError
	return errors.As(err, &ne) || errors.As(err, &te)
}

// IsResponseQuality 响应质量类错误，调用方至多用更严格的追加提示整链重试一次
func IsResponseQuality(err error) bool {
	var nj *NoJsonFoundError
	var mj *MalformedJsonError
	var se *SchemaError
	return errors.As(err, &nj) || errors.As(err, &mj) || errors.As(err, &se)
}
