package model

import "time"

// GenerateResponse 一次生成链的结果。统计不可用时 Statistics 为空，
// 并通过 StatisticsNote 告知原因，不作为生成失败处理。
type GenerateResponse struct {
	SessionID      string                `json:"session_id"`
	Table          *Table                `json:"table"`
	Statistics     *AttendanceStatistics `json:"statistics,omitempty"`
	StatisticsNote string                `json:"statistics_note,omitempty"`
	Model          string                `json:"model"`
	DeliveryMode   DeliveryMode          `json:"delivery_mode"`
	Timestamp      int64                 `json:"timestamp"`
}

type SessionResponse struct {
	SessionID       string                `json:"session_id"`
	Title           string                `json:"title"`
	Table           *Table                `json:"table,omitempty"`
	Statistics      *AttendanceStatistics `json:"statistics,omitempty"`
	GenerationCount int                   `json:"generation_count"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// GatewayChatResponse OpenAI 兼容的非流式响应体
type GatewayChatResponse struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []GatewayChoice `json:"choices"`
}

type GatewayChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// GatewayStreamChunk OpenAI 兼容的 SSE 分片
type GatewayStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []GatewayDeltaChoice `json:"choices"`
}

type GatewayDeltaChoice struct {
	Index        int          `json:"index"`
	Delta        GatewayDelta `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

type GatewayDelta struct {
	Content string `json:"content,omitempty"`
}
