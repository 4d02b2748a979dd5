package model

// GenerateRequest 生成（或修改）表格的请求
type GenerateRequest struct {
	SessionID   string       `json:"session_id" binding:"required"`
	Description string       `json:"description" binding:"required"`
	Template    TemplateType `json:"template"`
	Model       string       `json:"model"`
	Stream      bool         `json:"stream"`
	Modify      bool         `json:"modify"` // 基于会话当前表做编辑而不是从零生成
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

// GatewayChatRequest 本地网关收到的 OpenAI 兼容请求体
type GatewayChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages" binding:"required"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}
