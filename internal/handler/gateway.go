package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"
	"tablegen-backend/internal/service"
	"tablegen-backend/internal/utils"
	"tablegen-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatClient 网关需要的上游能力：聚合调用和真流式分片
type ChatClient interface {
	Send(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error)
	Stream(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (<-chan string, <-chan error)
}

// GatewayHandler 本地 OpenAI 兼容网关：在转发上游之前完成
// 模型别名解析和假流式送达。调用方拿到的接口形态和直连上游一致。
type GatewayHandler struct {
	resolver *service.ModelResolver
	client   ChatClient
	cfg      config.GenerationConfig
}

func NewGatewayHandler(client ChatClient, cfg *config.Config) *GatewayHandler {
	return &GatewayHandler{
		resolver: service.NewModelResolver(cfg.OpenAI.Model),
		client:   client,
		cfg:      cfg.Generation,
	}
}

// ChatCompletions POST /api/v1/chat/completions
func (h *GatewayHandler) ChatCompletions(c *gin.Context) {
	var req model.GatewayChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route := h.resolver.Resolve(req.Model, req.Stream)
	creq := model.CompletionRequest{
		Model:       route.UpstreamModel,
		Messages:    req.Messages,
		Stream:      route.DeliveryMode == model.DeliveryRealStream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	logger.WithFields(map[string]any{
		"model":    route.UpstreamModel,
		"delivery": route.DeliveryMode,
	}).Info("gateway chat completion")

	switch route.DeliveryMode {
	case model.DeliveryFakeStream:
		h.fakeStream(c, creq, route)
	case model.DeliveryRealStream:
		h.realStream(c, creq, route)
	default:
		h.nonStream(c, creq, route)
	}
}

func (h *GatewayHandler) nonStream(c *gin.Context, creq model.CompletionRequest, route model.ModelRoute) {
	content, err := h.client.Send(c.Request.Context(), creq, route)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.GatewayChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   route.UpstreamModel,
		Choices: []model.GatewayChoice{
			{
				Index:        0,
				Message:      model.ChatMessage{Role: model.RoleAssistant, Content: content},
				FinishReason: "stop",
			},
		},
	})
}

// fakeStream 上游只走一次非流式调用，拿到完整文本后按固定分片
// 重放成 SSE，对调用方呈现为流式
func (h *GatewayHandler) fakeStream(c *gin.Context, creq model.CompletionRequest, route model.ModelRoute) {
	content, err := h.client.Send(c.Request.Context(), creq, route)
	if err != nil {
		respondError(c, err)
		return
	}

	sse := utils.NewSSEWriter(c.Writer)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	runes := []rune(content)
	for start := 0; start < len(runes); start += h.cfg.FakeStreamChunk {
		end := start + h.cfg.FakeStreamChunk
		if end > len(runes) {
			end = len(runes)
		}

		if err := h.writeChunk(sse, id, created, route.UpstreamModel, string(runes[start:end]), nil); err != nil {
			logger.Warnf("fake stream write failed: %v", err)
			return
		}

		select {
		case <-time.After(h.cfg.FakeStreamDelay):
		case <-c.Request.Context().Done():
			return
		}
	}

	stop := "stop"
	if err := h.writeChunk(sse, id, created, route.UpstreamModel, "", &stop); err != nil {
		return
	}
	sse.Close()
}

func (h *GatewayHandler) realStream(c *gin.Context, creq model.CompletionRequest, route model.ModelRoute) {
	chunks, errs := h.client.Stream(c.Request.Context(), creq, route)

	sse := utils.NewSSEWriter(c.Writer)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				stop := "stop"
				h.writeChunk(sse, id, created, route.UpstreamModel, "", &stop)
				sse.Close()
				return
			}
			if err := h.writeChunk(sse, id, created, route.UpstreamModel, chunk, nil); err != nil {
				logger.Warnf("stream write failed: %v", err)
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				data, _ := json.Marshal(gin.H{"error": err.Error()})
				sse.Write(string(data))
				sse.Close()
				return
			}

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *GatewayHandler) writeChunk(sse *utils.SSEWriter, id string, created int64, upstreamModel, content string, finish *string) error {
	chunk := model.GatewayStreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   upstreamModel,
		Choices: []model.GatewayDeltaChoice{
			{
				Index:        0,
				Delta:        model.GatewayDelta{Content: content},
				FinishReason: finish,
			},
		},
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal stream chunk: %w", err)
	}
	return sse.Write(string(data))
}
