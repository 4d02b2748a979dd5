package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"
	"tablegen-backend/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

// Client 上游 chat-completion 客户端。
// 每次调用恰好发起一次上游请求，不缓存，不在内部重试；
// 重试策略属于调用方。硬性墙钟超时由 context 控制，
// 超时即拆除在途连接，绝不把被截断的部分数据当成功返回。
type Client struct {
	client  *openai.Client
	timeout time.Duration
}

func NewClient(cfg config.OpenAIConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = utils.NewHTTPClient()

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		timeout: cfg.Timeout,
	}
}

// Send 发出一次上游请求并返回最终聚合文本。
// non-stream 和 fake-stream 都走一次非流式上游调用（假流式只是对人的
// 展示幻觉）；real-stream 在这里把分片拼装成完整文本后返回，
// 后续提取环节拿到的永远是"最终完整文本"。
func (c *Client) Send(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if route.DeliveryMode == model.DeliveryRealStream {
		return c.sendStreamed(ctx, req, route)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       route.UpstreamModel,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", c.wrapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", &model.NetworkError{Cause: errors.New("empty choices in upstream response")}
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) sendStreamed(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       route.UpstreamModel,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return "", c.wrapError(ctx, err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", c.wrapError(ctx, err)
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	return sb.String(), nil
}

// Stream 供网关做真流式透传：分片经 channel 逐个交给调用方
func (c *Client) Stream(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       route.UpstreamModel,
			Messages:    convertMessages(req.Messages),
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Stream:      true,
		})
		if err != nil {
			errs <- c.wrapError(ctx, err)
			return
		}
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				errs <- c.wrapError(ctx, err)
				return
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case chunks <- chunk.Choices[0].Delta.Content:
				case <-ctx.Done():
					errs <- c.wrapError(ctx, ctx.Err())
					return
				}
			}
		}
	}()

	return chunks, errs
}

// wrapError 归类传输层失败：墙钟超时是 TimeoutError，调用方主动取消
// 是取消而不是失败，其余（DNS、TLS、连接重置、上游非 2xx）是 NetworkError
func (c *Client) wrapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &model.TimeoutError{Timeout: c.timeout.String()}
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return model.ErrCancelled
	}
	return &model.NetworkError{Cause: err}
}

func convertMessages(messages []model.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return result
}
