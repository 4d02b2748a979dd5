package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"

	"github.com/gin-gonic/gin"
)

type fakeChatClient struct {
	content string
	chunks  []string
	route   model.ModelRoute
}

func (f *fakeChatClient) Send(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error) {
	f.route = route
	return f.content, nil
}

func (f *fakeChatClient) Stream(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (<-chan string, <-chan error) {
	f.route = route
	chunks := make(chan string, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		chunks <- c
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func newGatewayRouter(client ChatClient) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{Model: "default-model"},
		Generation: config.GenerationConfig{
			FakeStreamChunk: 4,
			FakeStreamDelay: time.Millisecond,
		},
	}

	router := gin.New()
	router.POST("/api/v1/chat/completions", NewGatewayHandler(client, cfg).ChatCompletions)
	return router
}

func TestChatCompletions_NonStream(t *testing.T) {
	client := &fakeChatClient{content: "回答"}
	router := newGatewayRouter(client)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"你好"}],"stream":false}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", w.Code, w.Body.String())
	}

	var resp model.GatewayChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "回答" {
		t.Fatalf("unexpected choices: %+v", resp.Choices)
	}
	if client.route.DeliveryMode != model.DeliveryNonStream {
		t.Fatalf("delivery mode: %s", client.route.DeliveryMode)
	}
}

// 假流式前缀：上游一次非流式调用，响应以 SSE 分片重放并以 [DONE] 结尾
func TestChatCompletions_FakeStream(t *testing.T) {
	client := &fakeChatClient{content: "这是一段用来分片的完整回复"}
	router := newGatewayRouter(client)

	body := `{"model":"假流式/gemini-2.5-flash","messages":[{"role":"user","content":"你好"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
	if client.route.UpstreamModel != "gemini-2.5-flash" || client.route.DeliveryMode != model.DeliveryFakeStream {
		t.Fatalf("route: %+v", client.route)
	}

	raw := w.Body.String()
	if !strings.HasSuffix(strings.TrimSpace(raw), "data: [DONE]") {
		t.Fatalf("stream does not end with [DONE]:\n%s", raw)
	}

	// 把所有分片拼回去必须还原完整文本
	var assembled strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok || data == "[DONE]" {
			continue
		}
		var chunk model.GatewayStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			t.Fatalf("decode chunk %q: %v", data, err)
		}
		if len(chunk.Choices) > 0 {
			assembled.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if assembled.String() != client.content {
		t.Fatalf("reassembled stream mismatch: %q", assembled.String())
	}
}

func TestChatCompletions_RealStream(t *testing.T) {
	client := &fakeChatClient{chunks: []string{"第一", "第二"}}
	router := newGatewayRouter(client)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"你好"}],"stream":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if client.route.DeliveryMode != model.DeliveryRealStream {
		t.Fatalf("delivery mode: %s", client.route.DeliveryMode)
	}
	raw := w.Body.String()
	if !strings.Contains(raw, "第一") || !strings.Contains(raw, "第二") {
		t.Fatalf("stream missing chunks:\n%s", raw)
	}
	if !strings.HasSuffix(strings.TrimSpace(raw), "data: [DONE]") {
		t.Fatalf("stream does not end with [DONE]")
	}
}
