package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Timeout: timeout,
	})
}

func completionBody(content string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}]}`
}

func TestSend_NonStream(t *testing.T) {
	var calls int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("hello")))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, time.Second)

	content, err := c.Send(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryNonStream})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if content != "hello" {
		t.Fatalf("content: got %q, want %q", content, "hello")
	}

	// 每次调用恰好一次上游请求
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly 1 upstream request, got %d", n)
	}
}

// 假流式对客户端而言就是一次非流式上游调用
func TestSend_FakeStreamAggregates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("aggregated")))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, time.Second)

	content, err := c.Send(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryFakeStream})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if content != "aggregated" {
		t.Fatalf("content: got %q", content)
	}
}

// 超时后调用方观察到 TimeoutError，在途连接被拆除，不会拿到部分数据
func TestSend_Timeout(t *testing.T) {
	done := make(chan struct{})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			// 客户端超时放弃后，服务端看到连接被取消
			close(done)
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 50*time.Millisecond)

	_, err := c.Send(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryNonStream})

	var timeout *model.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("upstream connection was not torn down after timeout")
	}
}

func TestSend_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // 立即关掉，制造连接失败

	c := newTestClient(ts.URL, time.Second)

	_, err := c.Send(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryNonStream})

	var network *model.NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if network.Cause == nil {
		t.Fatalf("NetworkError must carry the underlying cause")
	}
}

func TestSend_CancelledIsNotFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Send(ctx, model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryNonStream})

	if !errors.Is(err, model.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

// real-stream 在客户端内部拼装，调用方拿到最终完整文本
func TestSend_RealStreamAssembled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"{\"table", "Name\":", "\"t\"}"}
		for _, chunk := range chunks {
			w.Write([]byte(`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"` + escape(chunk) + `"}}]}` + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, time.Second)

	content, err := c.Send(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		Stream:   true,
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryRealStream})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if content != `{"tableName":"t"}` {
		t.Fatalf("assembled content: got %q", content)
	}
}

func TestStream_DeliversChunks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"one", "two"} {
			w.Write([]byte(`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"` + chunk + `"}}]}` + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, time.Second)

	chunks, errs := c.Stream(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		Stream:   true,
	}, model.ModelRoute{UpstreamModel: "m", DeliveryMode: model.DeliveryRealStream})

	var got []string
	for chunk := range chunks {
		got = append(got, chunk)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("chunks: %v", got)
	}
}

func escape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
