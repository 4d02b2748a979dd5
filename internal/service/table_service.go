package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"
	"tablegen-backend/internal/storage"
	"tablegen-backend/pkg/logger"

	"github.com/google/uuid"
)

// CompletionSender 上游调用的最小接口，测试里用假实现替换真实客户端
type CompletionSender interface {
	Send(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error)
}

// TableService 串起一次生成链：
// 提示词 → 模型路由 → 上游调用 → JSON 提取 → 结构校验 → 统计。
// 每个用户动作一条链，链内只有上游调用一个挂起点。
type TableService struct {
	cfg       *config.Config
	prompt    *PromptBuilder
	resolver  *ModelResolver
	client    CompletionSender
	validator *TableValidator
	stats     *StatisticsEngine
	storage   storage.Storage

	// 同一会话同时只允许一条生成链，避免整表替换互相竞争
	inflight sync.Map
}

func NewTableService(cfg *config.Config, client CompletionSender, store storage.Storage) *TableService {
	return &TableService{
		cfg:       cfg,
		prompt:    NewPromptBuilder(cfg.Generation),
		resolver:  NewModelResolver(cfg.OpenAI.Model),
		client:    client,
		validator: NewTableValidator(),
		stats:     NewStatisticsEngine(),
		storage:   store,
	}
}

func (s *TableService) CreateSession(title string) (*model.Session, error) {
	if title == "" {
		title = "新表格 " + time.Now().Format("2006-01-02 15:04")
	}

	session := &model.Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *TableService) GetSession(sessionID string) (*model.Session, error) {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *TableService) DeleteSession(sessionID string) error {
	return s.storage.DeleteSession(sessionID)
}

func (s *TableService) ListSessions() ([]*model.Session, error) {
	return s.storage.ListSessions()
}

// Generate 执行一条完整的生成链。任何失败都不会动会话里
// 上一张校验通过的表；只有校验成功后才整表替换并重新计算统计。
func (s *TableService) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	session, err := s.GetSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, loaded := s.inflight.LoadOrStore(req.SessionID, struct{}{}); loaded {
		return nil, &model.InvalidInputError{
			Reason: fmt.Sprintf("a generation is already in flight for session %s", req.SessionID),
		}
	}
	defer s.inflight.Delete(req.SessionID)

	var existing *model.Table
	if req.Modify {
		if session.Table == nil {
			return nil, &model.InvalidInputError{Reason: "modify requested but session has no table yet"}
		}
		existing = session.Table
	}

	messages, err := s.prompt.Build(req.Description, req.Template, existing)
	if err != nil {
		return nil, err
	}

	route := s.resolver.Resolve(req.Model, req.Stream)

	logger.WithFields(map[string]any{
		"session":  req.SessionID,
		"model":    route.UpstreamModel,
		"delivery": route.DeliveryMode,
		"modify":   req.Modify,
	}).Info("generation chain started")

	table, err := s.runChain(ctx, messages, route, req.Template)
	if err != nil {
		if !model.IsResponseQuality(err) {
			return nil, err
		}
		// 响应质量问题整链重试一次，带更严格的追加指令，绝不无限重试
		logger.Warnf("response quality failure, retrying once with stricter prompt: %v", err)
		stricter := append(append([]model.ChatMessage{}, messages...), s.prompt.StrictRetryMessage())
		table, err = s.runChain(ctx, stricter, route, req.Template)
		if err != nil {
			return nil, err
		}
	}

	resp := &model.GenerateResponse{
		SessionID:    req.SessionID,
		Table:        table,
		Model:        route.UpstreamModel,
		DeliveryMode: route.DeliveryMode,
		Timestamp:    time.Now().Unix(),
	}

	stats, err := s.stats.Compute(table)
	if err != nil {
		// 统计推导不出来是软失败：表照常返回，只是没有统计
		var unsupported *model.UnsupportedSchemaError
		if !errors.As(err, &unsupported) {
			return nil, err
		}
		resp.StatisticsNote = unsupported.Reason
	} else {
		resp.Statistics = stats
	}

	record := model.GenerationRecord{
		Description: req.Description,
		Template:    req.Template,
		Model:       route.UpstreamModel,
		Modify:      req.Modify,
		Timestamp:   time.Now(),
	}
	if err := s.storage.ReplaceTable(req.SessionID, table, resp.Statistics, record); err != nil {
		return nil, fmt.Errorf("failed to store generated table: %w", err)
	}

	return resp, nil
}

// runChain 一次上游调用（含传输层重试）加提取和校验
func (s *TableService) runChain(ctx context.Context, messages []model.ChatMessage, route model.ModelRoute, template model.TemplateType) (*model.Table, error) {
	creq := model.CompletionRequest{
		Model:       route.UpstreamModel,
		Messages:    messages,
		Stream:      route.DeliveryMode == model.DeliveryRealStream,
		Temperature: s.cfg.OpenAI.Temperature,
		MaxTokens:   s.cfg.OpenAI.MaxTokens,
	}

	text, err := s.sendWithRetry(ctx, creq, route)
	if err != nil {
		return nil, err
	}

	raw, err := ExtractTablePayload(text)
	if err != nil {
		return nil, err
	}

	return s.validator.Validate(raw, template)
}

// sendWithRetry 传输类错误按固定次数退避重试；取消和输入错误不重试。
// 客户端本身零重试，重试政策整个放在这一层。
func (s *TableService) sendWithRetry(ctx context.Context, req model.CompletionRequest, route model.ModelRoute) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.Generation.TransportRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * s.cfg.Generation.RetryBackoff
			logger.Warnf("transport failure (attempt %d), backing off %s: %v", attempt, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", model.ErrCancelled
			}
		}

		text, err := s.client.Send(ctx, req, route)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, model.ErrCancelled) {
			return "", model.ErrCancelled
		}
		if !model.IsRetryableTransport(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}
