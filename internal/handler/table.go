package handler

import (
	"net/http"

	"tablegen-backend/internal/model"
	"tablegen-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type TableHandler struct {
	tableService *service.TableService
}

func NewTableHandler(tableService *service.TableService) *TableHandler {
	return &TableHandler{
		tableService: tableService,
	}
}

// Generate 执行一次生成链。请求 context 取消（用户中止或连接断开）
// 会沿链传播并拆除上游连接，结果是明确的"已取消"而不是失败。
func (h *TableHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.tableService.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TableHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	// 允许空请求体，使用默认标题
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Title = ""
	}

	session, err := h.tableService.CreateSession(req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

func (h *TableHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.tableService.GetSession(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

func (h *TableHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.tableService.DeleteSession(sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

func (h *TableHandler) ListSessions(c *gin.Context) {
	sessions, err := h.tableService.ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := make([]model.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, sessionResponse(s))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": result})
}

func sessionResponse(s *model.Session) model.SessionResponse {
	return model.SessionResponse{
		SessionID:       s.ID,
		Title:           s.Title,
		Table:           s.Table,
		Statistics:      s.Statistics,
		GenerationCount: len(s.Generations),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
