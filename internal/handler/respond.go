package handler

import (
	"errors"
	"net/http"

	"tablegen-backend/internal/model"
	"tablegen-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// 客户端在响应前断开，nginx 的约定状态码
const statusClientClosedRequest = 499

// respondError 把错误分类映射到 HTTP 状态和结构化错误体。
// 错误体带 type 字段和足够的上下文（行号、列名、原因），前端据此给出精确提示。
func respondError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrCancelled) {
		c.JSON(statusClientClosedRequest, gin.H{
			"type":  "cancelled",
			"error": "generation was cancelled",
		})
		return
	}
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"type":  "not_found",
			"error": err.Error(),
		})
		return
	}

	var invalid *model.InvalidInputError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{
			"type":  "invalid_input",
			"error": invalid.Error(),
		})
		return
	}

	var timeout *model.TimeoutError
	if errors.As(err, &timeout) {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"type":  "timeout",
			"error": timeout.Error(),
		})
		return
	}

	var network *model.NetworkError
	if errors.As(err, &network) {
		c.JSON(http.StatusBadGateway, gin.H{
			"type":  "network",
			"error": network.Error(),
		})
		return
	}

	var schema *model.SchemaError
	if errors.As(err, &schema) {
		c.JSON(http.StatusBadGateway, gin.H{
			"type":   "schema",
			"error":  schema.Error(),
			"row":    schema.Row,
			"column": schema.Column,
		})
		return
	}

	var noJSON *model.NoJsonFoundError
	if errors.As(err, &noJSON) {
		c.JSON(http.StatusBadGateway, gin.H{
			"type":  "no_json",
			"error": noJSON.Error(),
		})
		return
	}

	var malformed *model.MalformedJsonError
	if errors.As(err, &malformed) {
		c.JSON(http.StatusBadGateway, gin.H{
			"type":  "malformed_json",
			"error": malformed.Error(),
			"raw":   malformed.RawText,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"type":  "internal",
		"error": err.Error(),
	})
}
