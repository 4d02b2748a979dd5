package storage

import (
	"tablegen-backend/internal/model"
)

type Storage interface {
	// 会话管理
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	// 生成结果落库：校验通过后整表替换，同时写入统计和生成记录。
	// 失败的生成链不会走到这里，上一张校验通过的表保持不动。
	ReplaceTable(sessionID string, table *model.Table, stats *model.AttendanceStatistics, record model.GenerationRecord) error
}
