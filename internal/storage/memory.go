package storage

import (
	"sync"
	"time"

	"tablegen-backend/internal/model"
)

// MemoryStorage 会话只在进程内存活，不跨会话持久化
type MemoryStorage struct {
	sessions map[string]*model.Session
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
	}
}

func (m *MemoryStorage) CreateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session == nil || session.ID == "" {
		return ErrInvalidData
	}
	if _, exists := m.sessions[session.ID]; exists {
		return ErrSessionExists
	}

	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryStorage) GetSession(sessionID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	// 返回快照而不是存内指针，调用方读字段不会撞上 ReplaceTable 的写
	snapshot := *session
	return &snapshot, nil
}

func (m *MemoryStorage) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStorage) ListSessions() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		snapshot := *session
		sessions = append(sessions, &snapshot)
	}

	return sessions, nil
}

func (m *MemoryStorage) ReplaceTable(sessionID string, table *model.Table, stats *model.AttendanceStatistics, record model.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}
	if table == nil {
		return ErrInvalidData
	}

	session.Table = table
	session.Statistics = stats
	session.Generations = append(session.Generations, record)
	session.UpdatedAt = time.Now()
	return nil
}
