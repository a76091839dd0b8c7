package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole — автор сообщения в истории диалога.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage — одно сообщение истории.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session — контекст диалога, которым владеет вызывающая сторона.
// Создаётся на первом сообщении, удаляется явной очисткой.
type Session struct {
	ID                uuid.UUID      `json:"id"`
	Requirements      RequirementSet `json:"requirements"`
	History           []ChatMessage  `json:"history"`
	LocationConfirmed bool           `json:"location_confirmed"`
	ReadyForSearch    bool           `json:"ready_for_search"`
	// PendingLocations — варианты, из которых пользователь выбирает место по номеру
	PendingLocations []LocationCandidate `json:"pending_locations,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewSession создаёт пустую сессию.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		History:   []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append добавляет сообщение в историю.
func (s *Session) Append(role ChatRole, content string, at time.Time) {
	s.History = append(s.History, ChatMessage{Role: role, Content: content, CreatedAt: at})
	s.UpdatedAt = at
}
