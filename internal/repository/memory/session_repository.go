package memory

import (
	"sync/atomic"

	"ai-assistant-client/pkg/api"
)

// SessionRecord is a chat session together with the assistant it belongs to.
type SessionRecord struct {
	AssistantID string
	api.Session
}

type SessionRepository struct {
	*Collection[SessionRecord]
}

func NewSessionRepository(seq *atomic.Uint64) *SessionRepository {
	return &SessionRepository{Collection: NewCollection[SessionRecord](seq)}
}

// FindByAssistant lists the sessions of an assistant, most recent first.
func (r *SessionRepository) FindByAssistant(assistantID string) []SessionRecord {
	sessions := r.List(func(s SessionRecord) bool { return s.AssistantID == assistantID })
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions
}

// AppendMessage adds msg to the session and bumps its update time.
func (r *SessionRepository) AppendMessage(id string, msg api.Message) (SessionRecord, bool) {
	return r.Update(id, func(s SessionRecord) SessionRecord {
		messages := make([]api.Message, len(s.Messages), len(s.Messages)+1)
		copy(messages, s.Messages)
		s.Messages = append(messages, msg)
		s.UpdatedAt = msg.CreatedAt
		return s
	})
}
