// Package domain defines the core domain models for the chatbot backend.
package domain

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the envelope returned for a successful chat turn.
type ChatResult struct {
	Status    string `json:"status"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// HistoryResult carries the conversation history for a session.
type HistoryResult struct {
	SessionID    string `json:"session_id"`
	Messages     []Turn `json:"messages"`
	MessageCount int    `json:"message_count"`
}

// AnalysisResult is the envelope returned by batch comment analysis.
// Failed analyses keep the same shape with Status "error" and Message set,
// so batch callers always receive a uniform result.
type AnalysisResult struct {
	Status       string `json:"status"`
	Response     string `json:"response,omitempty"`
	Message      string `json:"message,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	CommentCount int    `json:"comment_count"`
	SampleCount  int    `json:"sample_count,omitempty"`
}

// SessionStat summarizes one active session.
type SessionStat struct {
	ID         string  `json:"id"`
	Messages   int     `json:"messages"`
	AgeSeconds float64 `json:"age_seconds"`
}

// StoreStats summarizes the session store.
type StoreStats struct {
	TotalSessions int           `json:"total_sessions"`
	Sessions      []SessionStat `json:"sessions"`
}
