package types

import (
	"time"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is the flattened role/content pair handed to an agent
// capability. Multi-agent log entries are flattened into this form by
// the context extractor before any capability sees them.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system chat message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user chat message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant chat message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ResponseStatus marks an AgentResponse as successful or failed.
type ResponseStatus string

const (
	StatusOK    ResponseStatus = "ok"
	StatusError ResponseStatus = "error"
)

// AgentResponse is a single agent's contribution to one turn.
// It is always embedded in a StoredMessage or a collaboration result,
// never persisted on its own.
type AgentResponse struct {
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name"`
	Content   string         `json:"content"`
	Status    ResponseStatus `json:"status"`
	Tokens    int            `json:"tokens"`
	Cost      float64        `json:"cost"`
	Model     string         `json:"model,omitempty"`
	ErrorCode ErrorCode      `json:"error_code,omitempty"`
}

// StoredMessage is one entry in a conversation's append-only log.
// Single-agent entries carry Content; multi-agent assistant entries
// carry one AgentResponse per participating agent instead.
type StoredMessage struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content,omitempty"`
	MultiAgent     bool            `json:"multi_agent,omitempty"`
	AgentResponses []AgentResponse `json:"agent_responses,omitempty"`

	// ConfigVersion is the config snapshot active when this message was
	// produced. Nil on legacy rows written before versioning existed.
	ConfigVersion *ConfigSnapshot `json:"config_version,omitempty"`

	TokensUsed int       `json:"tokens_used,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
