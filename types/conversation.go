package types

import (
	"time"
)

// ConfigSnapshot records one agent-set/mode configuration of a
// conversation. Versions are strictly increasing and snapshots are only
// ever appended to a conversation's ConfigHistory, never edited.
type ConfigSnapshot struct {
	Version       int       `json:"version"`
	AgentIDs      []string  `json:"agent_ids"`
	Mode          string    `json:"mode"`
	ChangedAt     time.Time `json:"changed_at"`
	ChangedByUser bool      `json:"changed_by_user"`
}

// ModeSingle is the mode recorded for the implicit version-1 snapshot
// synthesized from a conversation's legacy single-model setting.
const ModeSingle = "single"

// Conversation is the persisted conversation document. The engine only
// ever appends to Messages and ConfigHistory through a turn; deletion
// is whole-document and belongs to the caller.
type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Model is the legacy single-agent model in effect before the
	// conversation ever had a multi-agent configuration.
	Model string `json:"model,omitempty"`

	ConfigHistory        []ConfigSnapshot `json:"config_history,omitempty"`
	CurrentConfigVersion int              `json:"current_config_version,omitempty"`
	Messages             []StoredMessage  `json:"messages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastSnapshot returns the most recent config snapshot, or nil when the
// history is empty.
func (c *Conversation) LastSnapshot() *ConfigSnapshot {
	if len(c.ConfigHistory) == 0 {
		return nil
	}
	return &c.ConfigHistory[len(c.ConfigHistory)-1]
}
