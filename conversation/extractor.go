package conversation

import (
	"strings"

	"github.com/hykang/chorus/types"
)

// DefaultMaxContextMessages is the default context window size.
const DefaultMaxContextMessages = 20

// ExtractContext returns the longest recent run of messages produced
// under a configuration compatible with currentAgentIDs, flattened to
// role/content pairs, capped at maxMessages entries.
//
// The scan walks the last 2×maxMessages raw messages newest to oldest.
// A message whose config version carries a different agent set is a
// boundary: it ends the window once compatible messages have been
// accumulated, but is skipped while none have been, so an earlier run
// of compatible messages survives a brief configuration detour.
// Messages without version metadata (legacy history) never create
// boundaries. Pathological configuration flapping can exhaust the
// 2×maxMessages scan budget and yield a short window; that behavior is
// preserved deliberately.
func ExtractContext(messages []types.StoredMessage, currentAgentIDs []string, maxMessages int) []types.ChatMessage {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxContextMessages
	}
	if len(messages) == 0 {
		return nil
	}

	candidates := messages
	if len(candidates) > 2*maxMessages {
		candidates = candidates[len(candidates)-2*maxMessages:]
	}

	var relevant []types.StoredMessage
	for i := len(candidates) - 1; i >= 0; i-- {
		msg := candidates[i]

		if msg.ConfigVersion != nil && !AgentIDsEqual(msg.ConfigVersion.AgentIDs, currentAgentIDs) {
			if len(relevant) > 0 {
				// Boundary: the compatible run ends here.
				break
			}
			// No compatible run started yet; an earlier run may still
			// be recoverable.
			continue
		}

		relevant = append([]types.StoredMessage{msg}, relevant...)

		if len(relevant) >= 2*maxMessages {
			break
		}
	}

	if len(relevant) > maxMessages {
		relevant = relevant[len(relevant)-maxMessages:]
	}

	out := make([]types.ChatMessage, 0, len(relevant))
	for _, msg := range relevant {
		out = append(out, FlattenMessage(msg))
	}
	return out
}

// FlattenMessage converts a stored log entry into a single role/content
// pair. Multi-agent entries join each agent's contribution labeled by
// agent name; failed agents are labeled with an [ERROR] marker.
func FlattenMessage(msg types.StoredMessage) types.ChatMessage {
	if msg.MultiAgent && len(msg.AgentResponses) > 0 {
		parts := make([]string, 0, len(msg.AgentResponses))
		for _, r := range msg.AgentResponses {
			if r.Status == types.StatusError {
				parts = append(parts, r.AgentName+" [ERROR]: "+r.Content)
			} else {
				parts = append(parts, r.AgentName+": "+r.Content)
			}
		}
		return types.ChatMessage{Role: msg.Role, Content: strings.Join(parts, "\n\n")}
	}
	return types.ChatMessage{Role: msg.Role, Content: msg.Content}
}
