package collaboration

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/provider"
	"github.com/hykang/chorus/types"
)

// invokeAgent runs one capability call and converts the outcome into an
// AgentResponse. Failures become status=error entries with empty
// content; the error itself goes no further than the log line.
func invokeAgent(ctx context.Context, ac AgentCapability, messages []types.ChatMessage, logger *zap.Logger) types.AgentResponse {
	inv, err := ac.Capability.Invoke(ctx, messages)
	if err != nil {
		code := provider.Classify(err)
		logger.Warn("agent invocation failed",
			zap.String("agent_id", ac.Agent.ID),
			zap.String("error_code", string(code)),
			zap.Error(err),
		)
		return types.AgentResponse{
			AgentID:   ac.Agent.ID,
			AgentName: ac.Agent.Name,
			Status:    types.StatusError,
			Model:     ac.Agent.Model,
			ErrorCode: code,
		}
	}

	cost := inv.Cost
	if cost == 0 && inv.TotalTokens > 0 {
		prompt, completion := inv.PromptTokens, inv.CompletionTokens
		if prompt == 0 && completion == 0 {
			// Capability reported only a total; assume the usual
			// 40/60 prompt-to-completion split.
			prompt = inv.TotalTokens * 40 / 100
			completion = inv.TotalTokens - prompt
		}
		cost = catalog.Cost(ac.Agent.Model, prompt, completion)
	}

	return types.AgentResponse{
		AgentID:   ac.Agent.ID,
		AgentName: ac.Agent.Name,
		Content:   inv.Content,
		Status:    types.StatusOK,
		Tokens:    inv.TotalTokens,
		Cost:      cost,
		Model:     ac.Agent.Model,
	}
}

// buildMessages assembles the prompt for one agent: optional system
// prompt, the extracted context, then the user content.
func buildMessages(ac AgentCapability, contextMessages []types.ChatMessage, userContent string) []types.ChatMessage {
	messages := make([]types.ChatMessage, 0, len(contextMessages)+2)
	if ac.Agent.SystemPrompt != "" {
		messages = append(messages, types.NewSystemMessage(ac.Agent.SystemPrompt))
	}
	messages = append(messages, contextMessages...)
	messages = append(messages, types.NewUserMessage(userContent))
	return messages
}

// labelResponses renders successful responses as name-labeled blocks,
// one per agent, separated by blank lines.
func labelResponses(responses []types.AgentResponse) string {
	var b strings.Builder
	for _, r := range responses {
		if r.Status != types.StatusOK {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(r.AgentName)
		b.WriteString("]\n")
		b.WriteString(r.Content)
	}
	return b.String()
}
