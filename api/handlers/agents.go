package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/collaboration"
	"github.com/hykang/chorus/internal/ctxkeys"
)

// AgentAvailability is one catalog entry with its availability for the
// requesting user's plan.
type AgentAvailability struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Description string `json:"description,omitempty"`
	Premium     bool   `json:"premium"`
	Available   bool   `json:"available"`
}

// AgentListResponse is the GET payload: enabled agents plus the
// collaboration modes a turn may request.
type AgentListResponse struct {
	Agents []AgentAvailability  `json:"agents"`
	Modes  []collaboration.Mode `json:"modes"`
}

// AgentsHandler serves the agent catalog.
type AgentsHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewAgentsHandler creates the catalog handler.
func NewAgentsHandler(c *catalog.Catalog, logger *zap.Logger) *AgentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentsHandler{catalog: c, logger: logger.With(zap.String("handler", "agents"))}
}

// HandleList serves GET /v1/agents. Premium agents show as unavailable
// on the free plan instead of being hidden.
func (h *AgentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	plan, _ := ctxkeys.Plan(r.Context())

	enabled := h.catalog.Enabled()
	agents := make([]AgentAvailability, 0, len(enabled))
	for _, a := range enabled {
		agents = append(agents, AgentAvailability{
			ID:          a.ID,
			Name:        a.Name,
			Provider:    a.Provider,
			Model:       a.Model,
			Description: a.Description,
			Premium:     a.Premium,
			Available:   !a.Premium || plan != catalog.PlanFree,
		})
	}

	WriteSuccess(w, r, AgentListResponse{Agents: agents, Modes: collaboration.Modes()})
}
