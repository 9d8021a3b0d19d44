package provider

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hykang/chorus/types"
)

// Registry is an in-process CapabilityProvider backed by a map.
type Registry struct {
	capabilities map[string]Capability
	mu           sync.RWMutex
	logger       *zap.Logger
}

// NewRegistry creates an empty capability registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		capabilities: make(map[string]Capability),
		logger:       logger.With(zap.String("component", "capability_registry")),
	}
}

// Register binds a capability to an agent ID, replacing any previous
// binding.
func (r *Registry) Register(agentID string, cap Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.capabilities[agentID]; exists {
		r.logger.Warn("capability replaced", zap.String("agent_id", agentID))
	}
	r.capabilities[agentID] = cap
}

// Capability implements CapabilityProvider.
func (r *Registry) Capability(agentID string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.capabilities[agentID]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "no capability registered for agent "+agentID)
	}
	return cap, nil
}

// IDs returns the registered agent IDs in unspecified order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.capabilities))
	for id := range r.capabilities {
		ids = append(ids, id)
	}
	return ids
}
