package catalog

import (
	"sync"
)

// Agent describes one entry in the agent library. Immutable reference
// data; the engine never mutates it.
type Agent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Description  string   `json:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  float32  `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Enabled      bool     `json:"enabled"`
	Premium      bool     `json:"premium"`
}

// HasTag reports whether the agent carries the given capability tag.
func (a *Agent) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Catalog is an indexed, order-preserving agent library.
type Catalog struct {
	agents []Agent
	byID   map[string]*Agent
	mu     sync.RWMutex
}

// New creates a catalog from the given agents. Later entries with a
// duplicate ID override earlier ones in the index but keep their
// original position in the ordered list.
func New(agents []Agent) *Catalog {
	c := &Catalog{
		agents: make([]Agent, len(agents)),
		byID:   make(map[string]*Agent, len(agents)),
	}
	copy(c.agents, agents)
	for i := range c.agents {
		c.byID[c.agents[i].ID] = &c.agents[i]
	}
	return c
}

// Get returns the agent with the given ID, or nil when unknown.
func (c *Catalog) Get(id string) *Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// Enabled returns all enabled agents in library order.
func (c *Catalog) Enabled() []Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Agent, 0, len(c.agents))
	for _, a := range c.agents {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of agents in the library.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.agents)
}

// Validation buckets agent IDs by availability for a subscription plan.
type Validation struct {
	Valid        []string `json:"valid"`
	Invalid      []string `json:"invalid"`
	NeedsUpgrade []string `json:"needs_upgrade"`
}

// PlanFree is the plan that cannot use premium agents.
const PlanFree = "free"

// Validate splits agentIDs into valid / invalid / needs-upgrade buckets
// for the given subscription plan. Order within each bucket follows the
// input order.
func (c *Catalog) Validate(agentIDs []string, plan string) Validation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var v Validation
	for _, id := range agentIDs {
		a := c.byID[id]
		switch {
		case a == nil || !a.Enabled:
			v.Invalid = append(v.Invalid, id)
		case a.Premium && plan == PlanFree:
			v.NeedsUpgrade = append(v.NeedsUpgrade, id)
		default:
			v.Valid = append(v.Valid, id)
		}
	}
	return v
}
