// Package provider defines the agent capability abstraction consumed
// by the collaboration strategies: a callable that accepts a message
// list and returns generated text with token and cost accounting.
// Concrete model transports live behind this interface; the engine
// never talks to a model API directly.
package provider
