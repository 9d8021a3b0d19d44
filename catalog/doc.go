// Package catalog holds the agent reference library: which agents
// exist, which model backs each one, what they are allowed to do per
// subscription plan, and what their models cost. The catalog is
// read-only reference data for the rest of the engine.
package catalog
