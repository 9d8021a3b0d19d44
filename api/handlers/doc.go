// Package handlers implements the HTTP surface of chorusd: the
// multi-agent send endpoint, the agent catalog, conversation CRUD, the
// usage summary and health. Handlers are plain net/http; routing and
// middleware live in cmd/chorusd.
package handlers
