package conversation

import (
	"context"
	"errors"

	"github.com/hykang/chorus/types"
)

// Common store errors.
var (
	ErrNotFound      = errors.New("conversation not found")
	ErrAlreadyExists = errors.New("conversation already exists")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidInput  = errors.New("invalid input")
)

// Store persists conversation documents. Implementations must treat
// Messages and ConfigHistory as append-only: the only mutations are
// AppendMessage, AppendConfigSnapshot and Touch. Per-conversation write
// serialization is the store's concern, not its callers'.
type Store interface {
	// Get returns the conversation with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*types.Conversation, error)

	// Create persists a new conversation. Returns ErrAlreadyExists when
	// the ID is taken.
	Create(ctx context.Context, conv *types.Conversation) error

	// AppendMessage appends one message to the conversation log.
	AppendMessage(ctx context.Context, id string, msg types.StoredMessage) error

	// AppendConfigSnapshot appends one config snapshot and advances the
	// conversation's current config version.
	AppendConfigSnapshot(ctx context.Context, id string, snap types.ConfigSnapshot) error

	// Touch bumps the conversation's UpdatedAt timestamp.
	Touch(ctx context.Context, id string) error

	// Delete removes the whole conversation document.
	Delete(ctx context.Context, id string) error

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
