package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/ports"
)

// Conversation identifies whose snapshot is being accessed.
// dialog.TurnContext satisfies it.
type Conversation interface {
	ConversationID() string
}

// ConversationRef addresses a conversation by id when no turn is in flight.
type ConversationRef string

// ConversationID implements Conversation.
func (c ConversationRef) ConversationID() string {
	return string(c)
}

// Accessor reads and writes the dialog stack snapshot of a conversation.
type Accessor interface {
	// Get returns the stored snapshot, or a fresh empty one if nothing is stored yet.
	Get(ctx context.Context, conv Conversation) (*domain.DialogState, error)

	// Set stores the snapshot.
	Set(ctx context.Context, conv Conversation, state *domain.DialogState) error

	// Delete removes the snapshot.
	Delete(ctx context.Context, conv Conversation) error
}

// ConversationState is a named property accessor over a StateStore.
// Snapshots are stored under "<conversationID>/<property>".
type ConversationState struct {
	store    ports.StateStore
	property string
}

// NewConversationState creates an accessor for the given property.
// An empty property defaults to domain.DefaultStateProperty.
func NewConversationState(store ports.StateStore, property string) (*ConversationState, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: state store is required", domain.ErrInvalidArgument)
	}
	if property == "" {
		property = domain.DefaultStateProperty
	}
	return &ConversationState{store: store, property: property}, nil
}

// Property returns the property name this accessor is bound to.
func (c *ConversationState) Property() string {
	return c.property
}

// Key builds the storage key for a conversation.
func (c *ConversationState) Key(conversationID string) string {
	return conversationID + "/" + c.property
}

func (c *ConversationState) keyFor(conv Conversation) (string, error) {
	if conv == nil || conv.ConversationID() == "" {
		return "", fmt.Errorf("%w: conversation id is required", domain.ErrInvalidArgument)
	}
	return c.Key(conv.ConversationID()), nil
}

// Get implements Accessor.
func (c *ConversationState) Get(ctx context.Context, conv Conversation) (*domain.DialogState, error) {
	key, err := c.keyFor(conv)
	if err != nil {
		return nil, err
	}

	snapshot, err := c.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.NewDialogState(), nil
		}
		return nil, fmt.Errorf("failed to load dialog state: %w", err)
	}
	return snapshot, nil
}

// Set implements Accessor.
func (c *ConversationState) Set(ctx context.Context, conv Conversation, state *domain.DialogState) error {
	key, err := c.keyFor(conv)
	if err != nil {
		return err
	}
	if state == nil {
		state = domain.NewDialogState()
	}
	if err := c.store.Save(ctx, key, state); err != nil {
		return fmt.Errorf("failed to save dialog state: %w", err)
	}
	return nil
}

// Delete implements Accessor.
func (c *ConversationState) Delete(ctx context.Context, conv Conversation) error {
	key, err := c.keyFor(conv)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete dialog state: %w", err)
	}
	return nil
}
