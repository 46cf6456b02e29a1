package reactrole

import (
	"context"
	"errors"
	"fmt"

	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/lib/store"
)

// MessagePrefix namespaces reaction-role messages in the store.
const MessagePrefix = "rr:message:"

// MessageMapping is saved for every message /setup posts, keyed by message
// ID.
type MessageMapping struct {
	GuildID     string              `json:"guild_id"`
	ChannelID   string              `json:"channel_id"`
	Mappings    map[EmojiKey]string `json:"mappings"`
	CreatedBy   string              `json:"created_by"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
}

// Messages reads and writes MessageMapping values. Entries never expire; they
// are removed when the message is deleted.
type Messages struct {
	store *store.JSON[MessageMapping]
}

func NewMessages(st store.Interface) *Messages {
	return &Messages{
		store: &store.JSON[MessageMapping]{
			Underlying: st,
			Prefix:     MessagePrefix,
		},
	}
}

// Get returns the mapping of a message. ok is false for messages that are not
// reaction-role messages.
func (m *Messages) Get(ctx context.Context, messageID string) (mm MessageMapping, ok bool, err error) {
	mm, err = m.store.Get(ctx, messageID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return MessageMapping{}, false, nil
	case err != nil:
		return MessageMapping{}, false, fmt.Errorf("can't load reaction roles for message %s: %w", messageID, err)
	}

	return mm, true, nil
}

func (m *Messages) Set(ctx context.Context, messageID string, mm MessageMapping) error {
	if err := m.store.Set(ctx, messageID, mm, gatekeeper.StoreNeverExpires); err != nil {
		return fmt.Errorf("can't save reaction roles for message %s: %w", messageID, err)
	}

	return nil
}

// Delete reports whether there was a mapping to delete.
func (m *Messages) Delete(ctx context.Context, messageID string) (bool, error) {
	err := m.store.Delete(ctx, messageID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("can't delete reaction roles for message %s: %w", messageID, err)
	}

	return true, nil
}
