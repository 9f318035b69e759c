package backend

import (
	"context"
	"strings"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

// UsernameToUserID converts a name, optionally prefixed with @, to the
// userid
func (b *Backend) UsernameToUserID(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "@")
	user, err := b.driver.Users().GetUserByUsername(ctx, name)
	if err != nil || user.ID == "" {
		return "", &identity.UserDoesNotExistError{Name: name}
	}
	return user.ID, nil
}

// GetDirectChannel returns the direct channel between two users, creating
// it when it does not exist yet. Results are cached because creation is
// idempotent on the platform side but costs a round trip; the cache is
// capped, eviction just means an extra call.
func (b *Backend) GetDirectChannel(ctx context.Context, userID, otherUserID string) (*driver.Channel, error) {
	key := dmKey{userID: userID, otherUserID: otherUserID}

	b.dmMu.Lock()
	if channel, ok := b.dmCache[key]; ok {
		b.dmMu.Unlock()
		return channel, nil
	}
	b.dmMu.Unlock()

	channel, err := b.driver.Channels().CreateDirectChannel(ctx, userID, otherUserID)
	if err != nil {
		if driver.IsFault(err, driver.FaultInvalidOrMissingParameters, driver.FaultNotEnoughPermissions) {
			return nil, &identity.RoomDoesNotExistError{
				Room:   userID + "/" + otherUserID,
				Reason: "could not find direct channel for these users",
			}
		}
		return nil, err
	}

	b.dmMu.Lock()
	if len(b.dmCache) >= constants.DirectChannelCacheSize {
		// Capacity cap, not LRU: drop an arbitrary entry
		for k := range b.dmCache {
			delete(b.dmCache, k)
			break
		}
	}
	b.dmCache[key] = channel
	b.dmMu.Unlock()

	return channel, nil
}

// BuildIdentifier converts a textual representation into a Person or a
// Room.
//
// Supported forms:
//
//	@username
//	~channelname
//	channelid or userid (bare token, taken as a literal user id)
func (b *Backend) BuildIdentifier(ctx context.Context, text string) (identity.Identifier, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &identity.UnsupportedIdentifierError{Text: text}
	}

	if strings.HasPrefix(text, "~") {
		channelID, err := b.ChannelNameToID(ctx, text[1:])
		if err != nil {
			return nil, err
		}
		return identity.NewRoomFromID(b, channelID, b.teamID), nil
	}

	userID := text
	if strings.HasPrefix(text, "@") {
		resolved, err := b.UsernameToUserID(ctx, text)
		if err != nil {
			return nil, err
		}
		userID = resolved
	}

	channel, err := b.GetDirectChannel(ctx, b.UserID(), userID)
	if err != nil {
		return nil, err
	}
	return identity.NewPerson(b.driver.Users(), userID, channel.ID, b.teamID), nil
}

// buildMentions resolves every raw mention token of an event; a single
// failed resolution fails the whole list
func (b *Backend) buildMentions(mentions []string) ([]identity.Identifier, error) {
	if len(mentions) == 0 {
		return nil, nil
	}
	ctx := b.eventCtx()
	resolved := make([]identity.Identifier, 0, len(mentions))
	for _, mention := range mentions {
		id, err := b.BuildIdentifier(ctx, mention)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, id)
	}
	return resolved, nil
}
