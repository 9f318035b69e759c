// Package backend implements the kChat protocol adapter: it receives raw
// platform events over the persistent connection, normalizes them into
// framework-level message, presence and membership callbacks, and turns
// framework send requests into platform API calls.
//
// One Backend instance owns one logical bot session. The process entry
// point constructs it exactly once and drives it through ServeOnce; the
// backend itself carries no singleton state.
package backend

import (
	"context"
	"sync"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

// Event names delivered by the platform event stream
const (
	EventPosted       = "posted"
	EventStatusChange = "status_change"
	EventHello        = "pusher_internal:subscription_succeeded"
	EventUserAdded    = "user_added"
	EventUserRemoved  = "user_removed"
)

// PresenceStatus is one of the four canonical presence states
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusOffline PresenceStatus = "offline"
	StatusDND     PresenceStatus = "dnd"
)

// Message is a normalized inbound message. Built once per event and not
// mutated afterwards.
type Message struct {
	Body   string
	From   identity.Identifier
	To     identity.Identifier
	Parent *driver.Post
	Extras map[string]interface{}
}

// IsDirect reports whether the message arrived over a direct channel
func (m *Message) IsDirect() bool {
	_, ok := m.To.(*identity.Person)
	return ok
}

// Renderer converts framework markup into platform markup before a body
// is chunked and sent
type Renderer func(body string) string

// Callbacks is the contract the bot framework supplies: one method per
// framework-level event the adapter can produce.
type Callbacks interface {
	OnMessage(msg *Message)
	OnMention(msg *Message, mentions []identity.Identifier)
	OnPresence(id identity.Identifier, status PresenceStatus)
	OnConnected()
	OnDisconnected()
	OnRoomJoined(room *identity.Room)
	OnRoomLeft(room *identity.Room)
}

// Options configures a backend session
type Options struct {
	// Team is the configured team name; events from other teams are
	// dropped
	Team string
	// MessageSizeLimit is the chunking limit; it must stay below
	// MessageHardLimit to leave headroom for fence markers
	MessageSizeLimit int
	// MessageHardLimit is the platform per-message cap
	MessageHardLimit int
	// Renderer converts message bodies before sending; nil means send
	// bodies unchanged
	Renderer Renderer
}

type dmKey struct {
	userID      string
	otherUserID string
}

// Handler processes one decoded event payload
type Handler func(payload []byte) error

// Backend is one bot session against one kChat server
type Backend struct {
	driver    driver.Driver
	callbacks Callbacks
	opts      Options

	teamID  string
	botUser *identity.Person

	// serveCtx is the context of the running connection; event handlers
	// issue their API calls under it
	serveCtx context.Context

	handlers map[string][]Handler

	// direct channel fetch-or-create cache, the only shared mutable
	// state of the session
	dmMu    sync.Mutex
	dmCache map[dmKey]*driver.Channel
}

// New builds a backend session. The driver must be logged in before
// ServeOnce runs.
func New(d driver.Driver, opts Options, callbacks Callbacks) *Backend {
	if opts.MessageSizeLimit <= 0 {
		opts.MessageSizeLimit = constants.MessageSizeLimit
	}
	if opts.MessageHardLimit <= 0 {
		opts.MessageHardLimit = constants.MaxMessageLength
	}
	if opts.Renderer == nil {
		opts.Renderer = func(body string) string { return body }
	}

	b := &Backend{
		driver:    d,
		callbacks: callbacks,
		opts:      opts,
		handlers:  make(map[string][]Handler),
		dmCache:   make(map[dmKey]*driver.Channel),
	}

	b.RegisterHandler(EventPosted, b.postedHandler)
	b.RegisterHandler(EventStatusChange, b.statusChangeHandler)
	b.RegisterHandler(EventHello, b.helloHandler)
	b.RegisterHandler(EventUserAdded, b.roomJoinedHandler)
	b.RegisterHandler(EventUserRemoved, b.roomLeftHandler)

	return b
}

// Driver exposes the platform client to identity values
func (b *Backend) Driver() driver.Driver {
	return b.driver
}

// UserID returns the bot's own user id, empty before ServeOnce logged in
func (b *Backend) UserID() string {
	if b.botUser == nil {
		return ""
	}
	return b.botUser.UserID()
}

// BotIdentifier returns the bot's own identity, nil before login
func (b *Backend) BotIdentifier() *identity.Person {
	return b.botUser
}

// TeamID returns the resolved team id, empty before login
func (b *Backend) TeamID() string {
	return b.teamID
}

// ChannelNameToID converts a channel name in the session team to its id
func (b *Backend) ChannelNameToID(ctx context.Context, name string) (string, error) {
	channel, err := b.driver.Channels().GetChannelByName(ctx, b.teamID, name)
	if err != nil || channel.ID == "" {
		return "", &identity.RoomDoesNotExistError{
			Room:   name,
			Reason: "no channel with this name exists in team " + b.teamID,
		}
	}
	return channel.ID, nil
}

// ChannelIDToName converts a channel id in the session team to its name
func (b *Backend) ChannelIDToName(ctx context.Context, channelID string) (string, error) {
	channel, err := b.driver.Channels().GetChannel(ctx, channelID)
	if err != nil || channel.Name == "" {
		return "", &identity.RoomDoesNotExistError{
			Room:   channelID,
			Reason: "no channel with this id exists in team " + b.teamID,
		}
	}
	return channel.Name, nil
}

// PublicChannels enumerates every public channel of the session team
func (b *Backend) PublicChannels(ctx context.Context) ([]driver.Channel, error) {
	var channels []driver.Channel
	for page := 0; ; page++ {
		part, err := b.driver.Channels().GetPublicChannels(ctx, b.teamID, page, constants.ChannelPageLimit)
		if err != nil {
			return nil, err
		}
		if len(part) == 0 {
			break
		}
		channels = append(channels, part...)
	}
	return channels, nil
}

// Channels lists the channels the bot is a member of, plus every public
// channel unless joinedOnly is set
func (b *Backend) Channels(ctx context.Context, joinedOnly bool) ([]driver.Channel, error) {
	channels, err := b.driver.Channels().GetChannelsForUser(ctx, b.UserID(), b.teamID)
	if err != nil {
		return nil, err
	}
	if joinedOnly {
		return channels, nil
	}
	public, err := b.PublicChannels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(channels))
	for _, channel := range channels {
		seen[channel.ID] = struct{}{}
	}
	for _, channel := range public {
		if _, ok := seen[channel.ID]; !ok {
			channels = append(channels, channel)
		}
	}
	return channels, nil
}

// Rooms returns the joined public and private channels, direct channels
// excluded
func (b *Backend) Rooms(ctx context.Context) ([]*identity.Room, error) {
	channels, err := b.Channels(ctx, true)
	if err != nil {
		return nil, err
	}
	var rooms []*identity.Room
	for _, channel := range channels {
		if channel.Type == "D" {
			continue
		}
		rooms = append(rooms, identity.NewRoomFromID(b, channel.ID, channel.TeamID))
	}
	return rooms, nil
}

// QueryRoom builds a room from either a name or a channel id
func (b *Backend) QueryRoom(room string) *identity.Room {
	return identity.NewRoom(b, room, b.teamID)
}

// IsFromSelf reports whether the message was sent by the bot itself
func (b *Backend) IsFromSelf(msg *Message) bool {
	type userIDer interface{ UserID() string }
	from, ok := msg.From.(userIDer)
	return ok && from.UserID() == b.UserID()
}

// UserIsTyping publishes a typing indicator for the bot in a channel
func (b *Backend) UserIsTyping(ctx context.Context, channelID, parentID string) error {
	return b.driver.Users().SetTyping(ctx, b.UserID(), channelID, parentID)
}

// ChangePresence pushes a presence update for the bot to the platform
func (b *Backend) ChangePresence(ctx context.Context, status PresenceStatus) error {
	return b.driver.Status().UpdateUserStatus(ctx, b.UserID(), string(status))
}

// PrefixGroupchatReply prefixes the body with the addressee's nick for a
// reply inside a room
func (b *Backend) PrefixGroupchatReply(msg *Message, to *identity.Person) {
	msg.Body = "@" + to.Nick() + ": " + msg.Body
}

// BuildReply constructs the reply skeleton for an inbound message. private
// addresses the sender directly, threaded links the reply under the
// original thread root.
func (b *Backend) BuildReply(msg *Message, body string, private, threaded bool) *Message {
	reply := &Message{
		Body:   body,
		From:   b.botUser,
		Extras: map[string]interface{}{},
	}
	if private {
		reply.To = msg.From
	} else {
		if occupant, ok := msg.From.(*identity.RoomOccupant); ok {
			reply.To = occupant.Room()
		} else {
			reply.To = msg.From
		}
	}
	if threaded {
		rootID, _ := msg.Extras["root_id"].(string)
		if rootID == "" {
			rootID, _ = msg.Extras["id"].(string)
		}
		reply.Extras["root_id"] = rootID
		reply.Parent = msg.Parent
	}
	return reply
}

// Shutdown announces offline presence and ends the platform session
func (b *Backend) Shutdown(ctx context.Context) error {
	if err := b.ChangePresence(ctx, StatusOffline); err != nil {
		return err
	}
	return b.driver.Logout(ctx)
}
