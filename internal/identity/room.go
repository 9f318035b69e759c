package identity

import (
	"context"
	"strings"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

// Session is the slice of the bot session a Room needs: the bot's own
// user id, lazy name/id conversion and access to the platform client.
type Session interface {
	UserID() string
	ChannelNameToID(ctx context.Context, name string) (string, error)
	ChannelIDToName(ctx context.Context, channelID string) (string, error)
	PublicChannels(ctx context.Context) ([]driver.Channel, error)
	Driver() driver.Driver
}

// Room is a platform channel within a team. It is built from either a
// name or a channel id; the missing half is resolved lazily through the
// session, and a name-built room must resolve to a stable id before any
// API call uses it.
type Room struct {
	session Session
	name    string
	id      string
	teamid  string
}

// NewRoom builds a room from a channel name; a leading ~ is stripped
func NewRoom(session Session, name, teamid string) *Room {
	return &Room{
		session: session,
		name:    strings.TrimPrefix(name, "~"),
		teamid:  teamid,
	}
}

// NewRoomFromID builds a room from a known channel id
func NewRoomFromID(session Session, channelid, teamid string) *Room {
	return &Room{
		session: session,
		id:      channelid,
		teamid:  teamid,
	}
}

// TeamID returns the owning team id
func (r *Room) TeamID() string {
	return r.teamid
}

// Name returns the channel name, resolving it from the id on first use.
// A failed resolution logs and yields the raw id as a stand-in.
func (r *Room) Name() string {
	if r.name != "" {
		return r.name
	}
	name, err := r.session.ChannelIDToName(context.Background(), r.id)
	if err != nil {
		logger.WithField("channel_id", r.id).WithError(err).Error("cannot-resolve-channel-name")
		return r.id
	}
	r.name = name
	return r.name
}

// ID resolves the stable channel id. Rooms built from a name resolve it
// here on first use; failure is a RoomDoesNotExistError.
func (r *Room) ID(ctx context.Context) (string, error) {
	if r.id != "" {
		return r.id, nil
	}
	id, err := r.session.ChannelNameToID(ctx, r.name)
	if err != nil {
		return "", err
	}
	r.id = id
	return r.id, nil
}

// String renders the room as ~name
func (r *Room) String() string {
	return "~" + r.Name()
}

// Equal reports whether both rooms resolve to the same channel id
func (r *Room) Equal(ctx context.Context, other *Room) bool {
	if other == nil {
		return false
	}
	id, err := r.ID(ctx)
	if err != nil {
		return false
	}
	otherID, err := other.ID(ctx)
	if err != nil {
		return false
	}
	return id == otherID
}

// channel fetches the channel record by name
func (r *Room) channel(ctx context.Context) (*driver.Channel, error) {
	channel, err := r.session.Driver().Channels().GetChannelByName(ctx, r.teamid, r.Name())
	if err != nil {
		return nil, &RoomDoesNotExistError{Room: r.Name(), Reason: err.Error()}
	}
	return channel, nil
}

// Private reports whether the channel is a private one
func (r *Room) Private(ctx context.Context) (bool, error) {
	channel, err := r.channel(ctx)
	if err != nil {
		return false, err
	}
	return channel.Type == "P", nil
}

// Topic returns the channel header, empty when unset
func (r *Room) Topic(ctx context.Context) (string, error) {
	channel, err := r.channel(ctx)
	if err != nil {
		return "", err
	}
	return channel.Header, nil
}

// SetTopic updates the channel header
func (r *Room) SetTopic(ctx context.Context, topic string) error {
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	_, err = r.session.Driver().Channels().UpdateChannel(ctx, driver.ChannelPatch{ID: id, Header: topic})
	return err
}

// Purpose returns the channel purpose, empty when unset
func (r *Room) Purpose(ctx context.Context) (string, error) {
	channel, err := r.channel(ctx)
	if err != nil {
		return "", err
	}
	return channel.Purpose, nil
}

// SetPurpose updates the channel purpose
func (r *Room) SetPurpose(ctx context.Context, purpose string) error {
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	_, err = r.session.Driver().Channels().UpdateChannel(ctx, driver.ChannelPatch{ID: id, Purpose: purpose})
	return err
}

// Exists reports whether the channel can be seen by the bot, joined or not
func (r *Room) Exists(ctx context.Context) (bool, error) {
	channels, err := r.session.Driver().Channels().GetChannelsForUser(ctx, "me", r.teamid)
	if err != nil {
		return false, err
	}
	public, err := r.session.PublicChannels(ctx)
	if err != nil {
		return false, err
	}
	for _, channel := range append(channels, public...) {
		if channel.Name == r.Name() {
			return true, nil
		}
	}
	return false, nil
}

// Joined reports whether the bot is a member of the channel
func (r *Room) Joined(ctx context.Context) (bool, error) {
	channels, err := r.session.Driver().Channels().GetChannelsForUser(ctx, "me", r.teamid)
	if err != nil {
		return false, err
	}
	for _, channel := range channels {
		if channel.Name == r.Name() {
			return true, nil
		}
	}
	return false, nil
}

// Occupants lists every member of the room as a RoomOccupant
func (r *Room) Occupants(ctx context.Context) ([]*RoomOccupant, error) {
	id, err := r.ID(ctx)
	if err != nil {
		return nil, err
	}
	channels := r.session.Driver().Channels()
	stats, err := channels.GetChannelStats(ctx, id)
	if err != nil {
		return nil, err
	}

	var occupants []*RoomOccupant
	for page := 0; page*constants.UserPageLimit < stats.MemberCount; page++ {
		members, err := channels.GetChannelMembers(ctx, id, page, constants.UserPageLimit)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			person := NewPerson(r.session.Driver().Users(), member.UserID, id, r.teamid)
			occupants = append(occupants, NewRoomOccupant(person, r))
		}
	}
	return occupants, nil
}

// Create creates the channel, public by default
func (r *Room) Create(ctx context.Context, private bool) error {
	channelType := "O"
	if private {
		logger.Infof("Creating private group %s", r.String())
		channelType = "P"
	} else {
		logger.Infof("Creating public channel %s", r.String())
	}
	channel, err := r.session.Driver().Channels().CreateChannel(ctx, driver.ChannelCreate{
		TeamID:      r.teamid,
		Name:        r.name,
		DisplayName: r.name,
		Type:        channelType,
	})
	if err != nil {
		return &RoomError{Op: "create", Room: r.Name(), Err: err}
	}
	r.id = channel.ID
	return nil
}

// Join adds the bot to the channel, creating it first when it does not
// exist. Creation through this path is always public.
func (r *Room) Join(ctx context.Context) error {
	exists, err := r.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.Infof("Channel %s doesn't seem to exist, trying to create it.", r.String())
		if err := r.Create(ctx, false); err != nil {
			return err
		}
	}
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Joining channel %s (%s)", r.String(), id)
	if err := r.session.Driver().Channels().AddChannelMember(ctx, id, r.session.UserID()); err != nil {
		return &RoomError{Op: "join", Room: r.Name(), Err: err}
	}
	return nil
}

// Leave removes the bot from the channel
func (r *Room) Leave(ctx context.Context) error {
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Leaving channel %s (%s)", r.String(), id)
	if err := r.session.Driver().Channels().RemoveChannelMember(ctx, id, r.session.UserID()); err != nil {
		return &RoomError{Op: "leave", Room: r.Name(), Err: err}
	}
	return nil
}

// Destroy archives the channel
func (r *Room) Destroy(ctx context.Context) error {
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	if err := r.session.Driver().Channels().DeleteChannel(ctx, id); err != nil {
		logger.Debug("Could not delete the channel. Are you a member of the channel?")
		return &RoomError{Op: "destroy", Room: r.Name(), Err: err}
	}
	r.id = ""
	return nil
}

// Invite adds the named users to the channel. Every name must belong to a
// team member not already in the channel.
func (r *Room) Invite(ctx context.Context, usernames ...string) error {
	id, err := r.ID(ctx)
	if err != nil {
		return err
	}
	d := r.session.Driver()
	stats, err := d.Teams().GetTeamStats(ctx, r.teamid)
	if err != nil {
		return err
	}

	candidates := map[string]string{}
	for page := 0; page*constants.UserPageLimit < stats.TotalMemberCount; page++ {
		users, err := d.Users().GetUsers(ctx, driver.UserListOptions{
			Page:         page,
			PerPage:      constants.UserPageLimit,
			InTeam:       r.teamid,
			NotInChannel: id,
		})
		if err != nil {
			return err
		}
		for _, user := range users {
			candidates[user.Username] = user.ID
		}
	}

	for _, username := range usernames {
		userID, ok := candidates[username]
		if !ok {
			return &UserDoesNotExistError{Name: username}
		}
		logger.Infof("Inviting %s into %s (%s)", username, r.String(), id)
		if err := d.Channels().AddChannelMember(ctx, id, userID); err != nil {
			return &RoomError{Op: "invite " + username, Room: r.Name(), Err: err}
		}
	}
	return nil
}
