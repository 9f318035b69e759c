package identity

import (
	"context"
	"io"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
)

// stubUsers serves canned user records and counts lookups so tests can
// assert on lazy-fetch caching
type stubUsers struct {
	users map[string]*driver.User
	calls int
}

func (s *stubUsers) GetUser(ctx context.Context, userID string) (*driver.User, error) {
	s.calls++
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return nil, &driver.APIError{Kind: driver.FaultResourceNotFound, StatusCode: 404}
}

func (s *stubUsers) GetUserByUsername(ctx context.Context, username string) (*driver.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, &driver.APIError{Kind: driver.FaultResourceNotFound, StatusCode: 404}
}

func (s *stubUsers) GetUsers(ctx context.Context, opts driver.UserListOptions) ([]driver.User, error) {
	if opts.Page > 0 {
		return nil, nil
	}
	var users []driver.User
	for _, user := range s.users {
		users = append(users, *user)
	}
	return users, nil
}

func (s *stubUsers) SetTyping(ctx context.Context, userID, channelID, parentID string) error {
	return nil
}

// stubChannels keeps an in-memory channel table keyed by id
type stubChannels struct {
	channels map[string]*driver.Channel
	members  map[string][]string

	added   []string
	removed []string
	deleted []string
}

func (s *stubChannels) byName(name string) *driver.Channel {
	for _, channel := range s.channels {
		if channel.Name == name {
			return channel
		}
	}
	return nil
}

func (s *stubChannels) GetChannel(ctx context.Context, channelID string) (*driver.Channel, error) {
	if channel, ok := s.channels[channelID]; ok {
		return channel, nil
	}
	return nil, &driver.APIError{Kind: driver.FaultResourceNotFound, StatusCode: 404}
}

func (s *stubChannels) GetChannelByName(ctx context.Context, teamID, name string) (*driver.Channel, error) {
	if channel := s.byName(name); channel != nil {
		return channel, nil
	}
	return nil, &driver.APIError{Kind: driver.FaultResourceNotFound, StatusCode: 404}
}

func (s *stubChannels) GetChannelsForUser(ctx context.Context, userID, teamID string) ([]driver.Channel, error) {
	var channels []driver.Channel
	for id, members := range s.members {
		for _, member := range members {
			if member == "botid" {
				channels = append(channels, *s.channels[id])
				break
			}
		}
	}
	return channels, nil
}

func (s *stubChannels) GetPublicChannels(ctx context.Context, teamID string, page, perPage int) ([]driver.Channel, error) {
	if page > 0 {
		return nil, nil
	}
	var channels []driver.Channel
	for _, channel := range s.channels {
		if channel.Type == "O" {
			channels = append(channels, *channel)
		}
	}
	return channels, nil
}

func (s *stubChannels) GetChannelMembers(ctx context.Context, channelID string, page, perPage int) ([]driver.ChannelMember, error) {
	if page > 0 {
		return nil, nil
	}
	var members []driver.ChannelMember
	for _, userID := range s.members[channelID] {
		members = append(members, driver.ChannelMember{ChannelID: channelID, UserID: userID})
	}
	return members, nil
}

func (s *stubChannels) GetChannelStats(ctx context.Context, channelID string) (*driver.ChannelStats, error) {
	return &driver.ChannelStats{ChannelID: channelID, MemberCount: len(s.members[channelID])}, nil
}

func (s *stubChannels) CreateChannel(ctx context.Context, create driver.ChannelCreate) (*driver.Channel, error) {
	channel := &driver.Channel{
		ID:     "id-" + create.Name,
		Name:   create.Name,
		TeamID: create.TeamID,
		Type:   create.Type,
	}
	s.channels[channel.ID] = channel
	return channel, nil
}

func (s *stubChannels) UpdateChannel(ctx context.Context, patch driver.ChannelPatch) (*driver.Channel, error) {
	channel, ok := s.channels[patch.ID]
	if !ok {
		return nil, &driver.APIError{Kind: driver.FaultResourceNotFound, StatusCode: 404}
	}
	if patch.Header != "" {
		channel.Header = patch.Header
	}
	if patch.Purpose != "" {
		channel.Purpose = patch.Purpose
	}
	return channel, nil
}

func (s *stubChannels) DeleteChannel(ctx context.Context, channelID string) error {
	s.deleted = append(s.deleted, channelID)
	delete(s.channels, channelID)
	return nil
}

func (s *stubChannels) AddChannelMember(ctx context.Context, channelID, userID string) error {
	s.added = append(s.added, channelID+"/"+userID)
	s.members[channelID] = append(s.members[channelID], userID)
	return nil
}

func (s *stubChannels) RemoveChannelMember(ctx context.Context, channelID, userID string) error {
	s.removed = append(s.removed, channelID+"/"+userID)
	return nil
}

func (s *stubChannels) CreateDirectChannel(ctx context.Context, userID, otherUserID string) (*driver.Channel, error) {
	return &driver.Channel{ID: "dm-" + userID + "-" + otherUserID, Type: "D"}, nil
}

type stubTeams struct {
	memberCount int
}

func (s *stubTeams) GetTeamByName(ctx context.Context, name string) (*driver.Team, error) {
	return &driver.Team{ID: "team1", Name: name}, nil
}

func (s *stubTeams) GetTeamStats(ctx context.Context, teamID string) (*driver.TeamStats, error) {
	return &driver.TeamStats{TeamID: teamID, TotalMemberCount: s.memberCount}, nil
}

type stubPosts struct{}

func (stubPosts) CreatePost(ctx context.Context, req driver.PostRequest) (*driver.Post, error) {
	return &driver.Post{ID: "post"}, nil
}

func (stubPosts) GetPost(ctx context.Context, postID string) (*driver.Post, error) {
	return &driver.Post{ID: postID}, nil
}

type stubFiles struct{}

func (stubFiles) UploadFile(ctx context.Context, channelID, filename string, data io.Reader) ([]driver.FileInfo, error) {
	return nil, nil
}

type stubStatus struct{}

func (stubStatus) UpdateUserStatus(ctx context.Context, userID, status string) error {
	return nil
}

type stubDriver struct {
	users    *stubUsers
	channels *stubChannels
	teams    *stubTeams
}

func (d *stubDriver) Login(ctx context.Context) error  { return nil }
func (d *stubDriver) Logout(ctx context.Context) error { return nil }
func (d *stubDriver) Options() driver.Options          { return driver.Options{} }

func (d *stubDriver) Teams() driver.TeamService       { return d.teams }
func (d *stubDriver) Users() driver.UserService       { return d.users }
func (d *stubDriver) Channels() driver.ChannelService { return d.channels }
func (d *stubDriver) Posts() driver.PostService       { return stubPosts{} }
func (d *stubDriver) Files() driver.FileService       { return stubFiles{} }
func (d *stubDriver) Status() driver.StatusService    { return stubStatus{} }

func (d *stubDriver) InitWebsocket(ctx context.Context, teamID, teamUserID string, handler driver.EventHandler) (driver.RunLoop, error) {
	return nil, nil
}

// stubSession is a minimal Session over the stub driver
type stubSession struct {
	d *stubDriver
}

func newStubSession() *stubSession {
	return &stubSession{
		d: &stubDriver{
			users: &stubUsers{users: map[string]*driver.User{
				"botid": {ID: "botid", Username: "bot"},
				"u1":    {ID: "u1", Username: "alice", FirstName: "Alice", LastName: "Doe", Email: "alice@example.com"},
				"u2":    {ID: "u2", Username: "bob"},
			}},
			channels: &stubChannels{
				channels: map[string]*driver.Channel{
					"chan1": {ID: "chan1", Name: "general", TeamID: "team1", Type: "O", Header: "the topic", Purpose: "the purpose"},
					"chan2": {ID: "chan2", Name: "secrets", TeamID: "team1", Type: "P"},
				},
				members: map[string][]string{
					"chan1": {"botid", "u1"},
				},
			},
			teams: &stubTeams{memberCount: 3},
		},
	}
}

func (s *stubSession) UserID() string { return "botid" }

func (s *stubSession) ChannelNameToID(ctx context.Context, name string) (string, error) {
	if channel := s.d.channels.byName(name); channel != nil {
		return channel.ID, nil
	}
	return "", &RoomDoesNotExistError{Room: name, Reason: "no such channel"}
}

func (s *stubSession) ChannelIDToName(ctx context.Context, channelID string) (string, error) {
	channel, err := s.d.channels.GetChannel(ctx, channelID)
	if err != nil {
		return "", &RoomDoesNotExistError{Room: channelID, Reason: "no such channel"}
	}
	return channel.Name, nil
}

func (s *stubSession) PublicChannels(ctx context.Context) ([]driver.Channel, error) {
	return s.d.channels.GetPublicChannels(ctx, "team1", 0, 200)
}

func (s *stubSession) Driver() driver.Driver { return s.d }
