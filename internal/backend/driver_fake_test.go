package backend

import (
	"context"
	"io"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
)

// fakeDriver implements the capability surface with overridable function
// fields so each test wires only the calls it cares about
type fakeDriver struct {
	opts driver.Options

	users    *fakeUsers
	teams    *fakeTeams
	channels *fakeChannels
	posts    *fakePosts
	files    *fakeFiles
	status   *fakeStatus

	loginErr  error
	logoutErr error

	initWebsocket func(handler driver.EventHandler) (driver.RunLoop, error)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		opts: driver.Options{
			Scheme: "https",
			URL:    "kchat.example.com",
			Port:   443,
		},
		users:    &fakeUsers{},
		teams:    &fakeTeams{},
		channels: &fakeChannels{},
		posts:    &fakePosts{},
		files:    &fakeFiles{},
		status:   &fakeStatus{},
	}
}

func (d *fakeDriver) Login(ctx context.Context) error  { return d.loginErr }
func (d *fakeDriver) Logout(ctx context.Context) error { return d.logoutErr }
func (d *fakeDriver) Options() driver.Options          { return d.opts }

func (d *fakeDriver) Teams() driver.TeamService       { return d.teams }
func (d *fakeDriver) Users() driver.UserService       { return d.users }
func (d *fakeDriver) Channels() driver.ChannelService { return d.channels }
func (d *fakeDriver) Posts() driver.PostService       { return d.posts }
func (d *fakeDriver) Files() driver.FileService       { return d.files }
func (d *fakeDriver) Status() driver.StatusService    { return d.status }

func (d *fakeDriver) InitWebsocket(ctx context.Context, teamID, teamUserID string, handler driver.EventHandler) (driver.RunLoop, error) {
	if d.initWebsocket != nil {
		return d.initWebsocket(handler)
	}
	return &fakeRunLoop{}, nil
}

// fakeRunLoop replays scripted frames through the event handler and then
// returns
type fakeRunLoop struct {
	frames  [][]byte
	err     error
	handler driver.EventHandler

	stopped bool
}

func (l *fakeRunLoop) Run(ctx context.Context) error {
	for _, frame := range l.frames {
		l.handler(frame)
	}
	return l.err
}

func (l *fakeRunLoop) Stop() { l.stopped = true }

type fakeTeams struct {
	getTeamByName func(name string) (*driver.Team, error)
	getTeamStats  func(teamID string) (*driver.TeamStats, error)
}

func (f *fakeTeams) GetTeamByName(ctx context.Context, name string) (*driver.Team, error) {
	if f.getTeamByName != nil {
		return f.getTeamByName(name)
	}
	return &driver.Team{ID: "team1", Name: name}, nil
}

func (f *fakeTeams) GetTeamStats(ctx context.Context, teamID string) (*driver.TeamStats, error) {
	if f.getTeamStats != nil {
		return f.getTeamStats(teamID)
	}
	return &driver.TeamStats{TeamID: teamID}, nil
}

type fakeUsers struct {
	getUser           func(userID string) (*driver.User, error)
	getUserByUsername func(username string) (*driver.User, error)
	getUsers          func(opts driver.UserListOptions) ([]driver.User, error)
	typingCalls       []string
}

func (f *fakeUsers) GetUser(ctx context.Context, userID string) (*driver.User, error) {
	if f.getUser != nil {
		return f.getUser(userID)
	}
	return &driver.User{ID: userID, Username: "user-" + userID}, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*driver.User, error) {
	if f.getUserByUsername != nil {
		return f.getUserByUsername(username)
	}
	return &driver.User{ID: "id-" + username, Username: username}, nil
}

func (f *fakeUsers) GetUsers(ctx context.Context, opts driver.UserListOptions) ([]driver.User, error) {
	if f.getUsers != nil {
		return f.getUsers(opts)
	}
	return nil, nil
}

func (f *fakeUsers) SetTyping(ctx context.Context, userID, channelID, parentID string) error {
	f.typingCalls = append(f.typingCalls, channelID)
	return nil
}

type fakeChannels struct {
	getChannel          func(channelID string) (*driver.Channel, error)
	getChannelByName    func(teamID, name string) (*driver.Channel, error)
	getChannelsForUser  func(userID, teamID string) ([]driver.Channel, error)
	getPublicChannels   func(teamID string, page, perPage int) ([]driver.Channel, error)
	createDirectChannel func(userID, otherUserID string) (*driver.Channel, error)

	directCalls int
}

func (f *fakeChannels) GetChannel(ctx context.Context, channelID string) (*driver.Channel, error) {
	if f.getChannel != nil {
		return f.getChannel(channelID)
	}
	return &driver.Channel{ID: channelID, Name: "name-" + channelID, TeamID: "team1", Type: "O"}, nil
}

func (f *fakeChannels) GetChannelByName(ctx context.Context, teamID, name string) (*driver.Channel, error) {
	if f.getChannelByName != nil {
		return f.getChannelByName(teamID, name)
	}
	return &driver.Channel{ID: "id-" + name, Name: name, TeamID: teamID, Type: "O"}, nil
}

func (f *fakeChannels) GetChannelsForUser(ctx context.Context, userID, teamID string) ([]driver.Channel, error) {
	if f.getChannelsForUser != nil {
		return f.getChannelsForUser(userID, teamID)
	}
	return nil, nil
}

func (f *fakeChannels) GetPublicChannels(ctx context.Context, teamID string, page, perPage int) ([]driver.Channel, error) {
	if f.getPublicChannels != nil {
		return f.getPublicChannels(teamID, page, perPage)
	}
	return nil, nil
}

func (f *fakeChannels) GetChannelMembers(ctx context.Context, channelID string, page, perPage int) ([]driver.ChannelMember, error) {
	return nil, nil
}

func (f *fakeChannels) GetChannelStats(ctx context.Context, channelID string) (*driver.ChannelStats, error) {
	return &driver.ChannelStats{ChannelID: channelID}, nil
}

func (f *fakeChannels) CreateChannel(ctx context.Context, create driver.ChannelCreate) (*driver.Channel, error) {
	return &driver.Channel{ID: "id-" + create.Name, Name: create.Name, TeamID: create.TeamID, Type: create.Type}, nil
}

func (f *fakeChannels) UpdateChannel(ctx context.Context, patch driver.ChannelPatch) (*driver.Channel, error) {
	return &driver.Channel{ID: patch.ID, Header: patch.Header, Purpose: patch.Purpose}, nil
}

func (f *fakeChannels) DeleteChannel(ctx context.Context, channelID string) error { return nil }

func (f *fakeChannels) AddChannelMember(ctx context.Context, channelID, userID string) error {
	return nil
}

func (f *fakeChannels) RemoveChannelMember(ctx context.Context, channelID, userID string) error {
	return nil
}

func (f *fakeChannels) CreateDirectChannel(ctx context.Context, userID, otherUserID string) (*driver.Channel, error) {
	f.directCalls++
	if f.createDirectChannel != nil {
		return f.createDirectChannel(userID, otherUserID)
	}
	return &driver.Channel{ID: "dm-" + userID + "-" + otherUserID, Type: "D"}, nil
}

type fakePosts struct {
	createPost func(req driver.PostRequest) (*driver.Post, error)
	getPost    func(postID string) (*driver.Post, error)

	created []driver.PostRequest
}

func (f *fakePosts) CreatePost(ctx context.Context, req driver.PostRequest) (*driver.Post, error) {
	if f.createPost != nil {
		post, err := f.createPost(req)
		if err == nil {
			f.created = append(f.created, req)
		}
		return post, err
	}
	f.created = append(f.created, req)
	return &driver.Post{ID: "post", ChannelID: req.ChannelID, Message: req.Message, RootID: req.RootID}, nil
}

func (f *fakePosts) GetPost(ctx context.Context, postID string) (*driver.Post, error) {
	if f.getPost != nil {
		return f.getPost(postID)
	}
	return &driver.Post{ID: postID}, nil
}

type fakeFiles struct {
	uploadFile func(channelID, filename string, data io.Reader) ([]driver.FileInfo, error)
}

func (f *fakeFiles) UploadFile(ctx context.Context, channelID, filename string, data io.Reader) ([]driver.FileInfo, error) {
	if f.uploadFile != nil {
		return f.uploadFile(channelID, filename, data)
	}
	return []driver.FileInfo{{ID: "file1", Name: filename}}, nil
}

type fakeStatus struct {
	updates []string
}

func (f *fakeStatus) UpdateUserStatus(ctx context.Context, userID, status string) error {
	f.updates = append(f.updates, status)
	return nil
}

// recordingCallbacks captures every framework callback invocation
type recordingCallbacks struct {
	messages     []*Message
	mentionMsgs  []*Message
	mentionLists [][]identity.Identifier
	presences    []presenceRecord
	connected    int
	disconnected int
	joined       []*identity.Room
	left         []*identity.Room
}

type presenceRecord struct {
	id     identity.Identifier
	status PresenceStatus
}

func (c *recordingCallbacks) OnMessage(msg *Message) {
	c.messages = append(c.messages, msg)
}

func (c *recordingCallbacks) OnMention(msg *Message, mentions []identity.Identifier) {
	c.mentionMsgs = append(c.mentionMsgs, msg)
	c.mentionLists = append(c.mentionLists, mentions)
}

func (c *recordingCallbacks) OnPresence(id identity.Identifier, status PresenceStatus) {
	c.presences = append(c.presences, presenceRecord{id: id, status: status})
}

func (c *recordingCallbacks) OnConnected()    { c.connected++ }
func (c *recordingCallbacks) OnDisconnected() { c.disconnected++ }

func (c *recordingCallbacks) OnRoomJoined(room *identity.Room) {
	c.joined = append(c.joined, room)
}

func (c *recordingCallbacks) OnRoomLeft(room *identity.Room) {
	c.left = append(c.left, room)
}

// newTestBackend wires a fake driver into a logged-in session
func newTestBackend(d *fakeDriver) (*Backend, *recordingCallbacks) {
	callbacks := &recordingCallbacks{}
	b := New(d, Options{Team: "myteam"}, callbacks)
	b.teamID = "team1"
	b.botUser = identity.NewPerson(d.Users(), "botid", "", "team1")
	return b, callbacks
}
