// Package driver defines the capability surface of the kChat platform
// client: login, the resource sub-clients (teams, users, channels, posts,
// files, status) and the websocket event loop entry point.
//
// The backend depends only on the interfaces in this file. A default
// HTTP/websocket binding lives in rest.go and websocket.go; tests supply
// fakes.
package driver

import (
	"context"
	"io"
	"time"
)

// Options holds the connection settings of a driver instance. Scheme, URL
// and Port are also consumed by the backend when building permalink URLs.
type Options struct {
	Scheme       string
	URL          string
	Port         int
	WebsocketURL string
	Token        string
	LoginID      string
	Password     string
	MFAToken     string
	Insecure     bool
	Timeout      time.Duration
}

// User is a platform user record
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Team is a platform team record
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a platform channel record. Type is "O" (public), "P"
// (private), "D" (direct) or "G" (group).
type Channel struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Header      string `json:"header"`
	Purpose     string `json:"purpose"`
}

// ChannelMember is one membership row of a channel
type ChannelMember struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// ChannelStats carries the member count of a channel
type ChannelStats struct {
	ChannelID   string `json:"channel_id"`
	MemberCount int    `json:"member_count"`
}

// TeamStats carries the member count of a team
type TeamStats struct {
	TeamID           string `json:"team_id"`
	TotalMemberCount int    `json:"total_member_count"`
}

// Post is a platform message record
type Post struct {
	ID        string   `json:"id"`
	ChannelID string   `json:"channel_id"`
	UserID    string   `json:"user_id"`
	RootID    string   `json:"root_id"`
	Message   string   `json:"message"`
	Type      string   `json:"type"`
	FileIDs   []string `json:"file_ids,omitempty"`
}

// PostRequest is the payload of a post creation call
type PostRequest struct {
	ChannelID   string        `json:"channel_id"`
	Message     string        `json:"message,omitempty"`
	RootID      string        `json:"root_id,omitempty"`
	Attachments []interface{} `json:"attachments,omitempty"`
}

// FileInfo describes one uploaded file
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelCreate is the payload of a channel creation call
type ChannelCreate struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// ChannelPatch updates header or purpose of a channel
type ChannelPatch struct {
	ID      string `json:"id"`
	Header  string `json:"header,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// UserListOptions filters a paged user listing
type UserListOptions struct {
	Page         int
	PerPage      int
	InTeam       string
	NotInChannel string
}

// TeamService resolves teams
type TeamService interface {
	GetTeamByName(ctx context.Context, name string) (*Team, error)
	GetTeamStats(ctx context.Context, teamID string) (*TeamStats, error)
}

// UserService resolves users. GetUser accepts "me" for the session's own
// user.
type UserService interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUsers(ctx context.Context, opts UserListOptions) ([]User, error)
	SetTyping(ctx context.Context, userID, channelID, parentID string) error
}

// ChannelService covers channel lookup, membership and direct channels
type ChannelService interface {
	GetChannel(ctx context.Context, channelID string) (*Channel, error)
	GetChannelByName(ctx context.Context, teamID, name string) (*Channel, error)
	GetChannelsForUser(ctx context.Context, userID, teamID string) ([]Channel, error)
	GetPublicChannels(ctx context.Context, teamID string, page, perPage int) ([]Channel, error)
	GetChannelMembers(ctx context.Context, channelID string, page, perPage int) ([]ChannelMember, error)
	GetChannelStats(ctx context.Context, channelID string) (*ChannelStats, error)
	CreateChannel(ctx context.Context, create ChannelCreate) (*Channel, error)
	UpdateChannel(ctx context.Context, patch ChannelPatch) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	AddChannelMember(ctx context.Context, channelID, userID string) error
	RemoveChannelMember(ctx context.Context, channelID, userID string) error
	CreateDirectChannel(ctx context.Context, userID, otherUserID string) (*Channel, error)
}

// PostService creates and fetches posts
type PostService interface {
	CreatePost(ctx context.Context, req PostRequest) (*Post, error)
	GetPost(ctx context.Context, postID string) (*Post, error)
}

// FileService uploads files to a channel
type FileService interface {
	UploadFile(ctx context.Context, channelID, filename string, data io.Reader) ([]FileInfo, error)
}

// StatusService updates user presence
type StatusService interface {
	UpdateUserStatus(ctx context.Context, userID, status string) error
}

// EventHandler receives one raw decoded websocket frame per call
type EventHandler func(payload []byte)

// RunLoop is the controllable event loop returned by InitWebsocket. Run
// blocks until the connection ends or Stop/context cancellation asks it
// to; it is safe to call Stop from another goroutine.
type RunLoop interface {
	Run(ctx context.Context) error
	Stop()
}

// Driver is the full platform capability surface consumed by the backend
type Driver interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Options() Options

	Teams() TeamService
	Users() UserService
	Channels() ChannelService
	Posts() PostService
	Files() FileService
	Status() StatusService

	// InitWebsocket connects the event stream, subscribes to the team
	// and user event channels, and returns the run loop that feeds
	// handler one event per frame.
	InitWebsocket(ctx context.Context, teamID, teamUserID string, handler EventHandler) (RunLoop, error)
}
