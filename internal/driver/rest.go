package driver

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Infomaniak/err-backend-kchat/internal/logger"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

// Client is the default REST binding of the capability surface. It issues
// plain HTTP calls for exactly the operations the interfaces name and
// carries the bearer token of the session; the login/password/MFA handshake
// of the hosted platform is out of scope, a personal access token is
// expected instead.
type Client struct {
	opts       Options
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a REST client from connection options
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultHTTPTimeout
	}
	transport := http.DefaultTransport
	if opts.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	port := opts.Port
	if port == 0 {
		port = 443
	}
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		baseURL: fmt.Sprintf("%s://%s:%d/api/v4", opts.Scheme, strings.TrimSuffix(opts.URL, "/"), port),
	}
}

// Options returns the connection options the client was built with
func (c *Client) Options() Options {
	return c.opts
}

// Login verifies the access token by fetching the session's own user
func (c *Client) Login(ctx context.Context) error {
	if c.opts.Token == "" {
		return &APIError{Kind: FaultNoAccessToken, Message: "no personal access token configured"}
	}
	if _, err := c.GetUser(ctx, "me"); err != nil {
		return fmt.Errorf("login check failed: %w", err)
	}
	logger.WithField("server", c.opts.URL).Info("logged-in-to-kchat")
	return nil
}

// Logout revokes the active session
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/users/logout", nil, nil)
}

func (c *Client) Teams() TeamService       { return c }
func (c *Client) Users() UserService       { return c }
func (c *Client) Channels() ChannelService { return c }
func (c *Client) Posts() PostService       { return c }
func (c *Client) Files() FileService       { return c }
func (c *Client) Status() StatusService    { return c }

// GetTeamByName resolves a team by its URL name
func (c *Client) GetTeamByName(ctx context.Context, name string) (*Team, error) {
	var team Team
	if err := c.doJSON(ctx, http.MethodGet, "/teams/name/"+url.PathEscape(name), nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// GetTeamStats returns member counts of a team
func (c *Client) GetTeamStats(ctx context.Context, teamID string) (*TeamStats, error) {
	var stats TeamStats
	if err := c.doJSON(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetUser fetches a user by id; "me" resolves the session's own user
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername fetches a user by username
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/users/username/"+url.PathEscape(username), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers lists users with paging and team/channel filters
func (c *Client) GetUsers(ctx context.Context, opts UserListOptions) ([]User, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	query.Set("per_page", strconv.Itoa(opts.PerPage))
	if opts.InTeam != "" {
		query.Set("in_team", opts.InTeam)
	}
	if opts.NotInChannel != "" {
		query.Set("not_in_channel", opts.NotInChannel)
	}
	var users []User
	if err := c.doJSON(ctx, http.MethodGet, "/users?"+query.Encode(), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetTyping publishes a typing indicator in a channel
func (c *Client) SetTyping(ctx context.Context, userID, channelID, parentID string) error {
	body := map[string]string{"channel_id": channelID, "parent_id": parentID}
	return c.doJSON(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/typing", body, nil)
}

// GetChannel fetches a channel by id
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var channel Channel
	if err := c.doJSON(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetChannelByName fetches a channel by name within a team
func (c *Client) GetChannelByName(ctx context.Context, teamID, name string) (*Channel, error) {
	path := "/teams/" + url.PathEscape(teamID) + "/channels/name/" + url.PathEscape(name)
	var channel Channel
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetChannelsForUser lists the channels a user is a member of in a team
func (c *Client) GetChannelsForUser(ctx context.Context, userID, teamID string) ([]Channel, error) {
	path := "/users/" + url.PathEscape(userID) + "/teams/" + url.PathEscape(teamID) + "/channels"
	var channels []Channel
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetPublicChannels lists one page of a team's public channels
func (c *Client) GetPublicChannels(ctx context.Context, teamID string, page, perPage int) ([]Channel, error) {
	path := fmt.Sprintf("/teams/%s/channels?page=%d&per_page=%d", url.PathEscape(teamID), page, perPage)
	var channels []Channel
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetChannelMembers lists one page of a channel's members
func (c *Client) GetChannelMembers(ctx context.Context, channelID string, page, perPage int) ([]ChannelMember, error) {
	path := fmt.Sprintf("/channels/%s/members?page=%d&per_page=%d", url.PathEscape(channelID), page, perPage)
	var members []ChannelMember
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GetChannelStats returns a channel's member count
func (c *Client) GetChannelStats(ctx context.Context, channelID string) (*ChannelStats, error) {
	var stats ChannelStats
	if err := c.doJSON(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID)+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateChannel creates a public or private channel
func (c *Client) CreateChannel(ctx context.Context, create ChannelCreate) (*Channel, error) {
	var channel Channel
	if err := c.doJSON(ctx, http.MethodPost, "/channels", create, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// UpdateChannel patches header or purpose of a channel
func (c *Client) UpdateChannel(ctx context.Context, patch ChannelPatch) (*Channel, error) {
	var channel Channel
	if err := c.doJSON(ctx, http.MethodPut, "/channels/"+url.PathEscape(patch.ID)+"/patch", patch, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// DeleteChannel archives a channel
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), nil, nil)
}

// AddChannelMember adds a user to a channel
func (c *Client) AddChannelMember(ctx context.Context, channelID, userID string) error {
	body := map[string]string{"user_id": userID}
	return c.doJSON(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/members", body, nil)
}

// RemoveChannelMember removes a user from a channel
func (c *Client) RemoveChannelMember(ctx context.Context, channelID, userID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/members/" + url.PathEscape(userID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// CreateDirectChannel fetches or creates the direct channel between two
// users; the call is idempotent on the platform side
func (c *Client) CreateDirectChannel(ctx context.Context, userID, otherUserID string) (*Channel, error) {
	var channel Channel
	if err := c.doJSON(ctx, http.MethodPost, "/channels/direct", []string{userID, otherUserID}, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// CreatePost creates a post, optionally threaded under RootID
func (c *Client) CreatePost(ctx context.Context, req PostRequest) (*Post, error) {
	var post Post
	if err := c.doJSON(ctx, http.MethodPost, "/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost fetches a post by id
func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	var post Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdateUserStatus sets a user's presence status
func (c *Client) UpdateUserStatus(ctx context.Context, userID, status string) error {
	body := map[string]string{"user_id": userID, "status": status}
	return c.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/status", body, nil)
}

// UploadFile posts a multipart upload to a channel and returns the
// platform-assigned file infos
func (c *Client) UploadFile(ctx context.Context, channelID, filename string, data io.Reader) ([]FileInfo, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("channel_id", channelID); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("failed to read upload source: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, c.apiError(resp)
	}

	var uploadResp struct {
		FileInfos []FileInfo `json:"file_infos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return uploadResp.FileInfos, nil
}

// doJSON issues one JSON API call and decodes the response into out when
// out is non-nil
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// apiError converts a non-2xx response into a classified APIError
func (c *Client) apiError(resp *http.Response) error {
	var detail struct {
		Message string `json:"message"`
	}
	message := ""
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(raw, &detail) == nil && detail.Message != "" {
			message = detail.Message
		} else {
			message = strings.TrimSpace(string(raw))
		}
	}
	return &APIError{
		Kind:       kindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
