package backend

import (
	"encoding/json"
	"fmt"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// postSystemAddRemove marks system notices about members joining or
// leaving; they are not user messages
const postSystemAddRemove = "system_add_remove"

type postPayload struct {
	ID      string   `json:"id"`
	Message string   `json:"message"`
	UserID  string   `json:"user_id"`
	RootID  string   `json:"root_id"`
	Type    string   `json:"type"`
	FileIDs []string `json:"file_ids"`
}

type postedEvent struct {
	TeamID      string       `json:"team_id"`
	ChannelID   string       `json:"channel_id"`
	ChannelType string       `json:"channel_type"`
	ChannelName string       `json:"channel_name"`
	UserID      string       `json:"user_id"`
	Mentions    []string     `json:"mentions"`
	Post        *postPayload `json:"post"`
}

// postedHandler turns a "posted" event into the framework's message
// callback, plus the mention callback when the message carried mentions.
// Any failure discards the event completely: no partial callbacks fire.
func (b *Backend) postedHandler(payload []byte) error {
	var data postedEvent
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("failed to decode posted event: %w", err)
	}

	// In some cases (direct messages) team_id is an empty string
	if data.TeamID != "" && data.TeamID != b.teamID {
		logger.Infof("Message came from another team (%s), ignoring...", data.TeamID)
		return nil
	}

	if data.ChannelID == "" {
		return fmt.Errorf("couldn't find a channelid for event %s", payload)
	}

	channel := data.ChannelName
	if data.ChannelType == "D" {
		channel = data.ChannelID
	}

	var text, postID, rootID string
	var fileIDs []string
	userID := ""

	if data.Post != nil {
		if data.Post.Type == postSystemAddRemove {
			logger.Info("Ignoring message from System")
			return nil
		}
		text = data.Post.Message
		userID = data.Post.UserID
		postID = data.Post.ID
		rootID = data.Post.RootID
		fileIDs = data.Post.FileIDs
	}

	if data.UserID != "" {
		userID = data.UserID
	}
	if userID == "" {
		return fmt.Errorf("no userid in event %s", payload)
	}

	mentions, err := b.buildMentions(data.Mentions)
	if err != nil {
		return fmt.Errorf("failed to resolve mentions: %w", err)
	}

	ctx := b.eventCtx()

	var parent *driver.Post
	if rootID != "" {
		post, err := b.driver.Posts().GetPost(ctx, rootID)
		if err != nil {
			return fmt.Errorf("failed to fetch thread root %s: %w", rootID, err)
		}
		parent = post
	}

	opts := b.driver.Options()
	msg := &Message{
		Body:   text,
		Parent: parent,
		Extras: map[string]interface{}{
			"id":        postID,
			"root_id":   rootID,
			"raw_event": json.RawMessage(payload),
			"permalink_url": fmt.Sprintf("%s://%s:%d/%s/pl/%s",
				opts.Scheme, opts.URL, opts.Port, b.opts.Team, postID),
		},
	}
	if len(fileIDs) > 0 {
		msg.Extras["attachments"] = fileIDs
	}

	if data.ChannelType == "D" {
		msg.From = identity.NewPerson(b.driver.Users(), userID, data.ChannelID, b.teamID)
		msg.To = identity.NewPerson(b.driver.Users(), b.UserID(), data.ChannelID, b.teamID)
	} else {
		room := identity.NewRoom(b, channel, b.teamID)
		occupantRoom := identity.NewRoomFromID(b, data.ChannelID, b.teamID)
		person := identity.NewPerson(b.driver.Users(), userID, data.ChannelID, b.teamID)
		msg.From = identity.NewRoomOccupant(person, occupantRoom)
		msg.To = room
	}

	b.callbacks.OnMessage(msg)

	if len(mentions) > 0 {
		b.callbacks.OnMention(msg, mentions)
	}
	return nil
}

type statusChangeEvent struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// statusChangeHandler maps a platform status string to a canonical
// presence state. Unknown statuses log an error and fall back to online
// rather than being coerced silently.
func (b *Backend) statusChangeHandler(payload []byte) error {
	var data statusChangeEvent
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("failed to decode status_change event: %w", err)
	}

	id := identity.NewPerson(b.driver.Users(), data.UserID, "", "")

	var status PresenceStatus
	switch data.Status {
	case "online":
		status = StatusOnline
	case "away":
		status = StatusAway
	case "offline":
		status = StatusOffline
	case "dnd":
		status = StatusDND
	default:
		logger.Errorf("It appears the kChat API changed, I received an unknown status type %s", data.Status)
		status = StatusOnline
	}

	b.callbacks.OnPresence(id, status)
	return nil
}

// helloHandler runs once the event stream subscription is acknowledged:
// the session is connected, the bot announces itself online.
func (b *Backend) helloHandler(payload []byte) error {
	b.callbacks.OnConnected()
	b.callbacks.OnPresence(b.botUser, StatusOnline)
	return b.ChangePresence(b.eventCtx(), StatusOnline)
}

type membershipEvent struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

// roomJoinedHandler fires the room-joined callback when the bot itself
// was added to a channel; other members' transitions are not tracked
func (b *Backend) roomJoinedHandler(payload []byte) error {
	logger.Debug("User added to channel")
	var data membershipEvent
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("failed to decode user_added event: %w", err)
	}
	if data.UserID != b.UserID() {
		return nil
	}
	b.callbacks.OnRoomJoined(identity.NewRoomFromID(b, data.ChannelID, b.teamID))
	return nil
}

// roomLeftHandler mirrors roomJoinedHandler for removals
func (b *Backend) roomLeftHandler(payload []byte) error {
	logger.Debug("User removed from channel")
	var data membershipEvent
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("failed to decode user_removed event: %w", err)
	}
	if data.UserID != b.UserID() {
		return nil
	}
	b.callbacks.OnRoomLeft(identity.NewRoomFromID(b, data.ChannelID, b.teamID))
	return nil
}
