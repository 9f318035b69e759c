package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Infomaniak/err-backend-kchat/internal/chunk"
	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/identity"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// colors maps card color names to kChat color codes; unknown names fall
// through as literal codes
var colors = map[string]string{
	"white":  "#FFFFFF",
	"cyan":   "#00FFFF",
	"blue":   "#0000FF",
	"red":    "#FF0000",
	"green":  "#008000",
	"yellow": "#FFA500",
}

// OutboundMessage is a framework send request
type OutboundMessage struct {
	To     identity.Identifier
	Body   string
	RootID string
}

// CardField is one short key/value entry of a card
type CardField struct {
	Title string
	Value string
}

// Card is a rich message rendered as a single platform attachment
type Card struct {
	To        identity.Identifier
	Summary   string
	Title     string
	Link      string
	Image     string
	Thumbnail string
	Body      string
	Color     string
	Fields    []CardField
}

// SendOutcome is the result of a best-effort send. A recognized platform
// fault does not propagate as an error: it is logged, recorded here, and
// the framework layer above is never blocked by a failed send.
type SendOutcome struct {
	// PostIDs are the ids of the created posts, in chunk order
	PostIDs []string
	// Fault is the recoverable platform fault that stopped delivery,
	// nil when everything was delivered
	Fault *driver.APIError
}

// Delivered reports whether every part reached the platform
func (o SendOutcome) Delivered() bool {
	return o.Fault == nil
}

// sendFaultKinds are the platform faults absorbed by message sends
var sendFaultKinds = []driver.FaultKind{
	driver.FaultInvalidOrMissingParameters,
	driver.FaultNotEnoughPermissions,
}

// cardFaultKinds additionally covers the faults card posts can hit
var cardFaultKinds = append([]driver.FaultKind{
	driver.FaultContentTooLarge,
	driver.FaultFeatureDisabled,
	driver.FaultNoAccessToken,
}, sendFaultKinds...)

// prepareMessage resolves the destination of an outbound request: the
// room's channel for group messages, the direct channel for persons, and
// for a RoomOccupant target an explicitly fetched direct channel — the
// divert-to-private path.
func (b *Backend) prepareMessage(ctx context.Context, to identity.Identifier) (name, channelID string, err error) {
	switch target := to.(type) {
	case *identity.Room:
		id, err := target.ID(ctx)
		if err != nil {
			return "", "", err
		}
		return target.Name(), id, nil
	case *identity.RoomOccupant:
		// Private reply to someone who spoke in a room: override the
		// room destination with a direct channel
		logger.Debug("This is a divert to private message, sending it directly to the user.")
		username := target.Username()
		userID, err := b.UsernameToUserID(ctx, username)
		if err != nil {
			return "", "", err
		}
		channel, err := b.GetDirectChannel(ctx, b.UserID(), userID)
		if err != nil {
			return "", "", err
		}
		return username, channel.ID, nil
	case *identity.Person:
		return target.Username(), target.ChannelID(), nil
	default:
		return "", "", fmt.Errorf("unsupported send destination %T", to)
	}
}

// SendMessage renders, chunks and posts an outbound message. Multi-part
// bodies are posted in chunk order under the same thread root so the
// platform renders them as sequential replies. Recognized platform
// faults are absorbed into the outcome; anything else is returned.
func (b *Backend) SendMessage(ctx context.Context, msg OutboundMessage) (SendOutcome, error) {
	toName, toChannelID, err := b.prepareMessage(ctx, msg.To)
	if err != nil {
		return SendOutcome{}, err
	}

	body := b.opts.Renderer(msg.Body)
	logger.Debugf("Sending message to %s (%s), size: %d", toName, toChannelID, len(body))

	parts := chunk.Chunk(body, b.opts.MessageSizeLimit)

	var outcome SendOutcome
	for _, part := range parts {
		post, err := b.driver.Posts().CreatePost(ctx, driver.PostRequest{
			ChannelID: toChannelID,
			Message:   part,
			RootID:    msg.RootID,
		})
		if err != nil {
			if driver.IsFault(err, sendFaultKinds...) {
				apiErr, _ := driver.AsAPIError(err)
				logger.WithFields(logrus.Fields{
					"to":   toName,
					"body": msg.Body,
				}).WithError(err).Error("failed-to-send-message")
				outcome.Fault = apiErr
				return outcome, nil
			}
			return outcome, err
		}
		outcome.PostIDs = append(outcome.PostIDs, post.ID)
	}
	return outcome, nil
}

// SendCard posts a card as a single-attachment post. A card addressed to
// a RoomOccupant goes to the occupant's room, not to a direct channel.
func (b *Backend) SendCard(ctx context.Context, card Card) (SendOutcome, error) {
	to := card.To
	if occupant, ok := to.(*identity.RoomOccupant); ok {
		to = occupant.Room()
	}

	toName, toChannelID, err := b.prepareMessage(ctx, to)
	if err != nil {
		return SendOutcome{}, err
	}

	attachment := map[string]interface{}{
		"text": card.Body,
	}
	if card.Summary != "" {
		attachment["pretext"] = card.Summary
	}
	if card.Title != "" {
		attachment["title"] = card.Title
	}
	if card.Link != "" {
		attachment["title_link"] = card.Link
	}
	if card.Image != "" {
		attachment["image_url"] = card.Image
	}
	if card.Thumbnail != "" {
		attachment["thumb_url"] = card.Thumbnail
	}
	if card.Color != "" {
		color, ok := colors[card.Color]
		if !ok {
			color = card.Color
		}
		attachment["color"] = color
	}
	if len(card.Fields) > 0 {
		fields := make([]map[string]interface{}, 0, len(card.Fields))
		for _, field := range card.Fields {
			fields = append(fields, map[string]interface{}{
				"title": field.Title,
				"value": field.Value,
				"short": true,
			})
		}
		attachment["fields"] = fields
	}

	post, err := b.driver.Posts().CreatePost(ctx, driver.PostRequest{
		ChannelID:   toChannelID,
		Attachments: []interface{}{attachment},
	})
	if err != nil {
		if driver.IsFault(err, cardFaultKinds...) {
			apiErr, _ := driver.AsAPIError(err)
			logger.WithFields(logrus.Fields{
				"to":    toName,
				"title": card.Title,
			}).WithError(err).Error("failed-to-send-card")
			return SendOutcome{Fault: apiErr}, nil
		}
		return SendOutcome{}, err
	}
	return SendOutcome{PostIDs: []string{post.ID}}, nil
}

// StreamStatus is the state of a file transfer
type StreamStatus string

const (
	StreamPending  StreamStatus = "pending"
	StreamAccepted StreamStatus = "accepted"
	StreamSuccess  StreamStatus = "success"
	StreamError    StreamStatus = "error"
)

// Stream is one file transfer request and its progress. Size and
// StreamType hints are accepted by the contract but kChat's upload call
// does not honor them; they are kept for logging only.
type Stream struct {
	ID         string
	To         identity.Identifier
	Name       string
	Source     io.Reader
	Size       int64
	StreamType string

	Status StreamStatus
	FileID string
}

// SendStream uploads a file to the destination's channel and tracks the
// transfer state on the returned Stream: accepted before the upload call,
// then success with the platform file id or error.
func (b *Backend) SendStream(ctx context.Context, to identity.Identifier, source io.Reader, name string, size int64, streamType string) *Stream {
	stream := &Stream{
		ID:         uuid.NewString(),
		To:         to,
		Name:       name,
		Source:     source,
		Size:       size,
		StreamType: streamType,
		Status:     StreamPending,
	}

	channelID := ""
	switch target := to.(type) {
	case *identity.Person:
		channelID = target.ChannelID()
	case *identity.RoomOccupant:
		channelID = target.Room().Name()
		if id, err := target.Room().ID(ctx); err == nil {
			channelID = id
		}
	case *identity.Room:
		if id, err := target.ID(ctx); err == nil {
			channelID = id
		}
	}

	logger.Debugf("Requesting upload of %s to %s (size hint: %d, stream type: %s).",
		name, channelID, size, streamType)

	b.upload(ctx, stream, channelID)
	return stream
}

// upload performs the transfer and moves the stream through its states
func (b *Backend) upload(ctx context.Context, stream *Stream, channelID string) {
	stream.Status = StreamAccepted

	infos, err := b.driver.Files().UploadFile(ctx, channelID, stream.Name, stream.Source)
	if err != nil || len(infos) == 0 {
		stream.Status = StreamError
		logger.WithFields(logrus.Fields{
			"stream_id": stream.ID,
			"file":      stream.Name,
			"channel":   channelID,
		}).WithError(err).Error("upload-failed")
		return
	}

	stream.FileID = infos[0].ID
	stream.Status = StreamSuccess
}
