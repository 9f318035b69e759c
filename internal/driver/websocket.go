package driver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Infomaniak/err-backend-kchat/internal/logger"
	"github.com/Infomaniak/err-backend-kchat/internal/wsloop"
	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

// wsConn adapts a gorilla websocket connection to the wsloop.Conn surface
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, payload, err := w.conn.ReadMessage()
	return payload, err
}

func (w *wsConn) Ping() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// subscribeFrame is the subscription request sent after connecting; the
// event stream only delivers team and user events that were subscribed to
type subscribeFrame struct {
	Event string `json:"event"`
	Data  struct {
		Channel string `json:"channel"`
	} `json:"data"`
}

// InitWebsocket dials the event stream, subscribes to the team and user
// event channels and returns the run loop. The heartbeat interval is the
// configured driver timeout.
func (c *Client) InitWebsocket(ctx context.Context, teamID, teamUserID string, handler EventHandler) (RunLoop, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.Timeout,
	}
	if c.opts.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	wsURL := strings.TrimSuffix(c.opts.WebsocketURL, "/")
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.Token)

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	for _, channel := range []string{
		"private-team." + teamID,
		"presence-user." + teamUserID,
	} {
		frame := subscribeFrame{Event: "pusher:subscribe"}
		frame.Data.Channel = channel
		encoded, err := json.Marshal(frame)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
	}

	heartbeat := c.opts.Timeout
	if heartbeat <= 0 {
		heartbeat = constants.DefaultWebsocketTimeout
	}

	logger.WithFields(logrus.Fields{
		"url":     wsURL,
		"team_id": teamID,
	}).Info("websocket-connected")

	return wsloop.New(&wsConn{conn: conn}, heartbeat, handler), nil
}
