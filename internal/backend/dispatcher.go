package backend

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// envelope is the common wrapper of every event stream frame
type envelope struct {
	Event string `json:"event"`
}

// RegisterHandler appends a handler to the ordered list for an event
// type. All handlers registered for a type run, in registration order.
func (b *Backend) RegisterHandler(event string, handler Handler) {
	b.handlers[event] = append(b.handlers[event], handler)
}

// HandleEvent decodes one raw frame from the event stream and routes it
// to the handlers registered for its event type. A fault in one handler
// is logged and never stops the remaining handlers or the connection
// loop; unknown event types are ignored for forward compatibility.
func (b *Backend) HandleEvent(payload []byte) {
	if len(payload) == 0 {
		return
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		// Malformed frames are dropped; the connection keeps running
		logger.WithError(err).Error("failed-to-decode-event-payload")
		return
	}
	if env.Event == "" {
		logger.Debugf("Message contains no event: %s", payload)
		return
	}

	handlers, ok := b.handlers[env.Event]
	if !ok {
		logger.Debugf("No event handlers available for %s, ignoring.", env.Event)
		return
	}

	for _, handler := range handlers {
		b.runHandler(env.Event, handler, payload)
	}
}

// runHandler invokes one handler with panic isolation so a handler bug
// cannot take down the connection loop
func (b *Backend) runHandler(event string, handler Handler, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"event": event,
				"panic": r,
			}).Error("event-handler-panicked")
		}
	}()

	if err := handler(payload); err != nil {
		logger.WithFields(logrus.Fields{
			"event": event,
		}).WithError(err).Error("event-handler-failed")
	}
}
