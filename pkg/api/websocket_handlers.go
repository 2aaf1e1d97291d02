package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall"

	"github.com/gofiber/contrib/websocket"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// ErrBadJoyMessage marks a websocket message that cannot become a sample
var ErrBadJoyMessage = errors.New("invalid joy message")

// JoySink accepts samples without blocking
type JoySink interface {
	Enqueue(j teleop.Joy) bool
}

// JoyWebSocketHandler reads JSON Joy messages from a browser gamepad and
// enqueues each valid one.
func JoyWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, sink JoySink, minAxes int) {
	logger.Infof("Joy WebSocket connected: %s", conn.RemoteAddr())
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("Joy WS read error: %v", err)
			} else if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("Joy WS connection closed normally.")
			} else {
				logger.Infof("Joy WS connection closed: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Joy WS message type: %d", mt)
			continue
		}

		joy, err := decodeJoyMessage(msg, minAxes)
		if err != nil {
			logger.Warnf("Skipping joy message: %v", err)
			continue
		}
		if !sink.Enqueue(joy) {
			logger.Warnf("Joy sample rejected, input queue is not running")
		}
	}
	logger.Infof("Joy WebSocket disconnected: %s", conn.RemoteAddr())
}

// decodeJoyMessage rejects samples shorter than minAxes; the bridge panics on them.
func decodeJoyMessage(msg []byte, minAxes int) (teleop.Joy, error) {
	var joy teleop.Joy
	if err := json.Unmarshal(msg, &joy); err != nil {
		return teleop.Joy{}, fmt.Errorf("%w: %v", ErrBadJoyMessage, err)
	}
	if len(joy.Axes) < minAxes {
		return teleop.Joy{}, fmt.Errorf("%w: %d axes, need %d", ErrBadJoyMessage, len(joy.Axes), minAxes)
	}
	return joy, nil
}
