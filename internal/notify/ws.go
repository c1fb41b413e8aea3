package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	clientJoin  = "join-event"
	clientLeave = "leave-event"

	maxDecodeErrors = 5
)

type clientFrame struct {
	Type    string   `json:"type"`
	EventID eventRef `json:"eventId"`
}

// eventRef accepts an event id sent either as a number or a string.
type eventRef int64

func (r *eventRef) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*r = 0
		return nil
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*r = eventRef(id)
	return nil
}

// Handler returns the websocket endpoint. Clients send
// {"type":"join-event","eventId":N} and {"type":"leave-event","eventId":N}.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{Handler: h.serveConn}
}

func (h *Hub) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	// Clear the deadlines the HTTP server set before the upgrade.
	_ = conn.SetDeadline(time.Time{})

	sub := h.Register()
	log := h.log.With(zap.String("session_id", sub.ID))
	log.Debug("websocket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.C() {
			if err := websocket.Message.Send(conn, string(msg)); err != nil {
				_ = conn.Close()
				// Drain until Unregister closes the queue.
				for range sub.C() {
				}
				return
			}
		}
	}()
	defer func() {
		h.Unregister(sub)
		<-done
		log.Debug("websocket disconnected")
	}()

	h.send(sub, Frame{Type: FrameConnected, SessionID: sub.ID})

	decodeErrors := 0
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			decodeErrors++
			h.send(sub, Frame{Type: FrameError, Message: "invalid frame payload"})
			if decodeErrors >= maxDecodeErrors {
				return
			}
			continue
		}
		decodeErrors = 0

		eventID := int64(frame.EventID)
		switch frame.Type {
		case clientJoin:
			if eventID <= 0 {
				h.send(sub, Frame{Type: FrameError, Message: "eventId is required"})
				continue
			}
			h.Join(sub, eventID)
			h.send(sub, Frame{Type: FrameJoined, EventID: eventID})
		case clientLeave:
			h.Leave(sub, eventID)
			h.send(sub, Frame{Type: FrameLeft, EventID: eventID})
		default:
			h.send(sub, Frame{Type: FrameError, Message: "unsupported frame type"})
		}
	}
}
