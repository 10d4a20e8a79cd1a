package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"liver-quiz-service/internal/app"
)

// WSHandler streams one attempt over a websocket and accepts its commands.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	Index *int `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Serve upgrades the request and runs the attempt channel until the client
// leaves or the attempt ends. Every change arrives as a "state" message; a
// change in the save status also emits "submission".
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, sessionID, locale string) {
	ctx := r.Context()
	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// The writer goroutine is the only one touching conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var lastStatus app.SubmissionStatus
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// Attempt ended; unblock the reader.
					_ = conn.Close()
					return
				}
				snap = localize(snap, locale)
				msgs := []outboundMessage{{Type: "state", Payload: snap}}
				if lastStatus != "" && snap.Submission.Status != lastStatus {
					msgs = append(msgs, outboundMessage{Type: "submission", Payload: snap.Submission})
				}
				lastStatus = snap.Submission.Status
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-updatesDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, sessionID, inbound); err != nil {
			reply(outboundMessage{Type: "error", Payload: errorPayload(locale, err)})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

var (
	errBadPayload  = errors.New("invalid answer payload")
	errUnsupported = errors.New("unsupported message type")
)

// dispatch applies one command. Successful commands answer through the
// subscription, so only failures are returned.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, msg inboundMessage) error {
	var err error
	switch msg.Type {
	case "answer":
		var payload wsAnswerPayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil || payload.Index == nil {
			return errBadPayload
		}
		_, err = h.service.Answer(ctx, sessionID, *payload.Index)
	case "advance":
		_, err = h.service.Advance(ctx, sessionID)
	case "restart":
		_, err = h.service.Restart(ctx, sessionID)
	case "retry":
		_, err = h.service.RetrySubmission(ctx, sessionID)
	default:
		return errUnsupported
	}
	return err
}
