package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"funky-quizbot/internal/dedup"
	"funky-quizbot/internal/dispatch"
	"funky-quizbot/internal/domain"
	"funky-quizbot/internal/engine"
	"github.com/gorilla/websocket"
)

// ConsoleHandler plays the chat platform over a websocket so the bot can be
// exercised locally without platform credentials. Each connection is one
// conversation: inbound frames become events with an incrementing sequence
// number, outbound engine sends are written back as JSON frames.
type ConsoleHandler struct {
	newDispatcher func(transport engine.Transport) *dispatch.Dispatcher
	upgrader      websocket.Upgrader
}

// NewConsoleHandler wires a per-connection dispatcher around the console
// transport. The factory receives the connection's transport so engine output
// lands on the right socket.
func NewConsoleHandler(factory func(transport engine.Transport) *dispatch.Dispatcher) *ConsoleHandler {
	return &ConsoleHandler{
		newDispatcher: factory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type consoleInbound struct {
	Type    string `json:"type"` // "message" or "postback"
	Text    string `json:"text,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type textFrame struct {
	Text string `json:"text"`
}

type buttonsFrame struct {
	Text    string        `json:"text"`
	Buttons []buttonFrame `json:"buttons"`
}

type buttonFrame struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

type mediaFrame struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type typingFrame struct {
	On bool `json:"on"`
}

// ServeWS upgrades the request and runs the conversation loop.
func (h *ConsoleHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("console: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("console: write error: %v", err)
				return
			}
		}
	}()

	transport := &consoleTransport{send: send, writerDone: writerDone}
	dispatcher := h.newDispatcher(transport)

	var seq int64
	for {
		var inbound consoleInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		seq++
		ev := domain.Event{
			SenderID:    userID,
			RecipientID: "console",
			Seq:         seq,
			Timestamp:   time.Now(),
		}
		switch inbound.Type {
		case "postback":
			ev.Kind = domain.EventPostback
			ev.Payload = inbound.Payload
		default:
			if inbound.Payload != "" {
				ev.Kind = domain.EventQuickReply
				ev.Payload = inbound.Payload
				ev.Text = inbound.Text
			} else {
				ev.Kind = domain.EventText
				ev.Text = inbound.Text
			}
		}
		if err := dispatcher.Dispatch(r.Context(), ev); err != nil {
			log.Printf("console: dispatch: %v", err)
			_ = transport.enqueue(outboundMessage[any]{Type: "error", Payload: textFrame{Text: "something broke, try again"}})
		}
	}

	close(send)
	<-writerDone
}

var errConsoleClosed = errors.New("console connection closed")

// consoleTransport writes engine output as frames on one connection. Sends
// must not block once the writer goroutine has stopped, or the handler
// goroutine leaks while the read side is still alive.
type consoleTransport struct {
	send       chan outboundMessage[any]
	writerDone <-chan struct{}
}

func (t *consoleTransport) enqueue(msg outboundMessage[any]) error {
	select {
	case t.send <- msg:
		return nil
	case <-t.writerDone:
		return errConsoleClosed
	}
}

func (t *consoleTransport) SendText(_ context.Context, _ string, text string) error {
	return t.enqueue(outboundMessage[any]{Type: "text", Payload: textFrame{Text: text}})
}

func (t *consoleTransport) SendButtons(_ context.Context, _ string, text string, buttons []domain.Button) error {
	frames := make([]buttonFrame, 0, len(buttons))
	for _, b := range buttons {
		frames = append(frames, buttonFrame{Label: b.Label, Payload: b.Payload})
	}
	return t.enqueue(outboundMessage[any]{Type: "buttons", Payload: buttonsFrame{Text: text, Buttons: frames}})
}

func (t *consoleTransport) SendMedia(_ context.Context, _ string, kind domain.MediaKind, url string) error {
	return t.enqueue(outboundMessage[any]{Type: "media", Payload: mediaFrame{Kind: string(kind), URL: url}})
}

func (t *consoleTransport) SetTyping(_ context.Context, _ string, on bool) error {
	return t.enqueue(outboundMessage[any]{Type: "typing", Payload: typingFrame{On: on}})
}

// NewConsoleDispatcherFactory builds the default per-connection dispatcher:
// every console conversation gets its own dedup filter, sharing the engine's
// content but not its transport.
func NewConsoleDispatcherFactory(provider engine.ContentProvider, opts engine.Options, keyword string) func(engine.Transport) *dispatch.Dispatcher {
	return func(transport engine.Transport) *dispatch.Dispatcher {
		eng := engine.New(provider, transport, opts)
		return dispatch.New(eng, transport, dedup.NewMemoryFilter(), keyword)
	}
}
