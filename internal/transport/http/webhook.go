// Package http exposes the platform webhook and a websocket dev console.
package http

import (
	"context"
	"io"
	"log"
	"net/http"

	"funky-quizbot/internal/dispatch"
	"funky-quizbot/internal/transport/messenger"
)

// WebhookHandler terminates the chat platform's webhook: GET for subscription
// verification, POST for event batches.
type WebhookHandler struct {
	dispatcher  *dispatch.Dispatcher
	verifyToken string
}

func NewWebhookHandler(dispatcher *dispatch.Dispatcher, verifyToken string) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, verifyToken: verifyToken}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// verify echoes the challenge when the platform confirms the subscription.
func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "you don't belong here", http.StatusForbidden)
}

// receive parses an event batch, runs every event through the dispatcher and
// answers with a canned OK. Parse and handler failures are logged, never
// surfaced to the platform: a non-200 would only cause another redelivery of
// the same batch.
func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	events, err := messenger.ParseEvents(body)
	if err != nil {
		log.Printf("webhook: %v", err)
		w.Write([]byte("OK"))
		return
	}

	ctx := context.WithoutCancel(r.Context())
	for _, ev := range events {
		if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Printf("webhook: dispatch seq %d from %s: %v", ev.Seq, ev.SenderID, err)
		}
	}
	w.Write([]byte("OK"))
}
