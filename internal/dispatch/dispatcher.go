// Package dispatch classifies inbound events and routes them to the quiz
// engine. Routing over payload tags uses an explicit ordered table matched
// first-prefix-wins.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"funky-quizbot/internal/dedup"
	"funky-quizbot/internal/domain"
	"funky-quizbot/internal/engine"
	"funky-quizbot/internal/payload"
)

// Route binds a payload tag prefix to its handler. Prefixes must be mutually
// exclusive; the first match wins.
type Route struct {
	Prefix string
	Handle func(ctx context.Context, ev domain.Event) error
}

// Dispatcher is the entry point for every inbound event.
type Dispatcher struct {
	engine    *engine.Engine
	transport engine.Transport
	filter    dedup.Filter
	keyword   string
	routes    []Route
}

func New(eng *engine.Engine, transport engine.Transport, filter dedup.Filter, keyword string) *Dispatcher {
	if keyword == "" {
		keyword = "quiz"
	}
	d := &Dispatcher{
		engine:    eng,
		transport: transport,
		filter:    filter,
		keyword:   keyword,
	}
	d.routes = []Route{
		{Prefix: engine.TagAnswer, Handle: d.handleAnswer},
		{Prefix: engine.TagMenu, Handle: d.handleMenu},
	}
	return d
}

// Dispatch classifies one event and runs the matching handler. Redelivered
// events are dropped before any handler can produce side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventDelivery:
		log.Printf("dispatch: delivery receipt from %s (seq %d)", ev.SenderID, ev.Seq)
		return nil
	case domain.EventRead:
		log.Printf("dispatch: read receipt from %s (seq %d)", ev.SenderID, ev.Seq)
		return nil
	}

	admitted, err := d.filter.Admit(ctx, ev.DedupKey(), ev.Seq)
	if err != nil {
		return fmt.Errorf("dedup admit: %w", err)
	}
	if !admitted {
		log.Printf("dispatch: %v, dropping seq %d from %s", domain.ErrDuplicateEvent, ev.Seq, ev.SenderID)
		return nil
	}

	switch ev.Kind {
	case domain.EventText:
		return d.handleText(ctx, ev)
	case domain.EventQuickReply, domain.EventPostback:
		return d.routePayload(ctx, ev)
	default:
		log.Printf("dispatch: ignoring %s event from %s", ev.Kind, ev.SenderID)
		return nil
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev domain.Event) error {
	if strings.EqualFold(strings.TrimSpace(ev.Text), d.keyword) {
		return d.engine.StartQuiz(ctx, ev.SenderID)
	}
	reply := fmt.Sprintf("thank you, '%s' yourself! Type '%s' to start the quiz :)", ev.Text, d.keyword)
	return d.transport.SendText(ctx, ev.SenderID, reply)
}

func (d *Dispatcher) routePayload(ctx context.Context, ev domain.Event) error {
	tag, ok := payload.Tag(ev.Payload)
	if !ok {
		return d.fallback(ctx, ev, domain.ErrMalformedPayload)
	}
	for _, route := range d.routes {
		if strings.HasPrefix(tag, route.Prefix) {
			return route.Handle(ctx, ev)
		}
	}
	log.Printf("dispatch: no route for tag %q from %s", tag, ev.SenderID)
	return nil
}

func (d *Dispatcher) handleAnswer(ctx context.Context, ev domain.Event) error {
	_, cont, err := payload.DecodeContinuation(ev.Payload)
	if err != nil {
		return d.fallback(ctx, ev, err)
	}
	return d.engine.HandleAnswer(ctx, ev.SenderID, cont)
}

func (d *Dispatcher) handleMenu(ctx context.Context, ev domain.Event) error {
	return d.transport.SendText(ctx, ev.SenderID,
		fmt.Sprintf("Type '%s' to start a new quiz. Get %d in a row and you win a prize!", d.keyword, d.engine.StreakTarget()))
}

// fallback answers an event we could not make sense of. The bad payload is
// unrecoverable for this turn, but that must never crash the conversation.
func (d *Dispatcher) fallback(ctx context.Context, ev domain.Event, cause error) error {
	if !errors.Is(cause, domain.ErrMalformedPayload) {
		return cause
	}
	log.Printf("dispatch: %v from %s, sending generic reply", cause, ev.SenderID)
	return d.transport.SendText(ctx, ev.SenderID,
		fmt.Sprintf("Sorry, that button went stale. Type '%s' to start over!", d.keyword))
}
