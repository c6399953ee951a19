// Package messenger speaks the chat platform's webhook and Send API formats.
package messenger

import (
	"encoding/json"
	"fmt"
	"time"

	"funky-quizbot/internal/domain"
)

type webhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string           `json:"id"`
		Time      int64            `json:"time"`
		Messaging []messagingEvent `json:"messaging"`
	} `json:"entry"`
}

type messagingEvent struct {
	Sender    party `json:"sender"`
	Recipient party `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID        string `json:"mid"`
		Seq        int64  `json:"seq"`
		Text       string `json:"text"`
		QuickReply *struct {
			Payload string `json:"payload"`
		} `json:"quick_reply"`
		Attachments []json.RawMessage `json:"attachments"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
		Seq     int64  `json:"seq"`
	} `json:"postback"`
	Delivery *receipt `json:"delivery"`
	Read     *receipt `json:"read"`
}

type party struct {
	ID string `json:"id"`
}

type receipt struct {
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq"`
	MIDs      []string `json:"mids"`
}

// ParseEvents decodes a webhook POST body into transport-neutral events,
// preserving batch order.
func ParseEvents(body []byte) ([]domain.Event, error) {
	var parsed webhookBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}

	var events []domain.Event
	for _, entry := range parsed.Entry {
		for _, m := range entry.Messaging {
			ev := domain.Event{
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				Timestamp:   time.UnixMilli(m.Timestamp),
			}
			switch {
			case m.Message != nil && m.Message.QuickReply != nil:
				ev.Kind = domain.EventQuickReply
				ev.Seq = m.Message.Seq
				ev.Text = m.Message.Text
				ev.Payload = m.Message.QuickReply.Payload
			case m.Message != nil && len(m.Message.Attachments) > 0:
				ev.Kind = domain.EventAttachment
				ev.Seq = m.Message.Seq
			case m.Message != nil:
				ev.Kind = domain.EventText
				ev.Seq = m.Message.Seq
				ev.Text = m.Message.Text
			case m.Postback != nil:
				ev.Kind = domain.EventPostback
				// some platform versions omit the postback seq; the timestamp
				// at least keeps redeliveries of the same click identical.
				// TimestampSeq keeps the large value out of the message
				// sequence space.
				ev.Seq = m.Postback.Seq
				if ev.Seq == 0 {
					ev.Seq = m.Timestamp
					ev.TimestampSeq = true
				}
				ev.Payload = m.Postback.Payload
			case m.Delivery != nil:
				ev.Kind = domain.EventDelivery
				ev.Seq = m.Delivery.Seq
			case m.Read != nil:
				ev.Kind = domain.EventRead
				ev.Seq = m.Read.Seq
			default:
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}
