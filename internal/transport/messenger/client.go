package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"funky-quizbot/internal/domain"
)

// DefaultGraphURL is the production Send API endpoint prefix.
const DefaultGraphURL = "https://graph.facebook.com/v2.6"

// Client sends messages through the platform's Send API. It implements the
// engine's Transport interface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

type recipientRef struct {
	ID string `json:"id"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type message struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
	Attachment   *attachment  `json:"attachment,omitempty"`
}

type sendRequest struct {
	Recipient    recipientRef `json:"recipient"`
	Message      *message     `json:"message,omitempty"`
	SenderAction string       `json:"sender_action,omitempty"`
}

func (c *Client) SendText(ctx context.Context, userID, text string) error {
	return c.post(ctx, sendRequest{
		Recipient: recipientRef{ID: userID},
		Message:   &message{Text: text},
	})
}

func (c *Client) SendButtons(ctx context.Context, userID, text string, buttons []domain.Button) error {
	replies := make([]quickReply, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, quickReply{ContentType: "text", Title: b.Label, Payload: b.Payload})
	}
	return c.post(ctx, sendRequest{
		Recipient: recipientRef{ID: userID},
		Message:   &message{Text: text, QuickReplies: replies},
	})
}

func (c *Client) SendMedia(ctx context.Context, userID string, kind domain.MediaKind, url string) error {
	if kind == domain.MediaText {
		return c.SendText(ctx, userID, url)
	}
	att := &attachment{Type: string(kind)}
	att.Payload.URL = url
	return c.post(ctx, sendRequest{
		Recipient: recipientRef{ID: userID},
		Message:   &message{Attachment: att},
	})
}

func (c *Client) SetTyping(ctx context.Context, userID string, on bool) error {
	action := "typing_off"
	if on {
		action = "typing_on"
	}
	return c.post(ctx, sendRequest{
		Recipient:    recipientRef{ID: userID},
		SenderAction: action,
	})
}

func (c *Client) post(ctx context.Context, body sendRequest) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send api: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
