package domain

import (
	"strings"
	"time"
)

// MediaKind classifies prize and reaction media.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaText  MediaKind = "text"
)

// ReactionContext tags reaction media with the answer outcome it fits.
type ReactionContext string

const (
	ReactionCorrect ReactionContext = "CORRECT"
	ReactionWrong   ReactionContext = "WRONG"
)

// QuizQuestion is one prompt with a single correct answer and zero or more decoys.
type QuizQuestion struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Correct     string   `json:"correct"`
	Distractors []string `json:"distractors"`
}

// NewQuizQuestion builds a question from raw source cells. Empty distractors and
// distractors equal to the correct answer are dropped.
func NewQuizQuestion(id, prompt, correct string, distractors []string) QuizQuestion {
	kept := make([]string, 0, len(distractors))
	for _, d := range distractors {
		if d == "" || d == correct {
			continue
		}
		kept = append(kept, d)
	}
	return QuizQuestion{ID: id, Prompt: prompt, Correct: correct, Distractors: kept}
}

// Prize is a reward granted after a completed streak.
type Prize struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Kind         MediaKind `json:"kind"`
	EmbargoUntil time.Time `json:"embargoUntil,omitempty"`
}

// NewPrize builds a prize from raw source cells; unknown kinds fall back to text.
func NewPrize(id, url, kind string, embargo time.Time) Prize {
	k := MediaKind(strings.ToLower(kind))
	switch k {
	case MediaImage, MediaVideo, MediaText:
	default:
		k = MediaText
	}
	return Prize{ID: id, URL: url, Kind: k, EmbargoUntil: embargo}
}

// Embargoed reports whether the prize must not be granted yet.
func (p Prize) Embargoed(now time.Time) bool {
	return !p.EmbargoUntil.IsZero() && now.Before(p.EmbargoUntil)
}

// ReactionMedia is a gif or clip interjected after an answer.
type ReactionMedia struct {
	URL     string          `json:"url"`
	Context ReactionContext `json:"context"`
	Tags    []string        `json:"tags,omitempty"`
}

// NewReactionMedia builds reaction media from raw source cells, dropping empty tags.
func NewReactionMedia(url, context string, tags []string) ReactionMedia {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			kept = append(kept, t)
		}
	}
	ctx := ReactionContext(strings.ToUpper(context))
	if ctx != ReactionCorrect && ctx != ReactionWrong {
		ctx = ReactionCorrect
	}
	return ReactionMedia{URL: url, Context: ctx, Tags: kept}
}

// Continuation is the session state round-tripped inside button payloads.
// Previous holds the ids of questions already asked this streak, in order;
// its length is the current streak count.
type Continuation struct {
	Previous []string `json:"previous"`
	Picked   string   `json:"picked,omitempty"`
	Correct  bool     `json:"correct"`
}

// EventKind classifies an inbound webhook event.
type EventKind string

const (
	EventText       EventKind = "text"
	EventQuickReply EventKind = "quick_reply"
	EventPostback   EventKind = "postback"
	EventAttachment EventKind = "attachment"
	EventDelivery   EventKind = "delivery"
	EventRead       EventKind = "read"
)

// Event is a transport-neutral inbound message or callback.
type Event struct {
	Kind        EventKind
	SenderID    string
	RecipientID string
	Seq         int64
	Timestamp   time.Time
	Text        string
	Payload     string

	// TimestampSeq marks a Seq that was derived from the event timestamp
	// because the platform omitted a real one. Timestamps are epoch
	// milliseconds, far larger than message sequence numbers, so these
	// events track duplicates in their own sequence space.
	TimestampSeq bool
}

// DedupKey identifies one sequence space for duplicate tracking. Events with
// a timestamp-derived Seq get a separate space so the large values never
// shadow ordinary message sequences in the same conversation.
func (e Event) DedupKey() string {
	key := e.SenderID + ":" + e.RecipientID
	if e.TimestampSeq {
		key += ":ts"
	}
	return key
}

// Button is an interactive quick reply offered to the user.
type Button struct {
	Label   string
	Payload string
}
