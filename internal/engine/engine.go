// Package engine drives the per-user quiz state machine. No session state is
// kept server-side: everything needed to continue a quiz travels inside the
// button payloads and comes back with the next click.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"funky-quizbot/internal/content"
	"funky-quizbot/internal/domain"
	"funky-quizbot/internal/payload"
)

// Payload tags routed by the dispatcher.
const (
	TagAnswer = "ANSWER"
	TagMenu   = "MENU"
)

// Transport delivers outgoing messages to one user of the chat platform.
type Transport interface {
	SendText(ctx context.Context, userID, text string) error
	SendButtons(ctx context.Context, userID, text string, buttons []domain.Button) error
	SendMedia(ctx context.Context, userID string, kind domain.MediaKind, url string) error
	SetTyping(ctx context.Context, userID string, on bool) error
}

// ContentProvider serves the current content snapshot.
type ContentProvider interface {
	Current(ctx context.Context) (*content.Snapshot, error)
}

// TruncatePolicy trims excess distractor buttons when a question offers more
// answers than one message may carry. The correct-answer button is kept
// unconditionally and never passed in.
type TruncatePolicy func(distractors []domain.Button, max int) []domain.Button

// KeepFirst is the default TruncatePolicy.
func KeepFirst(distractors []domain.Button, max int) []domain.Button {
	if max >= 0 && len(distractors) > max {
		return distractors[:max]
	}
	return distractors
}

// Options tune the engine; zero values fall back to the platform defaults.
type Options struct {
	StreakTarget int     // questions in a row for a prize, default 7
	MaxButtons   int     // per-message button cap, default 11
	ReactionOdds float64 // chance of a reaction gif after an answer, default 0.1, negative disables
	Truncate     TruncatePolicy
	Rand         *rand.Rand
	Now          func() time.Time
}

// Engine asks questions, judges answers and grants prizes.
type Engine struct {
	content      ContentProvider
	transport    Transport
	streakTarget int
	maxButtons   int
	reactionOdds float64
	truncate     TruncatePolicy
	now          func() time.Time

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

func New(provider ContentProvider, transport Transport, opts Options) *Engine {
	if opts.StreakTarget <= 0 {
		opts.StreakTarget = 7
	}
	if opts.MaxButtons <= 0 {
		opts.MaxButtons = 11
	}
	if opts.ReactionOdds == 0 {
		opts.ReactionOdds = 0.1
	}
	if opts.Truncate == nil {
		opts.Truncate = KeepFirst
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		content:      provider,
		transport:    transport,
		streakTarget: opts.StreakTarget,
		maxButtons:   opts.MaxButtons,
		reactionOdds: opts.ReactionOdds,
		truncate:     opts.Truncate,
		now:          opts.Now,
		rnd:          opts.Rand,
	}
}

// StreakTarget reports how many correct answers in a row win a prize.
func (e *Engine) StreakTarget() int { return e.streakTarget }

// StartQuiz begins a fresh streak for the user: greeting plus first question.
func (e *Engine) StartQuiz(ctx context.Context, userID string) error {
	_ = e.transport.SetTyping(ctx, userID, true)
	defer func() { _ = e.transport.SetTyping(ctx, userID, false) }()

	greeting := fmt.Sprintf("Welcome to a brand new quiz! Get %d in a row and you win a prize", e.streakTarget)
	if err := e.transport.SendText(ctx, userID, greeting); err != nil {
		return err
	}
	return e.askQuestion(ctx, userID, nil)
}

// HandleAnswer processes a decoded answer continuation. A correct answer
// advances the streak; at the streak target a prize is granted and the
// session returns to idle. A wrong answer keeps the history as is, so the
// streak is preserved and the same question is never re-asked.
func (e *Engine) HandleAnswer(ctx context.Context, userID string, cont domain.Continuation) error {
	_ = e.transport.SetTyping(ctx, userID, true)
	defer func() { _ = e.transport.SetTyping(ctx, userID, false) }()

	e.maybeReact(ctx, userID, cont.Correct)

	if !cont.Correct {
		if err := e.transport.SendText(ctx, userID, "Your reply was INCORRECT :("); err != nil {
			return err
		}
		return e.askQuestion(ctx, userID, cont.Previous)
	}

	if err := e.transport.SendText(ctx, userID, "Your reply was CORRECT"); err != nil {
		return err
	}

	if len(cont.Previous) >= e.streakTarget {
		return e.grantPrize(ctx, userID)
	}

	progress := fmt.Sprintf("You have %d correct answers, only %d to go!",
		len(cont.Previous), e.streakTarget-len(cont.Previous))
	if err := e.transport.SendText(ctx, userID, progress); err != nil {
		return err
	}
	return e.askQuestion(ctx, userID, cont.Previous)
}

// askQuestion draws a question not yet seen this streak and sends it with one
// shuffled button per answer. Content exhaustion turns into an apology.
func (e *Engine) askQuestion(ctx context.Context, userID string, previous []string) error {
	snap, err := e.content.Current(ctx)
	if err != nil {
		log.Printf("engine: no content snapshot for %s: %v", userID, err)
		return e.transport.SendText(ctx, userID, "We have no quiz questions for you right now, please try again later 8)")
	}

	question, err := e.pickQuestion(snap.Questions, previous)
	if err != nil {
		log.Printf("engine: question selection for %s: %v", userID, err)
		return e.transport.SendText(ctx, userID, "We have no quiz questions for you right now, please try again later 8)")
	}

	history := append(append([]string(nil), previous...), question.ID)
	buttons, err := e.buildButtons(question, history)
	if err != nil {
		log.Printf("engine: building buttons for %s: %v", userID, err)
		return e.transport.SendText(ctx, userID, "Something went sideways on our end, please try again later")
	}
	return e.transport.SendButtons(ctx, userID, question.Prompt, buttons)
}

// pickQuestion draws uniformly among the questions absent from history.
func (e *Engine) pickQuestion(questions []domain.QuizQuestion, history []string) (domain.QuizQuestion, error) {
	if len(questions) == 0 {
		return domain.QuizQuestion{}, domain.ErrNoQuestionsAvailable
	}
	seen := make(map[string]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}
	fresh := make([]domain.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ID]; !ok {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		return domain.QuizQuestion{}, domain.ErrNoQuestionsAvailable
	}
	return fresh[e.intn(len(fresh))], nil
}

// buildButtons encodes one button per answer. If the payload outgrows the
// platform limit the oldest history entries are dropped until it fits.
func (e *Engine) buildButtons(question domain.QuizQuestion, history []string) ([]domain.Button, error) {
	encode := func(picked string, correct bool) (string, error) {
		hist := history
		for {
			token, err := payload.Encode(TagAnswer, domain.Continuation{
				Previous: hist,
				Picked:   picked,
				Correct:  correct,
			})
			if err == nil {
				return token, nil
			}
			if !errors.Is(err, domain.ErrPayloadTooLarge) || len(hist) <= 1 {
				return "", err
			}
			hist = hist[1:]
		}
	}

	distractors := make([]domain.Button, 0, len(question.Distractors))
	for _, text := range question.Distractors {
		token, err := encode(text, false)
		if err != nil {
			return nil, err
		}
		distractors = append(distractors, domain.Button{Label: text, Payload: token})
	}
	if len(distractors)+1 > e.maxButtons {
		distractors = e.truncate(distractors, e.maxButtons-1)
	}

	token, err := encode(question.Correct, true)
	if err != nil {
		return nil, err
	}
	buttons := append(distractors, domain.Button{Label: question.Correct, Payload: token})

	// hide the correct answer's position
	e.mu.Lock()
	e.rnd.Shuffle(len(buttons), func(i, j int) {
		buttons[i], buttons[j] = buttons[j], buttons[i]
	})
	e.mu.Unlock()
	return buttons, nil
}

// grantPrize picks uniformly among the non-embargoed prizes and sends it.
func (e *Engine) grantPrize(ctx context.Context, userID string) error {
	snap, err := e.content.Current(ctx)
	if err != nil {
		log.Printf("engine: no content snapshot for prize: %v", err)
		return e.transport.SendText(ctx, userID, "You finished the streak, but our prize shelf is empty. We owe you one!")
	}

	now := e.now()
	available := make([]domain.Prize, 0, len(snap.Prizes))
	for _, p := range snap.Prizes {
		if !p.Embargoed(now) {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		log.Printf("engine: %v for %s (%d prizes, all embargoed or none)", domain.ErrNoPrizeAvailable, userID, len(snap.Prizes))
		return e.transport.SendText(ctx, userID, "You finished the streak, but our prize shelf is empty. We owe you one!")
	}
	prize := available[e.intn(len(available))]

	if err := e.transport.SendText(ctx, userID, "Wow, you're on a nice streak. Here's a prize!"); err != nil {
		return err
	}
	switch prize.Kind {
	case domain.MediaImage, domain.MediaVideo:
		return e.transport.SendMedia(ctx, userID, prize.Kind, prize.URL)
	default:
		return e.transport.SendText(ctx, userID, prize.URL)
	}
}

// maybeReact occasionally sends a reaction gif matching the answer outcome.
// Missing media is not an error, the interjection is just skipped.
func (e *Engine) maybeReact(ctx context.Context, userID string, correct bool) {
	if e.reactionOdds < 0 || e.float64() >= e.reactionOdds {
		return
	}
	snap, err := e.content.Current(ctx)
	if err != nil {
		return
	}
	want := domain.ReactionWrong
	if correct {
		want = domain.ReactionCorrect
	}
	matching := make([]domain.ReactionMedia, 0, len(snap.Reactions))
	for _, r := range snap.Reactions {
		if r.Context == want {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return
	}
	pick := matching[e.intn(len(matching))]
	if err := e.transport.SendMedia(ctx, userID, domain.MediaImage, pick.URL); err != nil {
		log.Printf("engine: reaction send failed for %s: %v", userID, err)
	}
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(n)
}

func (e *Engine) float64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Float64()
}
