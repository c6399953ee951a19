package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"funky-quizbot/internal/content"
	"funky-quizbot/internal/dispatch"
	"funky-quizbot/internal/domain"
	"funky-quizbot/internal/engine"
	pgsource "funky-quizbot/internal/infra/postgres"
	pgmigrations "funky-quizbot/internal/infra/postgres/migrations"
	redisdedup "funky-quizbot/internal/infra/redis"
	"funky-quizbot/internal/payload"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedContent(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	cache := content.NewCache(pgsource.NewContentSource(pool), nil)
	transport := &recordingTransport{}
	eng := engine.New(cache, transport, engine.Options{StreakTarget: 2})
	dispatcher := dispatch.New(eng, transport, redisdedup.NewDedupFilter(redisClient), "quiz")

	// 1. Start keyword: greeting plus a question with decodable buttons.
	if err := dispatcher.Dispatch(ctx, event(domain.EventText, 1, "quiz", "")); err != nil {
		t.Fatalf("start: %v", err)
	}
	buttons := transport.lastButtons(t)
	correctToken := ""
	for _, b := range buttons {
		_, cont, err := payload.DecodeContinuation(b.Payload)
		if err != nil {
			t.Fatalf("decode button: %v", err)
		}
		if cont.Correct {
			correctToken = b.Payload
		}
	}
	if correctToken == "" {
		t.Fatalf("no correct button in %+v", buttons)
	}

	// 2. Redelivery of the same sequence is dropped via redis.
	before := transport.sends()
	if err := dispatcher.Dispatch(ctx, event(domain.EventText, 1, "quiz", "")); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if transport.sends() != before {
		t.Fatalf("redelivered event reached the engine")
	}

	// 3. First correct click advances the streak and asks again.
	if err := dispatcher.Dispatch(ctx, event(domain.EventQuickReply, 2, "", correctToken)); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	buttons = transport.lastButtons(t)
	correctToken = ""
	for _, b := range buttons {
		_, cont, err := payload.DecodeContinuation(b.Payload)
		if err != nil {
			t.Fatalf("decode button: %v", err)
		}
		if len(cont.Previous) != 2 {
			t.Fatalf("expected history of 2, got %v", cont.Previous)
		}
		if cont.Correct {
			correctToken = b.Payload
		}
	}

	// 4. Completing click: the one non-embargoed prize is granted.
	if err := dispatcher.Dispatch(ctx, event(domain.EventQuickReply, 3, "", correctToken)); err != nil {
		t.Fatalf("completing answer: %v", err)
	}
	media := transport.lastMedia(t)
	if media != "https://example.com/open.gif" {
		t.Fatalf("expected the open prize, got %q", media)
	}
}

func seedContent(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	questions := [][]any{
		{"q1", "What is 2 + 2?", "4", []string{"3", "5"}},
		{"q2", "Capital of Norway?", "Oslo", []string{"Bergen"}},
		{"q3", "Largest planet?", "Jupiter", []string{"Mars"}},
	}
	for _, q := range questions {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO quiz_questions (id, prompt, correct, distractors) VALUES (?, ?, ?, ?)`,
			q[0], q[1], q[2], pgdialect.Array(q[3])); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO prizes (id, url, kind, embargo_until) VALUES
		 ('locked', 'https://example.com/locked.gif', 'image', ?),
		 ('open', 'https://example.com/open.gif', 'image', NULL)`,
		time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("insert prizes: %v", err)
	}
}

func event(kind domain.EventKind, seq int64, text, token string) domain.Event {
	return domain.Event{
		Kind:        kind,
		SenderID:    "u1",
		RecipientID: "page-1",
		Seq:         seq,
		Timestamp:   time.Now(),
		Text:        text,
		Payload:     token,
	}
}

type recordingTransport struct {
	mu      sync.Mutex
	count   int
	buttons [][]domain.Button
	media   []string
}

func (f *recordingTransport) SendText(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *recordingTransport) SendButtons(_ context.Context, _, _ string, buttons []domain.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.buttons = append(f.buttons, buttons)
	return nil
}

func (f *recordingTransport) SendMedia(_ context.Context, _ string, _ domain.MediaKind, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.media = append(f.media, url)
	return nil
}

func (f *recordingTransport) SetTyping(_ context.Context, _ string, _ bool) error { return nil }

func (f *recordingTransport) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *recordingTransport) lastButtons(t *testing.T) []domain.Button {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buttons) == 0 {
		t.Fatalf("no buttons sent")
	}
	return f.buttons[len(f.buttons)-1]
}

func (f *recordingTransport) lastMedia(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.media) == 0 {
		t.Fatalf("no media sent")
	}
	return f.media[len(f.media)-1]
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
