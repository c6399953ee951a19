package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funky-quizbot/internal/config"
	"funky-quizbot/internal/content"
	"funky-quizbot/internal/dedup"
	"funky-quizbot/internal/dispatch"
	"funky-quizbot/internal/engine"
	"funky-quizbot/internal/infra/file"
	pgsource "funky-quizbot/internal/infra/postgres"
	redisdedup "funky-quizbot/internal/infra/redis"
	transport "funky-quizbot/internal/transport/http"
	"funky-quizbot/internal/transport/messenger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the webhook server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8000"
	}

	var store content.Store
	if cfg.Content.SnapshotDir != "" {
		store = file.NewSnapshotStore(cfg.Content.SnapshotDir)
	}

	var source content.Source
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		source = pgsource.NewContentSource(pool)
	case cfg.Content.SnapshotDir != "":
		source = file.NewSnapshotStore(cfg.Content.SnapshotDir)
	default:
		log.Printf("no content source configured, starting with an empty set")
		source = &content.StaticSource{}
	}

	cache := content.NewCache(source, store)
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	interval := config.Interval(cfg.Content.RefreshInterval, time.Minute)
	go content.NewRefresher(cache, interval).Run(refreshCtx)

	var filter dedup.Filter = dedup.NewMemoryFilter()
	if cfg.Redis.Addr != "" {
		filter = redisdedup.NewDedupFilter(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	}

	opts := engine.Options{
		StreakTarget: cfg.Quiz.StreakTarget,
		ReactionOdds: cfg.Quiz.ReactionOdds,
		MaxButtons:   cfg.Quiz.MaxButtons,
	}
	client := messenger.NewClient(cfg.Server.GraphURL, cfg.Server.PageToken)
	eng := engine.New(cache, client, opts)
	dispatcher := dispatch.New(eng, client, filter, cfg.Quiz.StartKeyword)

	webhookPath := cfg.Server.WebhookPath
	if webhookPath == "" {
		webhookPath = "/webhook"
	}
	webhook := transport.NewWebhookHandler(dispatcher, cfg.Server.VerifyToken)
	console := transport.NewConsoleHandler(
		transport.NewConsoleDispatcherFactory(cache, opts, cfg.Quiz.StartKeyword))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc(webhookPath, webhook.Handle)
	mux.HandleFunc("/console", console.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz bot on :%s (webhook %s)", finalPort, webhookPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
