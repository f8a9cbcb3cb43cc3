package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"medialit-game-service/internal/app"
	"medialit-game-service/internal/config"
	"medialit-game-service/internal/domain"
	"medialit-game-service/internal/engine"
	"medialit-game-service/internal/infra/memory"
	pgcontent "medialit-game-service/internal/infra/postgres"
	redisinfra "medialit-game-service/internal/infra/redis"
	"medialit-game-service/internal/stage"
	transport "medialit-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
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

	catalog, err := stage.NewCatalog(cfg.Stages)
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
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleContent())
	if pool != nil {
		loader = pgcontent.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var contentRepo app.ContentRepository
	if redisClient != nil {
		contentRepo = redisinfra.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		contentRepo = memory.NewContentRepository(loader, contentTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var reporter engine.Reporter = memory.NewReporter()
	if pool != nil {
		reporter = pgcontent.NewResultWriter(pool)
	}
	if redisClient != nil {
		guardTTL := config.TTLDuration(cfg.Report.GuardTTL, 24*time.Hour)
		reporter = redisinfra.NewReportGuard(redisClient, reporter, guardTTL)
	}

	service := app.NewGameService(catalog, registry, contentRepo, reporter)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game service on :%s", finalPort)
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

// sampleContent provides a minimal prompt set per stage so the server runs
// without a database; production deployments load content from Postgres.
func sampleContent() map[string]domain.StageContent {
	headline := func(i int, key string) domain.PromptCard {
		return domain.PromptCard{
			ID:   "h" + string(rune('0'+i)),
			Text: "Which headline is the original?",
			Options: []domain.AnswerOption{
				{Key: "a", Text: "Headline A"},
				{Key: "b", Text: "Headline B"},
			},
			CorrectAnswerKey: key,
			Hint:             "Compare the claims against the article body.",
		}
	}
	cards := make([]domain.PromptCard, 0, 10)
	for i := 0; i < 10; i++ {
		key := "a"
		if i%2 == 1 {
			key = "b"
		}
		cards = append(cards, headline(i, key))
	}
	content := map[string]domain.StageContent{}
	for _, stageID := range []string{"stage1", "stage2", "stage3", "stage5"} {
		content[stageID] = domain.StageContent{StageID: stageID, Cards: cards}
	}
	return content
}
