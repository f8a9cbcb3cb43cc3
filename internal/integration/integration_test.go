package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"medialit-game-service/internal/app"
	"medialit-game-service/internal/domain"
	pgcontent "medialit-game-service/internal/infra/postgres"
	pgmigrations "medialit-game-service/internal/infra/postgres/migrations"
	infraredis "medialit-game-service/internal/infra/redis"
	"medialit-game-service/internal/stage"
)

func TestCompleteSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedContent(t, ctx, pgURL, sampleContent())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rounds := 2
	catalog, err := stage.NewCatalog([]stage.Override{{Stage: 2, RoundCount: &rounds}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	loader := pgcontent.NewContentLoader(pool)
	contentRepo := infraredis.NewContentRepository(redisClient, loader, 5*time.Minute)
	registry := infraredis.NewSessionRegistry(redisClient, 5*time.Minute)
	reporter := infraredis.NewReportGuard(redisClient, pgcontent.NewResultWriter(pool), time.Hour)
	service := app.NewGameServiceWithTick(catalog, registry, contentRepo, reporter, time.Hour)

	session, err := service.CreateSession(ctx, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < rounds; i++ {
		snap := session.Snapshot()
		if snap.Prompt == nil {
			t.Fatalf("round %d: no prompt in snapshot", i+1)
		}
		if err := session.SelectCandidate(snap.Prompt.CorrectAnswerKey); err != nil {
			t.Fatalf("select: %v", err)
		}
		if err := session.Submit(); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if err := session.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	snap := session.Snapshot()
	if snap.Phase != domain.PhaseComplete || snap.CorrectCount != rounds {
		t.Fatalf("expected completed session, got %+v", snap)
	}

	// The report is dispatched asynchronously; wait for the row.
	deadline := time.Now().Add(10 * time.Second)
	for {
		var totalXP, accuracy int
		err := pool.QueryRow(ctx,
			`SELECT total_xp, accuracy FROM game_results WHERE session_id=$1`,
			session.ID()).Scan(&totalXP, &accuracy)
		if err == nil {
			if totalXP != snap.XPTotal || accuracy != 100 {
				t.Fatalf("persisted result mismatch: xp=%d accuracy=%d, snapshot %+v", totalXP, accuracy, snap)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("game result never persisted: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Content is now cached in redis; a second session skips the loader.
	if exists, _ := redisClient.Exists(ctx, "stage:stage2:content").Result(); exists != 1 {
		t.Fatalf("expected stage content cached in redis")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "game", "POSTGRES_PASSWORD": "gamepass", "POSTGRES_DB": "gamedb"},
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
	dsn := fmt.Sprintf("postgres://game:gamepass@%s:%s/gamedb?sslmode=disable", host, port.Port())
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

func seedContent(t *testing.T, ctx context.Context, dsn string, content domain.StageContent) {
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

	data, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO stage_content (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, app.ContentID(2), string(data)); err != nil {
		t.Fatalf("insert content: %v", err)
	}
}

func sampleContent() domain.StageContent {
	cards := make([]domain.PromptCard, 4)
	for i := range cards {
		cards[i] = domain.PromptCard{
			ID:               fmt.Sprintf("card-%d", i),
			Text:             "Which outlet published the original report?",
			Options:          []domain.AnswerOption{{Key: "a", Text: "Outlet A"}, {Key: "b", Text: "Outlet B"}},
			CorrectAnswerKey: "a",
		}
	}
	return domain.StageContent{StageID: "stage2", Cards: cards}
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
