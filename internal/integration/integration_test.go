package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"capa-grader/internal/app"
	"capa-grader/internal/capa"
	"capa-grader/internal/domain"
	"capa-grader/internal/infra/memory"
	pgstore "capa-grader/internal/infra/postgres"
	pgmigrations "capa-grader/internal/infra/postgres/migrations"
	infraredis "capa-grader/internal/infra/redis"
	"capa-grader/internal/xqueue"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const integrationProblem = `<problem>
  <numericalresponse answer="42">
    <responseparam type="tolerance" default="5%"/>
    <textline/>
  </numericalresponse>
  <coderesponse queuename="test-pull">
    <textbox/>
    <codeparam>
      <grader_payload>{"grader": "ps1.py"}</grader_payload>
    </codeparam>
  </coderesponse>
</problem>`

func TestGradingEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedProblem(t, ctx, pgURL, "p1", integrationProblem)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	problems := memory.NewProblemRepository(pgstore.NewProblemLoader(pool), 5*time.Minute)
	state := pgstore.NewStateStore(pool)
	queue := infraredis.NewQueue(redisClient)
	service := app.NewGradingService(problems, state, capa.QueueConfig{
		Submitter:   queue,
		CallbackURL: "http://lms/callback",
		DefaultName: "default",
	}, app.WithSeed(7))

	cm, err := service.Submit(ctx, "alice", "p1", domain.StudentAnswers{
		"p1_2_1": domain.TextAnswer("41"),
		"p1_3_1": domain.TextAnswer("print('hi')"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if e, _ := cm.Get("p1_2_1"); !e.IsCorrect() {
		t.Errorf("41 within 5%% of 42 should be correct, got %+v", e)
	}
	queued, _ := cm.Get("p1_3_1")
	if !queued.IsQueued() {
		t.Fatalf("code answer should be queued, got %+v", queued)
	}

	// Play the external grader: pop the request, push the score back, and
	// run the reply consumer against the service.
	raw, err := redisClient.RPop(ctx, "xqueue:test-pull").Result()
	if err != nil {
		t.Fatalf("pop submitted request: %v", err)
	}
	var req xqueue.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Header.Key != queued.Queue.Key {
		t.Fatalf("queued key %s does not match submitted key %s", queued.Queue.Key, req.Header.Key)
	}
	reply := xqueue.Reply{
		Header: req.Header,
		Body:   json.RawMessage(`{"correct": true, "score": 1.0, "msg": "passed all tests"}`),
	}
	payload, _ := json.Marshal(reply)
	if err := redisClient.LPush(ctx, "xqueue:replies", payload).Err(); err != nil {
		t.Fatalf("push reply: %v", err)
	}

	consumerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = infraredis.NewReplyConsumer(redisClient, "replies", service).Run(consumerCtx)
		close(done)
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		stored, err := service.State(ctx, "alice", "p1")
		if err == nil {
			if e, _ := stored.Get("p1_3_1"); e.IsCorrect() && !e.IsQueued() {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("code answer never settled after grader reply")
		}
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	<-done
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "capa", "POSTGRES_PASSWORD": "capapass", "POSTGRES_DB": "capadb"},
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
	dsn := fmt.Sprintf("postgres://capa:capapass@%s:%s/capadb?sslmode=disable", host, port.Port())
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

func seedProblem(t *testing.T, ctx context.Context, dsn, id, markup string) {
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

	if _, err := db.ExecContext(ctx,
		`INSERT INTO problems (id, markup) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET markup=EXCLUDED.markup`,
		id, markup); err != nil {
		t.Fatalf("insert problem: %v", err)
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
