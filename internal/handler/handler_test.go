package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/config"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/repository"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

const projectJSON = `{
	"project/resources": [{"resource/name": "工人", "resource/cost": 1, "resource/quantity": 2}],
	"project/tasks": [
		{"task/deps": [], "task/modes": [{"mode/duration": 2, "mode/requirements": [{"req/id": 0, "req/quant": 1}]}]},
		{"task/deps": [0], "task/modes": [{"mode/duration": 1, "mode/requirements": []}]}
	]
}`

const projectYAML = `
project/resources:
  - resource/name: 工人
    resource/cost: 1
    resource/quantity: 2
project/tasks:
  - task/deps: []
    task/modes:
      - mode/duration: 2
        mode/requirements:
          - req/id: 0
            req/quant: 1
  - task/deps: [0]
    task/modes:
      - mode/duration: 1
        mode/requirements: []
`

type fakePublisher struct {
	mu       sync.Mutex
	keys     []string
	messages []amqp.Publishing
	err      error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, msg)
	return nil
}

type testEnv struct {
	handler   *Handler
	mock      sqlmock.Sqlmock
	redis     *miniredis.Miniredis
	publisher *fakePublisher
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "secret"
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.Redis.OperationExpiration = 5
	cfg.RabbitMQ.PublishTimeout = 5
	cfg.Cache.TTL = 60
	cfg.Evolution.RateLimit = 100
	cfg.Evolution.RateBurst = 100
	cfg.Evolution.MaxPopulationSize = 500
	cfg.Evolution.MaxGenerations = 5000
	return cfg
}

func setupHandler(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	publisher := &fakePublisher{}
	h, err := NewHandler(cfg, repository.NewRepository(cfg, db), publisher, rdb)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{handler: h, mock: mock, redis: mr, publisher: publisher}
}

func (e *testEnv) do(method, target, contentType, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func bearer(t *testing.T) []string {
	t.Helper()

	token, err := utils.GenerateToken("secret", "tester", "operator", time.Hour)
	require.NoError(t, err)
	return []string{"Authorization", "Bearer " + token}
}

func projectRows(t *testing.T) *sqlmock.Rows {
	t.Helper()

	p, err := document.LoadProjectBytes([]byte(projectJSON), document.FormatJSON)
	require.NoError(t, err)
	doc, err := json.Marshal(p)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{"name", "description", "fingerprint", "document", "created_at", "version"}).
		AddRow("样例项目", "", "abc", doc, time.Now(), 1)
}

func TestHealth(t *testing.T) {
	env := setupHandler(t, testConfig())

	rec := env.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSchedule_JSON(t *testing.T) {
	env := setupHandler(t, testConfig())

	rec := env.do(http.MethodPost, "/schedule?seed=7", "application/json", projectJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	s, err := document.LoadSchedule(strings.NewReader(rec.Body.String()), document.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.TimeStamp(3), scheduler.Makespan(s))

	report, err := scheduler.Check(s)
	require.NoError(t, err)
	assert.True(t, report.Feasible())

	// 结果被缓存，键由项目指纹、策略和 seed 组成
	p, err := document.LoadProjectBytes([]byte(projectJSON), document.FormatJSON)
	require.NoError(t, err)
	fingerprint, err := utils.ProjectFingerprint(p)
	require.NoError(t, err)
	key := scheduleCacheKey(fingerprint, scheduler.StrategyRandom, 7)
	assert.True(t, env.redis.Exists(key))
	assert.Equal(t, time.Minute, env.redis.TTL(key))

	again := env.do(http.MethodPost, "/schedule?seed=7", "application/json", projectJSON)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.JSONEq(t, rec.Body.String(), again.Body.String())
}

func TestSchedule_YAML(t *testing.T) {
	env := setupHandler(t, testConfig())

	rec := env.do(http.MethodPost, "/schedule?strategy=shortest", "application/yaml", projectYAML)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Seed"))
	assert.Empty(t, rec.Header().Get("X-Cache"))

	s, err := document.LoadSchedule(strings.NewReader(rec.Body.String()), document.FormatYAML)
	require.NoError(t, err)
	assert.Len(t, s.Genotype, 2)
}

func TestSchedule_Errors(t *testing.T) {
	env := setupHandler(t, testConfig())

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"malformed", "/schedule", `{"project/tasks": [`, http.StatusBadRequest},
		{"unknown field", "/schedule", `{"project/machines": []}`, http.StatusBadRequest},
		{"bad seed", "/schedule?seed=abc", projectJSON, http.StatusBadRequest},
		{"unknown strategy", "/schedule?strategy=fastest", projectJSON, http.StatusBadRequest},
		{
			"cyclic",
			"/schedule",
			`{"project/resources": [], "project/tasks": [
				{"task/deps": [1], "task/modes": [{"mode/duration": 1, "mode/requirements": []}]},
				{"task/deps": [0], "task/modes": [{"mode/duration": 1, "mode/requirements": []}]}]}`,
			http.StatusUnprocessableEntity,
		},
		{
			"dangling resource",
			"/schedule",
			`{"project/resources": [], "project/tasks": [
				{"task/deps": [], "task/modes": [{"mode/duration": 1, "mode/requirements": [{"req/id": 3, "req/quant": 1}]}]}]}`,
			http.StatusUnprocessableEntity,
		},
		{
			"infeasible mode",
			"/schedule",
			`{"project/resources": [{"resource/name": "r", "resource/cost": 0, "resource/quantity": 1}], "project/tasks": [
				{"task/deps": [], "task/modes": [{"mode/duration": 1, "mode/requirements": [{"req/id": 0, "req/quant": 2}]}]}]}`,
			http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, tt.target, "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestSchedule_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	env := setupHandler(t, cfg)

	rec := env.do(http.MethodPost, "/schedule", "application/json", projectJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSchedule_RedisUnavailable(t *testing.T) {
	env := setupHandler(t, testConfig())
	env.redis.Close()

	rec := env.do(http.MethodPost, "/schedule?seed=1", "application/json", projectJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestCreateProject(t *testing.T) {
	env := setupHandler(t, testConfig())
	body := `{"name": "样例项目", "description": "两个任务", "project": ` + projectJSON + `}`

	t.Run("created", func(t *testing.T) {
		env.mock.ExpectQuery(`INSERT INTO projects`).
			WithArgs("样例项目", "两个任务", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "version"}).AddRow(1, time.Now(), 1))

		rec := env.do(http.MethodPost, "/projects", "application/json", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.True(t, decodeResponse(t, rec).Success)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		env.mock.ExpectQuery(`INSERT INTO projects`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "projects_name_key"})

		rec := env.do(http.MethodPost, "/projects", "application/json", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "项目名称已存在", decodeResponse(t, rec).Message)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("missing name", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/projects", "application/json", `{"project": `+projectJSON+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid project", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/projects", "application/json",
			`{"name": "x", "project": {"project/resources": [], "project/tasks": [{"task/deps": [], "task/modes": []}]}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestGetProject(t *testing.T) {
	env := setupHandler(t, testConfig())

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/projects/abc", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		env.mock.ExpectQuery(`FROM projects`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

		rec := env.do(http.MethodGet, "/projects/9", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("found", func(t *testing.T) {
		env.mock.ExpectQuery(`FROM projects`).WithArgs(int64(7)).WillReturnRows(projectRows(t))

		rec := env.do(http.MethodGet, "/projects/7", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeResponse(t, rec).Success)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestCreateProjectSchedule(t *testing.T) {
	env := setupHandler(t, testConfig())

	env.mock.ExpectQuery(`FROM projects`).WithArgs(int64(7)).WillReturnRows(projectRows(t))
	env.mock.ExpectQuery(`INSERT INTO schedules`).
		WithArgs(int64(7), scheduler.StrategyShortest, int64(3), int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))

	rec := env.do(http.MethodPost, "/projects/7/schedules", "application/json", `{"seed": 3, "strategy": "shortest"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateEvolutionJob(t *testing.T) {
	env := setupHandler(t, testConfig())
	body := `{"projectID": 7, "parameters": {"populationSize": 20, "maxGenerations": 10, "crossoverRate": 0.9,
		"mutationRate": 0.05, "eliteCount": 2, "tournamentSize": 3, "seed": 1}, "notifyEmail": "a@example.com"}`

	t.Run("no token", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/evolutions", "application/json", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/evolutions", "application/json", body, "Authorization", "Bearer nonsense")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepted", func(t *testing.T) {
		env.mock.ExpectQuery(`FROM projects`).WithArgs(int64(7)).WillReturnRows(projectRows(t))
		env.mock.ExpectQuery(`INSERT INTO evolution_jobs`).
			WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg(), domain.EvolutionStatusPending, "a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "version"}).AddRow(time.Now(), 1))

		rec := env.do(http.MethodPost, "/evolutions", "application/json", body, bearer(t)...)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		require.NoError(t, env.mock.ExpectationsWereMet())

		require.Len(t, env.publisher.messages, 1)
		assert.Equal(t, domain.EvolutionQueue, env.publisher.keys[0])

		var msg domain.EvolutionMessage
		require.NoError(t, json.Unmarshal(env.publisher.messages[0].Body, &msg))
		assert.NotEmpty(t, msg.JobID)
	})

	t.Run("population too large", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/evolutions", "application/json",
			`{"projectID": 7, "parameters": {"populationSize": 1000, "maxGenerations": 10, "tournamentSize": 3}}`, bearer(t)...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/evolutions", "application/json",
			`{"projectID": 7, "parameters": {"populationSize": 10, "maxGenerations": 10, "tournamentSize": 3, "mutationRate": 2}}`, bearer(t)...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateEvolutionJob_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	env := setupHandler(t, cfg)

	body := `{"projectID": 7, "parameters": {"populationSize": 20, "maxGenerations": 10, "tournamentSize": 3}}`
	rec := env.do(http.MethodPost, "/evolutions", "application/json", body, bearer(t)...)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)
	assert.Empty(t, env.publisher.messages)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateEvolutionJob_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.RateLimit = 0
	cfg.Evolution.RateBurst = 1
	env := setupHandler(t, cfg)

	// 第一个请求消耗掉唯一的令牌
	first := env.do(http.MethodPost, "/evolutions", "application/json", `{}`, bearer(t)...)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := env.do(http.MethodPost, "/evolutions", "application/json", `{}`, bearer(t)...)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestGetEvolutionJob(t *testing.T) {
	env := setupHandler(t, testConfig())

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/evolutions/42", "", "", bearer(t)...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		id := "0b6f3c52-6a8e-4f59-9a43-3c1f2d1b7e10"
		env.mock.ExpectQuery(`FROM evolution_jobs`).WithArgs(id).WillReturnError(sql.ErrNoRows)

		rec := env.do(http.MethodGet, "/evolutions/"+id, "", "", bearer(t)...)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}
