package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/johnquangdev/meeting-scheduler/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/external/oauth"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/memstore"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/health"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/intent"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/jobs"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/linker"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/response"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/workitem"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
	"github.com/johnquangdev/meeting-scheduler/pkg/distlock"
	"github.com/johnquangdev/meeting-scheduler/pkg/validator"
)

type fixedDue struct{}

func (fixedDue) DueAt(_ context.Context, _ *entities.SchedulingRequest, since time.Time) (time.Time, error) {
	return since.Add(48 * time.Hour), nil
}

type staticHealth struct{ status string }

func (s staticHealth) Check(context.Context) (*health.Report, error) {
	return &health.Report{Status: s.status, CheckedAt: time.Now()}, nil
}

type fakeConnector struct{}

func (fakeConnector) GetAuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (fakeConnector) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "at", RefreshToken: "rt-" + code}, nil
}

func (fakeConnector) RefreshToken(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)}, nil
}

type mapBodies map[string]string

func (m mapBodies) Get(_ context.Context, key string) (string, error) {
	body, ok := m[key]
	if !ok {
		return "", fmt.Errorf("no object %s", key)
	}
	return body, nil
}

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

type server struct {
	e      *echo.Echo
	store  *memstore.Store
	runner *jobs.Runner
}

func newServer(t *testing.T, status string) *server {
	t.Helper()
	store := memstore.New()
	logger := zap.NewNop()
	rules := config.DefaultRules()
	cfg := &config.Config{Server: config.ServerConfig{Environment: "test"}}

	templates, err := draft.NewTemplates()
	require.NoError(t, err)
	tr := scheduling.NewTransitioner(store.Requests(), store.Actions(), fixedDue{}, rules.Reminders, logger)
	dm := draft.NewDraftService(store.Drafts(), store.Requests(), store.Actions(), store.WorkItems(), tr, templates,
		nil, nil, nil, rules.Drafts, logger)
	esc := escalation.NewEscalator(store.Requests(), store.Actions(), store.WorkItems(), logger)
	sched := scheduling.NewSchedulingService(store.Requests(), store.Actions(), tr, dm, esc, logger)
	linkerSvc := linker.NewLinkerService(linker.NewScorer(rules.Linker), store.Directory(), store.Requests(),
		store.Actions(), store.WorkItems(), store.WorkItems(), logger)
	resp := response.NewResponseService(
		store.Requests(), store.Actions(), store.Inbound(), store.Patterns(),
		intent.NewDetector(nil, nil, rules.Intent, logger),
		timeparser.NewParser(nil, rules.BusinessHours, logger),
		tr, dm, esc, linkerSvc, nil, logger,
	)

	runner := jobs.NewRunner(distlock.NewLocalLocker(), store.JobRuns(), logger)
	runner.Register(jobs.Definition{
		Name:     jobs.ExpireDrafts,
		Schedule: config.DefaultJobsConfig().ExpireDrafts,
		Run: func(ctx context.Context, batch int) (jobs.Result, error) {
			n, err := dm.ExpireStale(ctx, batch)
			return jobs.Result{Metrics: map[string]int64{"expired": int64(n)}}, err
		},
	})

	e := echo.New()
	e.Validator = validator.New()
	NewRouter(cfg, staticHealth{status: status}, Handlers{
		Scheduling: NewSchedulingHandler(sched, linkerSvc, logger),
		Drafts:     NewDraftHandler(dm, logger),
		Inbound:    NewInboundHandler(resp, logger),
		WorkItems:  NewWorkItemHandler(workitem.NewWorkItemService(store.WorkItems(), logger), linkerSvc, logger),
		Jobs:       NewJobHandler(runner, logger),
		Mailbox:    NewMailboxHandler(fakeConnector{}, oauth.NewStateManager(cache.NewMemoryStore()), "rt", logger),
		Archive:    NewArchiveHandler(sched, mapBodies{"req/draft.txt": "Hi Jordan"}, logger),
	}, logger).Setup(e)

	return &server{e: e, store: store, runner: runner}
}

func (s *server) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func createBody(userID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"user_id":          userID.String(),
		"title":            "Acme demo",
		"meeting_type":     "demo",
		"duration_minutes": 30,
		"timezone":         "America/New_York",
		"attendees": []map[string]interface{}{
			{"side": "internal", "name": "Riley Rep", "email": "rep@example.com", "is_organizer": true},
			{"side": "external", "name": "Jordan Buyer", "email": "jordan@acme.test", "is_primary_contact": true},
		},
	}
}

func TestSchedulingRequestLifecycle(t *testing.T) {
	s := newServer(t, health.StatusHealthy)

	rec, env := s.do(t, http.MethodPost, "/v1/scheduling-requests", createBody(uuid.New()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID                 uuid.UUID `json:"id"`
		Status             string    `json:"status"`
		PrimaryContact     string    `json:"primary_contact"`
		AllowedTransitions []string  `json:"allowed_transitions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, string(entities.StatusInitiated), created.Status)
	assert.Equal(t, "jordan@acme.test", created.PrimaryContact)
	assert.NotEmpty(t, created.AllowedTransitions)

	base := "/v1/scheduling-requests/" + created.ID.String()
	rec, _ = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour).UTC()
	rec, env = s.do(t, http.MethodPost, base+"/propose", map[string]interface{}{"times": []time.Time{start}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var proposal struct {
		Request struct {
			Status string `json:"status"`
		} `json:"request"`
		Draft struct {
			ID   uuid.UUID `json:"id"`
			Type string    `json:"type"`
		} `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &proposal))
	assert.Equal(t, string(entities.StatusProposing), proposal.Request.Status)
	assert.Equal(t, string(entities.DraftTypeEmailProposal), proposal.Draft.Type)

	rec, env = s.do(t, http.MethodGet, "/v1/drafts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	assert.Equal(t, 1, queue.Count)

	subject := "Times for our demo"
	rec, env = s.do(t, http.MethodPost, fmt.Sprintf("/v1/drafts/%s/approve", proposal.Draft.ID), map[string]interface{}{
		"approved_by": "rep@example.com",
		"subject":     subject,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved struct {
		Status    string `json:"status"`
		Effective struct {
			Subject string `json:"subject"`
		} `json:"effective"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.Equal(t, string(entities.DraftStatusApproved), approved.Status)
	assert.Equal(t, subject, approved.Effective.Subject)

	rec, env = s.do(t, http.MethodPost, fmt.Sprintf("/v1/drafts/%s/approve", proposal.Draft.ID), map[string]interface{}{
		"approved_by": "rep@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_DRAFT_INVALID_STATE), env.Code)

	rec, env = s.do(t, http.MethodGet, base+"/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var actions []struct {
		Sequence int64 `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &actions))
	require.NotEmpty(t, actions)
	for i := 1; i < len(actions); i++ {
		assert.Greater(t, actions[i].Sequence, actions[i-1].Sequence)
	}

	rec, _ = s.do(t, http.MethodPost, base+"/cancel", map[string]interface{}{"reason": "deal lost"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = s.do(t, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_REQUEST_TERMINAL), env.Code)
}

func TestRequestErrorsMapToCodes(t *testing.T) {
	s := newServer(t, health.StatusHealthy)

	rec, env := s.do(t, http.MethodGet, "/v1/scheduling-requests/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_INVALID_ARGUMENT), env.Code)

	missing := uuid.New()
	rec, env = s.do(t, http.MethodGet, "/v1/scheduling-requests/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_REQUEST_NOT_FOUND), env.Code)
	assert.Equal(t, missing.String(), env.Details["request_id"])

	body := createBody(uuid.New())
	body["duration_minutes"] = 1
	rec, env = s.do(t, http.MethodPost, "/v1/scheduling-requests", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_INVALID_ARGUMENT), env.Code)

	body = createBody(uuid.New())
	body["timezone"] = "Mars/Olympus"
	rec, _ = s.do(t, http.MethodPost, "/v1/scheduling-requests", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	thread := "thread-1"
	userID := uuid.New()
	body = createBody(userID)
	body["external_thread_id"] = thread
	rec, _ = s.do(t, http.MethodPost, "/v1/scheduling-requests", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, env = s.do(t, http.MethodPost, "/v1/scheduling-requests", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_REQUEST_THREAD_CLAIMED), env.Code)

	rec, _ = s.do(t, http.MethodGet, "/v1/scheduling-requests?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfrastructureErrorsMapToCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
		wantHTTP int
	}{
		{
			name:     "lock backend",
			err:      fmt.Errorf("%w: redis down", usecaseErrors.ErrLockUnavailable),
			wantCode: errors.ErrorCode_INTEGRATION_CACHE_FAILED,
			wantHTTP: http.StatusInternalServerError,
		},
		{
			name:     "bad connection",
			err:      fmt.Errorf("failed to get scheduling request: %w", driver.ErrBadConn),
			wantCode: errors.ErrorCode_DB_CONNECTION_FAILED,
			wantHTTP: http.StatusInternalServerError,
		},
		{
			name:     "closed connection",
			err:      fmt.Errorf("failed to list drafts: %w", sql.ErrConnDone),
			wantCode: errors.ErrorCode_DB_CONNECTION_FAILED,
			wantHTTP: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr errors.AppError
			require.ErrorAs(t, mapError(tt.err, ""), &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantHTTP, appErr.HTTPCode)
		})
	}
}

func TestWorkItemRoutes(t *testing.T) {
	s := newServer(t, health.StatusHealthy)
	reqID := uuid.New()
	item := entities.NewWorkItem(entities.WorkItemEscalation, &reqID, "confused_recipient", nil)
	require.NoError(t, s.store.WorkItems().Create(context.Background(), item))

	rec, env := s.do(t, http.MethodGet, "/v1/work-items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Count)

	path := fmt.Sprintf("/v1/work-items/%s/resolve", item.ID)
	rec, _ = s.do(t, http.MethodPost, path, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "resolved_by is required")

	rec, _ = s.do(t, http.MethodPost, path, map[string]string{"resolved_by": "lead@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = s.do(t, http.MethodPost, path, map[string]string{"resolved_by": "lead@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_WORK_ITEM_RESOLVED), env.Code)

	rec, _ = s.do(t, http.MethodPost, fmt.Sprintf("/v1/work-items/%s/accept-link", item.ID),
		map[string]string{"resolved_by": "lead@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an escalation is not a link suggestion")
}

func TestInboundRoute(t *testing.T) {
	s := newServer(t, health.StatusHealthy)
	body := map[string]interface{}{
		"user_id":             uuid.New().String(),
		"provider_message_id": "msg-1",
		"thread_id":           "unknown-thread",
		"from_email":          "Jordan@Acme.test",
		"subject":             "Re: demo",
		"body":                "Tuesday works",
		"process":             true,
	}

	rec, env := s.do(t, http.MethodPost, "/v1/inbound", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Message struct {
			FromEmail string `json:"from_email"`
		} `json:"message"`
		Outcome struct {
			Result string `json:"result"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "jordan@acme.test", out.Message.FromEmail)
	assert.Equal(t, string(response.ResultSkipped), out.Outcome.Result)

	rec, env = s.do(t, http.MethodPost, "/v1/inbound", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_ALREADY_EXISTS), env.Code)

	delete(body, "from_email")
	body["provider_message_id"] = "msg-2"
	rec, _ = s.do(t, http.MethodPost, "/v1/inbound", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobRoutes(t *testing.T) {
	s := newServer(t, health.StatusHealthy)

	rec, env := s.do(t, http.MethodPost, "/v1/jobs/"+jobs.ExpireDrafts+"/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run struct {
		JobName string `json:"job_name"`
		Success bool   `json:"success"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.True(t, run.Success)

	rec, env = s.do(t, http.MethodPost, "/v1/jobs/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int(errors.ErrorCode_JOB_NOT_FOUND), env.Code)

	rec, env = s.do(t, http.MethodGet, "/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status []jobs.JobStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	require.Len(t, status, 1)
	assert.NotNil(t, status[0].LastRun)
}

func TestHealthStatusCodes(t *testing.T) {
	for status, code := range map[string]int{
		health.StatusHealthy:   http.StatusOK,
		health.StatusDegraded:  http.StatusOK,
		health.StatusUnhealthy: http.StatusServiceUnavailable,
	} {
		s := newServer(t, status)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		assert.Equal(t, code, rec.Code, status)
		assert.Contains(t, rec.Body.String(), status)
	}
}

func TestMailboxConnectFlow(t *testing.T) {
	s := newServer(t, health.StatusHealthy)

	rec, _ := s.do(t, http.MethodGet, "/v1/mailbox/connect?user_id=ops", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	callback := "/v1/mailbox/callback?code=abc&state=" + url.QueryEscape(state)
	rec, env := s.do(t, http.MethodGet, callback, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "ops", out["user_id"])
	assert.Equal(t, "rt-abc", out["refresh_token"])

	rec, _ = s.do(t, http.MethodGet, callback, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "state is single use")

	rec, env = s.do(t, http.MethodGet, "/v1/mailbox/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, true, out["connected"])
}

func TestArchivedBodyRoute(t *testing.T) {
	s := newServer(t, health.StatusHealthy)

	rec, env := s.do(t, http.MethodPost, "/v1/scheduling-requests", createBody(uuid.New()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	sent := entities.NewAction(created.ID, entities.ActionEmailSent, entities.ActorAutomation, "sent")
	sent.BodyRef = "minio://meeting-scheduler/bodies/req/draft.txt"
	require.NoError(t, s.store.Actions().Append(context.Background(), sent))

	base := "/v1/scheduling-requests/" + created.ID.String() + "/actions/"
	rec, env = s.do(t, http.MethodGet, fmt.Sprintf("%s%d/body", base, sent.Sequence), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "Hi Jordan", body.Body)

	// the creation action has no archived body
	rec, _ = s.do(t, http.MethodGet, base+"1/body", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, base+"abc/body", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
