package handlers_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/config"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/intent"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/updates"
	"brainstorm-api/internal/infrastructure/auth"
	"brainstorm-api/internal/interfaces/httpserver/handlers"
	"brainstorm-api/internal/interfaces/httpserver/responses"
	"brainstorm-api/internal/utils/platformerrors"
)

// MockService is a hand-written ConversationService for handler tests.
type MockService struct {
	ProcessMessageFunc func(ctx context.Context, req coordination.Request) (*coordination.Reply, error)
	GetRunFunc         func(ctx context.Context, runID string) (*coordination.Run, error)
	GetProjectFunc     func(ctx context.Context, projectID string) (*project.Project, error)
	ListMessagesFunc   func(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error)
}

func (m *MockService) ProcessMessage(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
	if m.ProcessMessageFunc != nil {
		return m.ProcessMessageFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockService) GetRun(ctx context.Context, runID string) (*coordination.Run, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(ctx, runID)
	}
	return nil, nil
}

func (m *MockService) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	if m.GetProjectFunc != nil {
		return m.GetProjectFunc(ctx, projectID)
	}
	return nil, nil
}

func (m *MockService) ListMessages(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, projectID, opts)
	}
	return nil, nil
}

func setupRouter(svc handlers.ConversationService, feed handlers.UpdateFeed, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	p := handlers.NewProvider(svc, feed, zerolog.Nop())
	r.POST("/conversation", p.Conversation.Create)
	r.GET("/v1/projects/:project_id", p.Project.Get)
	r.GET("/v1/projects/:project_id/messages", p.Project.ListMessages)
	r.GET("/v1/projects/:project_id/updates", p.Project.DrainUpdates)
	r.GET("/v1/runs/:run_id", p.Run.Get)
	return r
}

func post(r http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/conversation", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestConversation_Success(t *testing.T) {
	var got coordination.Request
	svc := &MockService{
		ProcessMessageFunc: func(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
			got = req
			return &coordination.Reply{
				ImmediateReply:      "Weekly it is.",
				WorkflowIntentLabel: intent.Deciding,
				RunID:               "run_1",
				ProjectID:           req.ProjectID,
			}, nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))

	w := post(r, `{"projectId":"p1","userId":"u1","message":"yes","metadata":{"webhook_url":"http://hook"}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp responses.ConversationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ImmediateReply != "Weekly it is." || resp.RunID != "run_1" || resp.ProjectID != "p1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.WorkflowIntentLabel != string(intent.Deciding) {
		t.Errorf("expected label %q, got %q", intent.Deciding, resp.WorkflowIntentLabel)
	}
	if got.Metadata["webhook_url"] != "http://hook" {
		t.Errorf("metadata not forwarded: %+v", got.Metadata)
	}
}

func TestConversation_BadRequests(t *testing.T) {
	called := false
	svc := &MockService{
		ProcessMessageFunc: func(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
			called = true
			return &coordination.Reply{}, nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"projectId":`},
		{"missing project", `{"userId":"u1","message":"hi"}`},
		{"blank user", `{"projectId":"p1","userId":"  ","message":"hi"}`},
		{"blank message", `{"projectId":"p1","userId":"u1","message":"\n\t"}`},
		{"wrong type", `{"projectId":1,"userId":"u1","message":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
	if called {
		t.Error("service must not be called for invalid requests")
	}
}

func TestConversation_PhaseOneFailureIs500(t *testing.T) {
	for _, errType := range []platformerrors.ErrorType{
		platformerrors.ErrorTypeExternal,
		platformerrors.ErrorTypeTimeout,
		platformerrors.ErrorTypeDatabaseError,
	} {
		t.Run(string(errType), func(t *testing.T) {
			svc := &MockService{
				ProcessMessageFunc: func(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
					return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, errType, "boom", nil, "e1")
				},
			}
			r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))
			w := post(r, `{"projectId":"p1","userId":"u1","message":"hi"}`, nil)
			if w.Code != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", w.Code)
			}
		})
	}
}

func TestConversation_ForbiddenProjectOwner(t *testing.T) {
	svc := &MockService{
		ProcessMessageFunc: func(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "project belongs to another user", nil, "e2")
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))
	if w := post(r, `{"projectId":"p1","userId":"u1","message":"hi"}`, nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestConversation_TokenSubjectMustMatchUser(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{AuthEnabled: true, AuthIssuer: "https://id.example.com"}
	validator := auth.NewValidatorWithKeyfunc(cfg, zerolog.Nop(), func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": "https://id.example.com",
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	svc := &MockService{
		ProcessMessageFunc: func(ctx context.Context, req coordination.Request) (*coordination.Reply, error) {
			return &coordination.Reply{ImmediateReply: "ok", RunID: "run_1", ProjectID: req.ProjectID}, nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()), validator.Middleware())
	headers := map[string]string{"Authorization": "Bearer " + token}

	if w := post(r, `{"projectId":"p1","userId":"u1","message":"hi"}`, headers); w.Code != http.StatusOK {
		t.Errorf("matching subject: expected 200, got %d", w.Code)
	}
	if w := post(r, `{"projectId":"p1","userId":"someone-else","message":"hi"}`, headers); w.Code != http.StatusForbidden {
		t.Errorf("mismatched subject: expected 403, got %d", w.Code)
	}
	if w := post(r, `{"projectId":"p1","userId":"u1","message":"hi"}`, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
}

func TestProject_GetNotFound(t *testing.T) {
	svc := &MockService{
		GetProjectFunc: func(ctx context.Context, projectID string) (*project.Project, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "project not found", nil, "e3")
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))
	if w := get(r, "/v1/projects/missing"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestProject_GetReturnsItems(t *testing.T) {
	svc := &MockService{
		GetProjectFunc: func(ctx context.Context, projectID string) (*project.Project, error) {
			return &project.Project{ID: projectID, UserID: "u1"}, nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))
	w := get(r, "/v1/projects/p1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp responses.ProjectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "p1" || resp.Object != "project" || resp.Items == nil {
		t.Errorf("unexpected project response %+v", resp)
	}
}

func TestProject_ListMessagesPaging(t *testing.T) {
	var gotOpts conversation.ListOptions
	svc := &MockService{
		ListMessagesFunc: func(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error) {
			gotOpts = opts
			return nil, nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))

	if w := get(r, "/v1/projects/p1/messages"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotOpts.Limit != 50 || gotOpts.Offset != 0 {
		t.Errorf("default paging = %+v", gotOpts)
	}

	if w := get(r, "/v1/projects/p1/messages?limit=1000&offset=5"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotOpts.Limit != 200 || gotOpts.Offset != 5 {
		t.Errorf("clamped paging = %+v", gotOpts)
	}

	if w := get(r, "/v1/projects/p1/messages?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: expected 400, got %d", w.Code)
	}
	if w := get(r, "/v1/projects/p1/messages?offset=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad offset: expected 400, got %d", w.Code)
	}
}

func TestProject_DrainUpdates(t *testing.T) {
	broker := updates.NewBroker(0, 0, zerolog.Nop())
	broker.Publish(context.Background(), updates.Update{ProjectID: "p1", RunID: "run_1", Event: updates.EventRunCompleted})
	broker.Publish(context.Background(), updates.Update{ProjectID: "p2", RunID: "run_2", Event: updates.EventRunCompleted})
	r := setupRouter(&MockService{}, broker)

	var first responses.UpdateListResponse
	w := get(r, "/v1/projects/p1/updates")
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if len(first.Data) != 1 || first.Data[0].RunID != "run_1" {
		t.Fatalf("unexpected updates %+v", first.Data)
	}

	var second responses.UpdateListResponse
	w = get(r, "/v1/projects/p1/updates")
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if len(second.Data) != 0 {
		t.Errorf("drain must remove updates, got %d", len(second.Data))
	}
}

func TestRun_Get(t *testing.T) {
	now := time.Now()
	svc := &MockService{
		GetRunFunc: func(ctx context.Context, runID string) (*coordination.Run, error) {
			if runID != "run_1" {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "run not found", nil, "e4")
			}
			return coordination.NewRun("p1", "u1", "m1", "hi", nil, now), nil
		},
	}
	r := setupRouter(svc, updates.NewBroker(0, 0, zerolog.Nop()))

	w := get(r, "/v1/runs/run_1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["object"] != "workflow.run" || body["status"] != "queued" {
		t.Errorf("unexpected run body %v", body)
	}

	if w := get(r, "/v1/runs/other"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func newTokenAuth(t *testing.T) (gin.HandlerFunc, func(subject string) map[string]string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{AuthEnabled: true, AuthIssuer: "https://id.example.com"}
	validator := auth.NewValidatorWithKeyfunc(cfg, zerolog.Nop(), func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	headers := func(subject string) map[string]string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss": "https://id.example.com",
			"sub": subject,
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}
	return validator.Middleware(), headers
}

func getWith(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReads_RequireProjectOwner(t *testing.T) {
	mw, headersFor := newTokenAuth(t)
	listed := 0
	svc := &MockService{
		GetProjectFunc: func(ctx context.Context, projectID string) (*project.Project, error) {
			return &project.Project{ID: projectID, UserID: "alice", Items: []project.Item{{ID: "i1", Text: "secret plan"}}}, nil
		},
		ListMessagesFunc: func(ctx context.Context, projectID string, opts conversation.ListOptions) ([]conversation.Message, error) {
			listed++
			return nil, nil
		},
		GetRunFunc: func(ctx context.Context, runID string) (*coordination.Run, error) {
			return coordination.NewRun("p1", "alice", "m1", "hi", nil, time.Now()), nil
		},
	}
	broker := updates.NewBroker(0, 0, zerolog.Nop())
	broker.Publish(context.Background(), updates.Update{ProjectID: "p1", RunID: "run_1", Event: updates.EventRunCompleted})
	r := setupRouter(svc, broker, mw)

	other := headersFor("mallory")
	for _, path := range []string{"/v1/projects/p1", "/v1/projects/p1/messages", "/v1/projects/p1/updates", "/v1/runs/run_1"} {
		if w := getWith(r, path, other); w.Code != http.StatusForbidden {
			t.Errorf("%s as another user: expected 403, got %d: %s", path, w.Code, w.Body.String())
		}
	}
	if listed != 0 {
		t.Errorf("messages were listed for another user")
	}

	owner := headersFor("alice")
	for _, path := range []string{"/v1/projects/p1", "/v1/projects/p1/messages", "/v1/runs/run_1"} {
		if w := getWith(r, path, owner); w.Code != http.StatusOK {
			t.Errorf("%s as owner: expected 200, got %d", path, w.Code)
		}
	}

	var drained responses.UpdateListResponse
	w := getWith(r, "/v1/projects/p1/updates", owner)
	if err := json.Unmarshal(w.Body.Bytes(), &drained); err != nil {
		t.Fatal(err)
	}
	if len(drained.Data) != 1 || drained.Data[0].RunID != "run_1" {
		t.Errorf("owner should still receive the pending update, got %+v", drained.Data)
	}
}
