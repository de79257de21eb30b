package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okolin/scribe/internal/core/domain"
)

type dispatcherFake struct {
	result     domain.DispatchResult
	err        error
	asyncCalls int
	syncCalls  int
	ended      []string
	lastReq    domain.ChatRequest
}

func (f *dispatcherFake) Dispatch(_ context.Context, req domain.ChatRequest) (domain.DispatchResult, error) {
	f.syncCalls++
	f.lastReq = req
	return f.result, f.err
}

func (f *dispatcherFake) DispatchAsync(_ context.Context, req domain.ChatRequest) (domain.DispatchResult, error) {
	f.asyncCalls++
	f.lastReq = req
	return f.result, f.err
}

func (f *dispatcherFake) EndSession(sessionID string) {
	f.ended = append(f.ended, sessionID)
}

type artifactIndexStub struct {
	artifact *domain.Artifact
}

func (s *artifactIndexStub) Create(context.Context, *domain.Artifact) error { return nil }

func (s *artifactIndexStub) GetByID(_ context.Context, id string) (*domain.Artifact, error) {
	if s.artifact == nil || s.artifact.ID != id {
		return nil, domain.WrapError(domain.ErrArtifactNotFound, "get artifact", nil)
	}
	return s.artifact, nil
}

func (s *artifactIndexStub) LatestByKind(context.Context, string, domain.ArtifactKind) (*domain.Artifact, error) {
	return nil, domain.WrapError(domain.ErrArtifactNotFound, "latest artifact", nil)
}

type runStoreStub struct {
	run *domain.PipelineRun
}

func (s *runStoreStub) Create(context.Context, *domain.PipelineRun) error { return nil }

func (s *runStoreStub) GetByID(_ context.Context, id string) (*domain.PipelineRun, error) {
	if s.run == nil || s.run.ID != id {
		return nil, domain.WrapError(domain.ErrRunNotFound, "get run", nil)
	}
	return s.run, nil
}

func (s *runStoreStub) UpdateState(context.Context, string, domain.RunState, int, domain.RunState, string) error {
	return nil
}

func newTestRouter(dispatcher *dispatcherFake, index *artifactIndexStub, runs *runStoreStub, options RouterOptions) http.Handler {
	return NewRouter(dispatcher, index, runs, options).Handler()
}

func TestPostMessageDispatchesSync(t *testing.T) {
	dispatcher := &dispatcherFake{result: domain.DispatchResult{
		Action:  domain.ActionGenerateDocument,
		Receipt: &domain.Receipt{Path: "/ws/documents/japan.md", WordCount: 1200},
		RunID:   "run-1",
	}}
	handler := newTestRouter(dispatcher, &artifactIndexStub{}, &runStoreStub{}, RouterOptions{})

	body := `{"user_id":"u1","session_id":"s1","text":"write an essay on japan"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if dispatcher.syncCalls != 1 || dispatcher.asyncCalls != 0 {
		t.Fatalf("expected one sync dispatch, got sync=%d async=%d", dispatcher.syncCalls, dispatcher.asyncCalls)
	}
	if dispatcher.lastReq.SessionID != "s1" {
		t.Fatalf("session not forwarded: %+v", dispatcher.lastReq)
	}

	var result domain.DispatchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Receipt == nil || result.Receipt.WordCount != 1200 {
		t.Fatalf("receipt not returned: %+v", result)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("request id header missing")
	}
}

func TestPostMessageAsyncReturnsAccepted(t *testing.T) {
	dispatcher := &dispatcherFake{result: domain.DispatchResult{
		Action: domain.ActionGenerateDocument,
		RunID:  "run-9",
	}}
	handler := newTestRouter(dispatcher, &artifactIndexStub{}, &runStoreStub{}, RouterOptions{})

	body := `{"session_id":"s1","text":"write an essay on japan","async":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", res.Code)
	}
	if dispatcher.asyncCalls != 1 {
		t.Fatalf("expected async dispatch, got %d", dispatcher.asyncCalls)
	}
}

func TestPostMessageValidation(t *testing.T) {
	handler := newTestRouter(&dispatcherFake{}, &artifactIndexStub{}, &runStoreStub{}, RouterOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing text", `{"session_id":"s1"}`},
		{"missing session", `{"text":"hello"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(tt.body))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", res.Code)
			}
		})
	}
}

func TestGetArtifactByID(t *testing.T) {
	index := &artifactIndexStub{artifact: &domain.Artifact{
		ID:        "art-1",
		SessionID: "s1",
		Kind:      domain.KindDocument,
		Path:      "/ws/documents/japan.md",
		CreatedAt: time.Now().UTC(),
	}}
	handler := newTestRouter(&dispatcherFake{}, index, &runStoreStub{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/artifacts/art-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/artifacts/missing", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestGetRunByID(t *testing.T) {
	runs := &runStoreStub{run: &domain.PipelineRun{
		ID:        "run-1",
		SessionID: "s1",
		State:     domain.StatePersisted,
	}}
	handler := newTestRouter(&dispatcherFake{}, &artifactIndexStub{}, runs, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}

	var run domain.PipelineRun
	if err := json.NewDecoder(res.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.State != domain.StatePersisted {
		t.Fatalf("state = %s, want PERSISTED", run.State)
	}
}

func TestDeleteSessionEndsRegistry(t *testing.T) {
	dispatcher := &dispatcherFake{}
	handler := newTestRouter(dispatcher, &artifactIndexStub{}, &runStoreStub{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", res.Code)
	}
	if len(dispatcher.ended) != 1 || dispatcher.ended[0] != "s1" {
		t.Fatalf("session not ended: %v", dispatcher.ended)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&dispatcherFake{}, &artifactIndexStub{}, &runStoreStub{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
}
