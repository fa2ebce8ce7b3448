package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docseek/internal/core"
	"docseek/internal/directory"
	"docseek/pkg"
)

type testEnv struct {
	srv      *Server
	store    *memStore
	chatLLM  *fakeLLM
	matchLLM *fakeLLM
	titleLLM *fakeLLM
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, messageCap int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir, err := directory.Default()
	require.NoError(t, err)

	env := &testEnv{
		store:    newMemStore(),
		chatLLM:  &fakeLLM{},
		matchLLM: &fakeLLM{replies: []string{`{"specialty":"neurology"}`}},
		titleLLM: &fakeLLM{replies: []string{"Recurring headaches"}},
		notifier: &fakeNotifier{events: make(chan string)},
	}
	selector, err := core.NewCompletionSelector(env.matchLLM, dir)
	require.NoError(t, err)
	logger := zap.NewNop()
	doctors := core.NewDoctorService(dir, selector, logger)

	env.srv, err = New(Config{
		Logger:       logger,
		Mode:         gin.TestMode,
		Store:        env.store,
		Notifier:     env.notifier,
		Chat:         core.NewChatService(env.chatLLM, doctors, logger),
		Doctors:      doctors,
		Router:       core.NewRouter(dir),
		Titles:       core.NewTitleGenerator(env.titleLLM),
		MessageCap:   messageCap,
		HistoryLimit: 50,
	})
	require.NoError(t, err)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	return w
}

func (env *testEnv) createThread(t *testing.T) pkg.Thread {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/threads", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var thread pkg.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))
	return thread
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Mode: gin.TestMode})
	assert.Error(t, err)
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, 5)
	for _, path := range []string{"/health", "/ready", "/live"} {
		w := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	env.store.pingErr = errors.New("down")
	w := env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPostMessageConversation(t *testing.T) {
	env := newTestEnv(t, 5)
	env.chatLLM.replies = []string{"How long have you had the headache?"}
	thread := env.createThread(t)
	assert.Equal(t, 5, thread.MessageCap)

	w := env.do(t, http.MethodPost, "/api/threads/"+thread.ID+"/messages", pkg.ChatRequest{Content: "I have a headache"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "How long have you had the headache?", resp.Reply)
	assert.False(t, resp.Capped)

	env.srv.background.Wait()
	w = env.do(t, http.MethodGet, "/api/threads/"+thread.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail pkg.ThreadDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Recurring headaches", detail.Thread.Title)
	require.Len(t, detail.Transcript, 2)
	assert.Equal(t, pkg.RolePatient, detail.Transcript[0].Role)
	assert.Equal(t, pkg.RoleBot, detail.Transcript[1].Role)
	assert.Empty(t, detail.Recommendations)
}

func TestPostMessageRecommendsDoctors(t *testing.T) {
	env := newTestEnv(t, 5)
	env.chatLLM.replies = []string{"Thanks.\nFIND_DOCTORS {\"diagnosis\":\"migraine with aura\",\"symptoms\":\"headache\",\"severity\":\"medium\"}"}
	thread := env.createThread(t)

	w := env.do(t, http.MethodPost, "/api/threads/"+thread.ID+"/messages", pkg.ChatRequest{Content: "flashing lights then a headache"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Recommendation, "Based on the diagnosis of migraine with aura, I recommend seeing a neurology."))
	assert.Contains(t, resp.Reply, resp.Recommendation)

	env.srv.background.Wait()
	recs, err := env.store.ListRecommendations(context.Background(), thread.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "neurology", recs[0].Specialty)
	assert.Equal(t, []string{thread.ID}, env.notifier.notified)
}

func TestPostMessageCap(t *testing.T) {
	env := newTestEnv(t, 1)
	env.chatLLM.replies = []string{"Tell me more."}
	thread := env.createThread(t)
	path := "/api/threads/" + thread.ID + "/messages"

	w := env.do(t, http.MethodPost, path, pkg.ChatRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var first pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.Capped)

	w = env.do(t, http.MethodPost, path, pkg.ChatRequest{Content: "are you there?"})
	require.Equal(t, http.StatusOK, w.Code)
	var second pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Capped)
	assert.Equal(t, core.CapMessage, second.Reply)
	assert.Equal(t, 1, env.chatLLM.calls)
	env.srv.background.Wait()
}

func TestPostMessageFallback(t *testing.T) {
	env := newTestEnv(t, 5)
	env.chatLLM.err = errors.New("upstream down")
	env.titleLLM.err = errors.New("upstream down")
	thread := env.createThread(t)

	w := env.do(t, http.MethodPost, "/api/threads/"+thread.ID+"/messages", pkg.ChatRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, core.FallbackReply, resp.Reply)

	env.srv.background.Wait()
	got, err := env.store.GetThread(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultTitle, got.Title)
}

func TestPostMessageErrors(t *testing.T) {
	env := newTestEnv(t, 5)
	thread := env.createThread(t)

	w := env.do(t, http.MethodPost, "/api/threads/"+thread.ID+"/messages", pkg.ChatRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid content: is required"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/threads/"+thread.ID+"/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid content: is required"}`, w.Body.String())
	assert.Zero(t, env.chatLLM.calls)

	w = env.do(t, http.MethodPost, "/api/threads/missing/messages", pkg.ChatRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/threads/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecommend(t *testing.T) {
	env := newTestEnv(t, 5)
	thread := env.createThread(t)

	w := env.do(t, http.MethodPost, "/api/recommendations", pkg.RecommendRequest{
		Diagnosis: "migraine with aura",
		Symptoms:  "headache, flashing lights",
		ThreadID:  thread.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "neurology", resp.Specialty)
	assert.False(t, resp.Failed)
	assert.Contains(t, resp.Recommendation, "Recommended doctors:\n- ")

	recs, err := env.store.ListRecommendations(context.Background(), thread.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "medium", recs[0].Severity)
}

func TestRecommendUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, 5)
	env.matchLLM.err = errors.New("quota exceeded")

	w := env.do(t, http.MethodPost, "/api/recommendations", pkg.RecommendRequest{Diagnosis: "flu", Symptoms: "fever"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Failed)
	assert.Equal(t, "Error: Unable to find appropriate doctors at this time. Please try again later. quota exceeded", resp.Recommendation)
}

func TestRecommendValidation(t *testing.T) {
	env := newTestEnv(t, 5)

	tests := []struct {
		name    string
		body    pkg.RecommendRequest
		code    int
		message string
	}{
		{name: "missing diagnosis", body: pkg.RecommendRequest{Symptoms: "fever"}, code: http.StatusBadRequest, message: "invalid diagnosis: is required"},
		{name: "blank symptoms", body: pkg.RecommendRequest{Diagnosis: "flu", Symptoms: " \t"}, code: http.StatusBadRequest, message: "invalid symptoms: is required"},
		{name: "bad severity", body: pkg.RecommendRequest{Diagnosis: "flu", Symptoms: "fever", Severity: "urgent"}, code: http.StatusBadRequest, message: "invalid severity: must be one of low, medium, high, emergency"},
		{name: "unknown thread", body: pkg.RecommendRequest{Diagnosis: "flu", Symptoms: "fever", ThreadID: "nope"}, code: http.StatusNotFound, message: "thread not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/recommendations", tt.body)
			assert.Equal(t, tt.code, w.Code)
			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Error)
		})
	}
	assert.Zero(t, env.matchLLM.calls)
}

func TestListSpecialties(t *testing.T) {
	env := newTestEnv(t, 5)
	w := env.do(t, http.MethodGet, "/api/specialties", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Specialties []string `json:"specialties"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Specialties, 12)
	assert.Equal(t, "cardiology", resp.Specialties[0])
}

func TestRouteDoctor(t *testing.T) {
	env := newTestEnv(t, 5)

	w := env.do(t, http.MethodGet, "/api/doctors/route?symptom=FEVER&location=kuala%20lumpur", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Found  bool                   `json:"found"`
		Doctor *directory.DoctorEntry `json:"doctor"`
		Reason string                 `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, "Dr. Sharma", resp.Doctor.Name)
	assert.Equal(t, "Matched doctor for symptom 'FEVER' in kuala lumpur.", resp.Reason)

	w = env.do(t, http.MethodGet, "/api/doctors/route?symptom=hiccups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":false`)

	w = env.do(t, http.MethodGet, "/api/doctors/route", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid symptom: is required"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, 5)
	env.srv.limiter = newRateLimiter(1)
	env.srv.gin = gin.New()
	env.srv.mapHandlers()

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/specialties", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/specialties", nil).Code)
	// health checks are not limited
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestStreamThread(t *testing.T) {
	env := newTestEnv(t, 5)
	thread := env.createThread(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/threads/"+thread.ID+"/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.srv.Handler().ServeHTTP(w, req)
	}()

	env.notifier.events <- "other-thread"
	require.NoError(t, env.store.SaveRecommendation(context.Background(), &pkg.RecommendationRecord{
		ThreadID: thread.ID, Diagnosis: "migraine", Symptoms: "headache", Severity: "medium", Text: "see a neurologist",
	}))
	env.notifier.events <- thread.ID
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(body, "event:recommendations"))
	assert.Contains(t, body, "see a neurologist")
}

func TestStreamRequiresNotifier(t *testing.T) {
	env := newTestEnv(t, 5)
	env.srv.notifier = nil
	thread := env.createThread(t)

	w := env.do(t, http.MethodGet, "/api/threads/"+thread.ID+"/stream", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
