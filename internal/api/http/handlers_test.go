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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/api/middleware"
	"github.com/GriffinCanCode/computer-agent/internal/api/ws"
	"github.com/GriffinCanCode/computer-agent/internal/domain/capability"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/dispatch"
	"github.com/GriffinCanCode/computer-agent/internal/domain/inspect"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
	"github.com/GriffinCanCode/computer-agent/internal/domain/turn"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	launcher *testutil.FakeLauncher
	registry *session.Registry
	hub      *ws.Hub
	metrics  *monitoring.Metrics
	router   *gin.Engine
}

func newFixture(t *testing.T, loop agent.Loop, configure func(*testutil.FakeComputer)) *fixture {
	t.Helper()
	if loop == nil {
		loop = testutil.NewMockLoop(t, "Done.")
	}

	launcher := testutil.NewFakeLauncher(configure)
	resolver := capability.NewResolver(nil, time.Second)
	registry := session.NewRegistry(launcher, resolver, session.Config{
		DefaultStartURL: "https://bing.com",
		CallTimeout:     time.Second,
	}, nil, nil)
	metrics := monitoring.NewMetrics()
	hub := ws.NewHub(nil)

	handlers := NewHandlers(Deps{
		Registry:    registry,
		Dispatcher:  dispatch.New(registry, nil, metrics),
		Coordinator: turn.New(registry, loop, 200*time.Millisecond, nil, metrics),
		Inspector:   inspect.New(registry, resolver, nil),
		Hub:         hub,
		Metrics:     metrics,
	})

	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	handlers.Register(router.Group("/api"))
	handlers.Register(router)

	return &fixture{launcher: launcher, registry: registry, hub: hub, metrics: metrics, router: router}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (f *fixture) create(t *testing.T, kind string) string {
	t.Helper()
	code, body := f.do(t, http.MethodPost, "/api/sessions", gin.H{"computer": kind})
	require.Equal(t, http.StatusOK, code, body)
	return body["session_id"].(string)
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantKind string
		wantURL  string
	}{
		{name: "browser", body: gin.H{"computer": "browser"}, wantKind: "browser", wantURL: "https://bing.com"},
		{name: "legacy browser name", body: gin.H{"computer": "scrapybara-browser"}, wantKind: "browser", wantURL: "https://bing.com"},
		{name: "desktop alias", body: gin.H{"computer": "scrapybara-ubuntu"}, wantKind: "desktop"},
		{name: "default kind", body: gin.H{}, wantKind: "browser", wantURL: "https://bing.com"},
		{name: "empty body", body: nil, wantKind: "browser", wantURL: "https://bing.com"},
		{
			name:     "custom start url",
			body:     gin.H{"computer": "browser", "start_url": "https://example.com"},
			wantKind: "browser",
			wantURL:  "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)

			code, body := f.do(t, http.MethodPost, "/api/sessions", tt.body)

			require.Equal(t, http.StatusOK, code, body)
			assert.True(t, strings.HasPrefix(body["session_id"].(string), "sess_"))
			assert.Equal(t, tt.wantKind, body["computer_type"])
			assert.Equal(t, testutil.FakeImage, body["screenshot"])
			assert.Equal(t, "Session created with "+tt.wantKind, body["message"])
			assert.NotContains(t, body, "stream_url")
			assert.Equal(t, 1, f.registry.Len())

			fake := f.launcher.Last()
			if tt.wantURL == "" {
				assert.Empty(t, fake.Actions())
			} else {
				assert.Equal(t, []computer.Action{computer.Goto{URL: tt.wantURL}}, fake.Actions())
			}
		})
	}
}

func TestCreateSessionReportsStreamURL(t *testing.T) {
	f := newFixture(t, nil, func(fc *testutil.FakeComputer) { fc.SetStreamURL("https://stream.example/1") })

	code, body := f.do(t, http.MethodPost, "/api/sessions", gin.H{"computer": "desktop"})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://stream.example/1", body["stream_url"])
}

func TestCreateSessionFailures(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		setup     func(*fixture)
		configure func(*testutil.FakeComputer)
		status    int
		errPrefix string
		releases  int
	}{
		{
			name:      "unsupported kind",
			body:      gin.H{"computer": "mainframe"},
			status:    http.StatusBadRequest,
			errPrefix: "Unknown computer type: mainframe",
		},
		{
			name:   "malformed json",
			body:   "{not json",
			status: http.StatusBadRequest,
		},
		{
			name:   "launch failure",
			body:   gin.H{"computer": "browser"},
			setup:  func(f *fixture) { f.launcher.Fail(errors.New("no capacity")) },
			status: http.StatusInternalServerError,
		},
		{
			name:      "start navigation failure",
			body:      gin.H{"computer": "browser"},
			configure: func(fc *testutil.FakeComputer) { fc.FailDo(errors.New("navigation refused")) },
			status:    http.StatusInternalServerError,
			releases:  1,
		},
		{
			name:      "first screenshot failure registers nothing",
			body:      gin.H{"computer": "desktop"},
			configure: func(fc *testutil.FakeComputer) { fc.FailScreenshot(errors.New("black screen")) },
			status:    http.StatusInternalServerError,
			releases:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, tt.configure)
			if tt.setup != nil {
				tt.setup(f)
			}

			code, body := f.do(t, http.MethodPost, "/api/sessions", tt.body)

			assert.Equal(t, tt.status, code)
			require.Contains(t, body, "error")
			if tt.errPrefix != "" {
				assert.True(t, strings.HasPrefix(body["error"].(string), tt.errPrefix), body["error"])
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotEmpty(t, body["details"])
			}
			assert.Zero(t, f.registry.Len())
			if fake := f.launcher.Last(); fake != nil {
				assert.Equal(t, tt.releases, fake.Releases())
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.create(t, "browser")
	events, cancel := f.hub.Subscribe(id)
	defer cancel()

	code, body := f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session "+id+" deleted", body["message"])
	assert.Equal(t, 1, f.launcher.Last().Releases())

	ev := <-events
	assert.Equal(t, ws.EventDeleted, ev.Type)

	code, body = f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Session not found: "+id, body["error"])
	assert.Equal(t, 1, f.launcher.Last().Releases())
}

func TestDeleteSessionReleaseFailure(t *testing.T) {
	f := newFixture(t, nil, func(fc *testutil.FakeComputer) { fc.FailRelease(errors.New("stop failed")) })
	id := f.create(t, "desktop")

	code, body := f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)

	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["warning"])
	assert.Zero(t, f.registry.Len())
}

func TestInteract(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.create(t, "browser")
	events, cancel := f.hub.Subscribe(id)
	defer cancel()

	code, body := f.do(t, http.MethodPost, "/api/sessions/"+id+"/interact", gin.H{"input": "search for news"})

	require.Equal(t, http.StatusOK, code, body)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "message", item["type"])
	assert.Equal(t, "assistant", item["role"])
	assert.Equal(t, "Done.", item["content"])
	assert.NotEmpty(t, item["id"])
	assert.Equal(t, testutil.FakeImage, body["screenshot"])
	assert.Equal(t, "https://bing.com", body["current_url"])

	ev := <-events
	assert.Equal(t, ws.EventTurn, ev.Type)
	assert.Len(t, ev.Items, 1)
}

func TestInteractFailures(t *testing.T) {
	tests := []struct {
		name    string
		loop    func() agent.Loop
		session string
		body    any
		status  int
		err     string
	}{
		{name: "missing input", body: gin.H{}, status: http.StatusBadRequest, err: "Input is required"},
		{name: "blank input", body: gin.H{"input": "   "}, status: http.StatusBadRequest, err: "Input is required"},
		{name: "unknown session", session: "sess_missing", body: gin.H{"input": "hi"}, status: http.StatusNotFound},
		{name: "malformed json", body: "{not json", status: http.StatusBadRequest, err: "Invalid JSON body"},
		{name: "unknown session with malformed json", session: "sess_missing", body: "{not json", status: http.StatusNotFound, err: "Session not found: sess_missing"},
		{
			name: "agent failure",
			loop: func() agent.Loop {
				m := new(testutil.MockLoop)
				m.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("model down"))
				return m
			},
			body:   gin.H{"input": "hi"},
			status: http.StatusInternalServerError,
		},
		{
			name: "agent timeout",
			loop: func() agent.Loop {
				return agent.LoopFunc(func(ctx context.Context, _ computer.Computer, _ []transcript.Item, _ agent.Options) ([]transcript.Item, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})
			},
			body:   gin.H{"input": "hi"},
			status: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loop agent.Loop
			if tt.loop != nil {
				loop = tt.loop()
			}
			f := newFixture(t, loop, nil)
			id := f.create(t, "desktop")
			if tt.session != "" {
				id = tt.session
			}

			code, body := f.do(t, http.MethodPost, "/api/sessions/"+id+"/interact", tt.body)

			assert.Equal(t, tt.status, code, body)
			require.Contains(t, body, "error")
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}
}

func TestExecuteAction(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.create(t, "browser")
	events, cancel := f.hub.Subscribe(id)
	defer cancel()

	code, body := f.do(t, http.MethodPost, "/api/sessions/"+id+"/action", gin.H{"type": "click", "x": 100, "y": 200})

	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Action click executed", body["message"])
	assert.Equal(t, testutil.FakeImage, body["screenshot"])
	assert.Equal(t, "https://bing.com", body["current_url"])
	assert.Equal(t, computer.Click{X: 100, Y: 200}, f.launcher.Last().Actions()[1])

	ev := <-events
	assert.Equal(t, ws.EventAction, ev.Type)
	assert.Equal(t, "click", ev.Action)
}

func TestExecuteActionFailures(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		session string
		body    any
		status  int
		err     string
	}{
		{name: "missing type", kind: "browser", body: gin.H{"x": 1}, status: http.StatusBadRequest, err: "Action type is required"},
		{name: "unknown action", kind: "browser", body: gin.H{"type": "fly"}, status: http.StatusBadRequest, err: "Unknown action: fly"},
		{name: "browser-only action on desktop", kind: "desktop", body: gin.H{"type": "goto", "url": "https://x.test"}, status: http.StatusBadRequest, err: "Unknown action: goto"},
		{name: "bad params", kind: "desktop", body: gin.H{"type": "click", "x": 1, "y": 2, "z": 3}, status: http.StatusBadRequest},
		{name: "unknown session", kind: "desktop", session: "sess_missing", body: gin.H{"type": "click"}, status: http.StatusNotFound},
		{name: "malformed json", kind: "desktop", body: "{not json", status: http.StatusBadRequest, err: "Invalid JSON body"},
		{name: "unknown session with malformed json", kind: "desktop", session: "sess_missing", body: "{not json", status: http.StatusNotFound, err: "Session not found: sess_missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			id := f.create(t, tt.kind)
			if tt.session != "" {
				id = tt.session
			}
			before := len(f.launcher.Last().Actions())

			code, body := f.do(t, http.MethodPost, "/api/sessions/"+id+"/action", tt.body)

			assert.Equal(t, tt.status, code, body)
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
			assert.Len(t, f.launcher.Last().Actions(), before)
		})
	}
}

func TestExecuteActionBackendFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.create(t, "desktop")
	f.launcher.Last().FailDo(errors.New("provider exploded"))

	code, body := f.do(t, http.MethodPost, "/api/sessions/"+id+"/action", gin.H{"type": "type", "text": "x"})

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["details"], "provider exploded")
}

func TestScreenshot(t *testing.T) {
	f := newFixture(t, nil, func(fc *testutil.FakeComputer) { fc.SetStreamURL("https://stream.example/1") })
	id := f.create(t, "desktop")

	code, body := f.do(t, http.MethodGet, "/api/sessions/"+id+"/screenshot", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, testutil.FakeImage, body["screenshot"])
	assert.Equal(t, "https://stream.example/1", body["stream_url"])

	code, _ = f.do(t, http.MethodGet, "/api/sessions/sess_missing/screenshot", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, body := f.do(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["sessions"])

	browser := f.create(t, "browser")
	desktop := f.create(t, "desktop")

	_, body = f.do(t, http.MethodGet, "/api/sessions", nil)
	sessions := body["sessions"].(map[string]any)
	require.Len(t, sessions, 2)
	assert.Equal(t, "browser", sessions[browser].(map[string]any)["computer_type"])
	assert.Equal(t, "desktop", sessions[desktop].(map[string]any)["computer_type"])
	assert.NotEmpty(t, sessions[browser].(map[string]any)["created_at"])
}

func TestDebugSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.create(t, "desktop")

	for _, path := range []string{"/api/sessions/" + id + "/debug", "/api/debug/session/" + id, "/debug/session/" + id} {
		code, body := f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, code, path)
		assert.Equal(t, id, body["session_id"])
		assert.Equal(t, "desktop", body["computer_type"])
		info := body["computer_info"].(map[string]any)
		assert.Equal(t, "FakeComputer", info["type"])
		assert.Contains(t, info["actions"], "click")
		assert.NotContains(t, info["actions"], "goto")
	}

	code, _ := f.do(t, http.MethodGet, "/api/sessions/sess_missing/debug", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRootMirrorsAPI(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, body := f.do(t, http.MethodPost, "/sessions", gin.H{"computer": "desktop"})
	require.Equal(t, http.StatusOK, code)
	id := body["session_id"].(string)

	code, _ = f.do(t, http.MethodGet, "/api/sessions/"+id+"/screenshot", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.create(t, "desktop")

	code, body := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])

	code, body = f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 1.0, body["sessions"])
	assert.Contains(t, body, "summary")
}

func TestHealthReporterErrorRate(t *testing.T) {
	metrics := monitoring.NewMetrics()
	metrics.RecordHTTPRequest("GET", "/a", "200", time.Millisecond)
	metrics.RecordHTTPRequest("GET", "/a", "500", time.Millisecond)
	registry := session.NewRegistry(testutil.NewFakeLauncher(nil), nil, session.Config{}, nil, nil)

	report := NewHealthReporter(registry, metrics).Report(time.Now())

	assert.Equal(t, int64(2), report.Summary.TotalRequests)
	assert.InDelta(t, 0.5, report.Summary.ErrorRate, 1e-9)
	assert.Zero(t, report.Sessions)
}
