package scrapybara

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
)

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeProvider is an in-memory Scrapybara API.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	requests   []recorded
	statuses   []string
	streamBody string
	currentURL string
	apiKeys    []string
	broken     map[string]bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	f := &fakeProvider{
		t:          t,
		statuses:   []string{statusRunning},
		streamBody: `{"stream_url":"https://stream.example/abc"}`,
		currentURL: "https://bing.com/",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /start", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		f.json(w, InstanceInfo{ID: "inst-1", Status: statusDeploying, InstanceType: body["instance_type"].(string)})
	})
	mux.HandleFunc("GET /instance/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		status := f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
		f.mu.Unlock()
		f.json(w, InstanceInfo{ID: r.PathValue("id"), Status: status, LaunchTime: "2024-01-01T00:00:00Z"})
	})
	mux.HandleFunc("POST /instance/{id}/computer", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		f.mu.Lock()
		broken := f.broken[r.PathValue("id")]
		f.mu.Unlock()
		if broken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if body["action"] == "take_screenshot" {
			f.json(w, computerResponse{Base64Image: "iVBORw0KGgo="})
			return
		}
		f.json(w, computerResponse{Output: "ok"})
	})
	mux.HandleFunc("GET /instance/{id}/stream_url", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		body := f.streamBody
		f.mu.Unlock()
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("POST /instance/{id}/browser/start", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.json(w, browserStartResponse{CDPURL: "ws://cdp.example/1"})
	})
	mux.HandleFunc("POST /instance/{id}/browser/{verb}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.json(w, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("GET /instance/{id}/browser/current_url", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.json(w, currentURLResponse{CurrentURL: f.currentURL})
	})
	mux.HandleFunc("POST /instance/{id}/stop", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.json(w, map[string]any{"status": "terminated"})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeProvider) record(r *http.Request) map[string]any {
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
	f.apiKeys = append(f.apiKeys, r.Header.Get("x-api-key"))
	f.mu.Unlock()
	return body
}

func (f *fakeProvider) json(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeProvider) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (f *fakeProvider) count(method, path string) int {
	n := 0
	for _, p := range f.paths() {
		if p == method+" "+path {
			n++
		}
	}
	return n
}

func (f *fakeProvider) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeProvider) client() *Client {
	return NewClient(Config{
		BaseURL:      f.server.URL,
		APIKey:       "sk-test",
		Timeout:      5 * time.Second,
		ReadyTimeout: 2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	}, nil, nil)
}

func launch(t *testing.T, f *fakeProvider, kind computer.Kind) *Computer {
	t.Helper()
	c, err := NewLauncher(f.client(), nil).Launch(context.Background(), kind)
	require.NoError(t, err)
	return c.(*Computer)
}

func TestLaunchBrowserStartsBrowser(t *testing.T) {
	f := newFakeProvider(t)

	c := launch(t, f, computer.Browser)

	assert.Equal(t, computer.Browser, c.Kind())
	assert.Equal(t, "inst-1", c.ID())
	assert.Equal(t, []string{
		"POST /start",
		"GET /instance/inst-1",
		"POST /instance/inst-1/browser/start",
	}, f.paths())
	assert.Equal(t, "browser", f.requests[0].Body["instance_type"])
	assert.Equal(t, "sk-test", f.apiKeys[0])
}

func TestLaunchDesktopSkipsBrowser(t *testing.T) {
	f := newFakeProvider(t)

	c := launch(t, f, computer.Desktop)

	assert.Equal(t, computer.Desktop, c.Kind())
	assert.Equal(t, "ubuntu", f.requests[0].Body["instance_type"])
	assert.Zero(t, f.count(http.MethodPost, "/instance/inst-1/browser/start"))
}

func TestLaunchPollsUntilRunning(t *testing.T) {
	f := newFakeProvider(t)
	f.statuses = []string{statusDeploying, statusDeploying, statusRunning}

	launch(t, f, computer.Desktop)

	assert.Equal(t, 3, f.count(http.MethodGet, "/instance/inst-1"))
}

func TestLaunchFailedInstanceIsStopped(t *testing.T) {
	f := newFakeProvider(t)
	f.statuses = []string{statusError}

	_, err := NewLauncher(f.client(), nil).Launch(context.Background(), computer.Browser)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceFailed)
	assert.Equal(t, 1, f.count(http.MethodGet, "/instance/inst-1"))
	assert.Equal(t, 1, f.count(http.MethodPost, "/instance/inst-1/stop"))
}

func TestLaunchRejectsUnknownKind(t *testing.T) {
	f := newFakeProvider(t)

	_, err := NewLauncher(f.client(), nil).Launch(context.Background(), computer.Kind("tablet"))

	require.Error(t, err)
	assert.Empty(t, f.paths())
}

func TestComputerActions(t *testing.T) {
	tests := []struct {
		name   string
		action computer.Action
		expect map[string]any
	}{
		{
			name:   "click defaults to left button",
			action: computer.Click{X: 10, Y: 20},
			expect: map[string]any{"action": "click_mouse", "coordinates": []any{10.0, 20.0}, "button": "left", "num_clicks": 1.0},
		},
		{
			name:   "right click",
			action: computer.Click{X: 1, Y: 2, Button: "right"},
			expect: map[string]any{"action": "click_mouse", "coordinates": []any{1.0, 2.0}, "button": "right", "num_clicks": 1.0},
		},
		{
			name:   "double click",
			action: computer.DoubleClick{X: 3, Y: 4},
			expect: map[string]any{"action": "click_mouse", "coordinates": []any{3.0, 4.0}, "button": "left", "num_clicks": 2.0},
		},
		{
			name:   "move",
			action: computer.Move{X: 5, Y: 6},
			expect: map[string]any{"action": "move_mouse", "coordinates": []any{5.0, 6.0}},
		},
		{
			name:   "drag",
			action: computer.Drag{Path: []computer.Point{{X: 1, Y: 1}, {X: 9, Y: 9}}},
			expect: map[string]any{"action": "drag_mouse", "path": []any{[]any{1.0, 1.0}, []any{9.0, 9.0}}},
		},
		{
			name:   "scroll divides pixels into clicks",
			action: computer.Scroll{X: 100, Y: 200, ScrollX: 0, ScrollY: 400},
			expect: map[string]any{"action": "scroll", "coordinates": []any{100.0, 200.0}, "delta_x": 0.0, "delta_y": 20.0},
		},
		{
			name:   "type",
			action: computer.Type{Text: "hello"},
			expect: map[string]any{"action": "type_text", "text": "hello"},
		},
		{
			name:   "keypress maps key names",
			action: computer.Keypress{Keys: []string{"CTRL", "enter"}},
			expect: map[string]any{"action": "press_key", "keys": []any{"ctrl", "Return"}},
		},
		{
			name:   "wait converts milliseconds",
			action: computer.Wait{Ms: 1500},
			expect: map[string]any{"action": "wait", "duration": 1.5},
		},
		{
			name:   "wait defaults to a second",
			action: computer.Wait{},
			expect: map[string]any{"action": "wait", "duration": 1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProvider(t)
			c := launch(t, f, computer.Desktop)

			require.NoError(t, c.Do(context.Background(), tt.action))

			got := f.last()
			assert.Equal(t, "/instance/inst-1/computer", got.Path)
			assert.Equal(t, false, got.Body["screenshot"])
			delete(got.Body, "screenshot")
			assert.Equal(t, tt.expect, got.Body)
		})
	}
}

func TestComputerBrowserNavigation(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Browser)
	ctx := context.Background()

	require.NoError(t, c.Do(ctx, computer.Goto{URL: "https://example.com"}))
	got := f.last()
	assert.Equal(t, "/instance/inst-1/browser/goto", got.Path)
	assert.Equal(t, "https://example.com", got.Body["url"])

	require.NoError(t, c.Do(ctx, computer.Back{}))
	assert.Equal(t, "/instance/inst-1/browser/back", f.last().Path)

	require.NoError(t, c.Do(ctx, computer.Forward{}))
	assert.Equal(t, "/instance/inst-1/browser/forward", f.last().Path)

	u, err := c.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://bing.com/", u)
}

func TestComputerDesktopRejectsNavigation(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Desktop)
	before := len(f.paths())

	assert.Error(t, c.Do(context.Background(), computer.Goto{URL: "https://example.com"}))
	_, err := c.CurrentURL(context.Background())
	assert.Error(t, err)
	assert.Len(t, f.paths(), before)
}

func TestComputerTakeScreenshotActionIsNoop(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Desktop)
	before := len(f.paths())

	require.NoError(t, c.Do(context.Background(), computer.TakeScreenshot{}))
	assert.Len(t, f.paths(), before)
}

func TestComputerScreenshot(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Desktop)

	shot, err := c.Screenshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "iVBORw0KGgo=", shot)
	assert.Equal(t, "take_screenshot", f.last().Body["action"])
}

func TestFailingInstanceDoesNotBlockOthers(t *testing.T) {
	f := newFakeProvider(t)
	f.broken = map[string]bool{"inst-a": true}
	client := f.client()
	broken := &Computer{client: client, kind: computer.Desktop, info: InstanceInfo{ID: "inst-a"}}
	healthy := &Computer{client: client, kind: computer.Desktop, info: InstanceInfo{ID: "inst-b"}}

	for i := 0; i < 6; i++ {
		_, err := broken.Screenshot(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 5, f.count(http.MethodPost, "/instance/inst-a/computer"))

	shot, err := healthy.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "iVBORw0KGgo=", shot)

	_, err = client.Start(context.Background(), "ubuntu")
	assert.NoError(t, err)

	require.NoError(t, broken.Release(context.Background()))
	assert.Equal(t, 1, f.count(http.MethodPost, "/instance/inst-a/stop"))
}

func TestComputerStreamURL(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "structured", body: `{"stream_url":"https://stream.example/abc"}`, want: "https://stream.example/abc"},
		{name: "json string", body: `"https://stream.example/raw"`, want: "https://stream.example/raw"},
		{name: "bare text", body: "https://stream.example/text\n", want: "https://stream.example/text"},
		{name: "other object", body: `{"url":"x"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProvider(t)
			f.streamBody = tt.body
			c := launch(t, f, computer.Browser)

			got, err := c.Instance().StreamURL(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputerReleaseOnce(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Browser)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Release(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.count(http.MethodPost, "/instance/inst-1/stop"))
}

func TestComputerAttributes(t *testing.T) {
	f := newFakeProvider(t)
	c := launch(t, f, computer.Browser)

	names := map[string]any{}
	for _, a := range c.Attributes() {
		names[a.Name] = a.Value
	}

	assert.Equal(t, "inst-1", names["instance_id"])
	assert.Equal(t, statusRunning, names["status"])
	assert.Equal(t, "ws://cdp.example/1", names["cdp_url"])
	assert.Contains(t, names, "launch_time")
}

func TestWheelClicks(t *testing.T) {
	tests := []struct {
		px     int
		clicks int
	}{
		{0, 0},
		{10, 1},
		{20, 1},
		{30, 1},
		{400, 20},
		{-10, -1},
		{-20, -1},
		{-30, -2},
		{-400, -20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.clicks, wheelClicks(tt.px), "px=%d", tt.px)
	}
}

func TestMapKeys(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{in: []string{"ENTER"}, want: []string{"Return"}},
		{in: []string{"cmd", "c"}, want: []string{"super", "c"}},
		{in: []string{"ArrowLeft"}, want: []string{"Left"}},
		{in: []string{"a"}, want: []string{"a"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapKeys(tt.in), "%v", tt.in)
	}
}
