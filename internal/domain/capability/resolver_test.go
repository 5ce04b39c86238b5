package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/testutil"
)

type staticStream struct {
	url string
	err error
}

func (s staticStream) StreamURL(ctx context.Context) (string, error) { return s.url, s.err }

type panickyStream struct{}

func (panickyStream) StreamURL(ctx context.Context) (string, error) { panic("provider exploded") }

type blockingStream struct{}

func (blockingStream) StreamURL(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// bare embeds a fake so it satisfies computer.Computer but hides the fake's
// direct StreamURL method.
type bare struct{ c *testutil.FakeComputer }

func (b bare) Kind() computer.Kind { return b.c.Kind() }
func (b bare) Screenshot(ctx context.Context) (string, error) { return b.c.Screenshot(ctx) }
func (b bare) Do(ctx context.Context, a computer.Action) error { return b.c.Do(ctx, a) }
func (b bare) Release(ctx context.Context) error { return b.c.Release(ctx) }
func newBare() bare { return bare{testutil.NewFakeComputer(computer.Browser)} }

type withInstance struct {
	bare
	inst computer.StreamURLProvider
}

func (w withInstance) Instance() computer.StreamURLProvider { return w.inst }

type withClient struct {
	bare
	client computer.StreamURLProvider
}

func (w withClient) Client() computer.StreamURLProvider { return w.client }

type withBrowser struct {
	bare
	browser computer.StreamURLProvider
}

func (w withBrowser) Browser() computer.StreamURLProvider { return w.browser }

type withAttributes struct {
	bare
	attrs func() []computer.Attribute
}

func (w withAttributes) Attributes() []computer.Attribute { return w.attrs() }

type layered struct {
	bare
	inst    computer.StreamURLProvider
	client  computer.StreamURLProvider
	browser computer.StreamURLProvider
	attrs   []computer.Attribute
}

func (l layered) Instance() computer.StreamURLProvider { return l.inst }
func (l layered) Client() computer.StreamURLProvider   { return l.client }
func (l layered) Browser() computer.StreamURLProvider  { return l.browser }
func (l layered) Attributes() []computer.Attribute     { return l.attrs }

func TestResolve(t *testing.T) {
	direct := testutil.NewFakeComputer(computer.Desktop)
	direct.SetStreamURL("https://stream.example/direct")

	tests := []struct {
		name   string
		c      computer.Computer
		want   string
		wantOK bool
	}{
		{
			name:   "instance strategy",
			c:      withInstance{bare: newBare(), inst: staticStream{url: "https://stream.example/instance"}},
			want:   "https://stream.example/instance",
			wantOK: true,
		},
		{
			name:   "client strategy",
			c:      withClient{bare: newBare(), client: staticStream{url: "https://stream.example/client"}},
			want:   "https://stream.example/client",
			wantOK: true,
		},
		{
			name:   "direct strategy",
			c:      direct,
			want:   "https://stream.example/direct",
			wantOK: true,
		},
		{
			name:   "browser strategy",
			c:      withBrowser{bare: newBare(), browser: staticStream{url: "https://stream.example/browser"}},
			want:   "https://stream.example/browser",
			wantOK: true,
		},
		{
			name: "attribute scan",
			c: withAttributes{bare: newBare(), attrs: func() []computer.Attribute {
				return []computer.Attribute{
					{Name: "id", Type: "string", Value: "inst_1"},
					{Name: "_stream_private", Type: "string", Value: "https://hidden.example"},
					{Name: "stream_port", Type: "int", Value: 443},
					{Name: "streamURL", Type: "string", Value: "www.stream.example/live"},
				}
			}},
			want:   "www.stream.example/live",
			wantOK: true,
		},
		{
			name: "attribute without url",
			c: withAttributes{bare: newBare(), attrs: func() []computer.Attribute {
				return []computer.Attribute{{Name: "stream_state", Type: "string", Value: "idle"}}
			}},
			wantOK: false,
		},
		{
			name:   "no capability at all",
			c:      newBare(),
			wantOK: false,
		},
		{
			name:   "nil handle",
			c:      nil,
			wantOK: false,
		},
	}

	resolver := NewResolver(zap.NewNop(), time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolver.Resolve(context.Background(), tt.c)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFallsThroughFailures(t *testing.T) {
	c := layered{
		bare:    newBare(),
		inst:    panickyStream{},
		client:  staticStream{err: errors.New("client refused")},
		browser: staticStream{url: "   "},
		attrs:   []computer.Attribute{{Name: "stream_url", Type: "string", Value: "https://stream.example/scan"}},
	}

	resolver := NewResolver(zap.NewNop(), time.Second)
	got, ok := resolver.Resolve(context.Background(), c)

	require.True(t, ok)
	assert.Equal(t, "https://stream.example/scan", got)
}

func TestResolveOrderPrefersInstance(t *testing.T) {
	c := layered{
		bare:    newBare(),
		inst:    staticStream{url: "https://stream.example/instance"},
		client:  staticStream{url: "https://stream.example/client"},
		browser: staticStream{url: "https://stream.example/browser"},
	}

	got, ok := NewResolver(nil, 0).Resolve(context.Background(), c)
	require.True(t, ok)
	assert.Equal(t, "https://stream.example/instance", got)
}

func TestResolveNeverPanics(t *testing.T) {
	c := withAttributes{bare: newBare(), attrs: func() []computer.Attribute { panic("enumeration exploded") }}
	typedNil := withInstance{bare: newBare(), inst: (*nilProvider)(nil)}

	resolver := NewResolver(zap.NewNop(), time.Second)
	assert.NotPanics(t, func() {
		_, ok := resolver.Resolve(context.Background(), c)
		assert.False(t, ok)
	})
	assert.NotPanics(t, func() {
		_, ok := resolver.Resolve(context.Background(), typedNil)
		assert.False(t, ok)
	})
}

type nilProvider struct{ url string }

func (n *nilProvider) StreamURL(ctx context.Context) (string, error) { return n.url, nil }

func TestResolveBoundsSlowStrategies(t *testing.T) {
	c := withInstance{bare: newBare(), inst: blockingStream{}}

	start := time.Now()
	_, ok := NewResolver(zap.NewNop(), 20*time.Millisecond).Resolve(context.Background(), c)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAttributes(t *testing.T) {
	resolver := NewResolver(zap.NewNop(), 0)

	attrs := []computer.Attribute{{Name: "id", Type: "string", Value: "x"}}
	assert.Equal(t, attrs, resolver.Attributes(withAttributes{bare: newBare(), attrs: func() []computer.Attribute { return attrs }}))
	assert.Nil(t, resolver.Attributes(newBare()))
	assert.Nil(t, resolver.Attributes(withAttributes{bare: newBare(), attrs: func() []computer.Attribute { panic("boom") }}))
}
