// Package capability discovers optional features of a computer handle, most
// importantly the live stream URL.
//
// Providers expose the stream URL in different places. The Resolver tries
// each known location in a fixed order and takes the first usable answer:
//
//  1. instance: the provider instance behind the handle
//  2. client:   the provider client bound to the handle
//  3. direct:   the handle itself
//  4. browser:  an embedded browser object
//  5. scan:     any published attribute whose name mentions "stream" and
//     whose string value looks like a URL
//
// A strategy that errors, returns nothing, or panics is skipped. Resolution
// never fails; callers get ok=false instead.
package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
)

type strategy struct {
	name string
	find func(ctx context.Context, c computer.Computer) (computer.StreamURLProvider, bool)
}

var strategies = []strategy{
	{"instance", func(_ context.Context, c computer.Computer) (computer.StreamURLProvider, bool) {
		h, ok := c.(computer.InstanceHolder)
		if !ok {
			return nil, false
		}
		return h.Instance(), true
	}},
	{"client", func(_ context.Context, c computer.Computer) (computer.StreamURLProvider, bool) {
		h, ok := c.(computer.ClientHolder)
		if !ok {
			return nil, false
		}
		return h.Client(), true
	}},
	{"direct", func(_ context.Context, c computer.Computer) (computer.StreamURLProvider, bool) {
		p, ok := c.(computer.StreamURLProvider)
		return p, ok
	}},
	{"browser", func(_ context.Context, c computer.Computer) (computer.StreamURLProvider, bool) {
		h, ok := c.(computer.BrowserHolder)
		if !ok {
			return nil, false
		}
		return h.Browser(), true
	}},
}

// Resolver finds stream URLs.
type Resolver struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewResolver creates a resolver. Each strategy call is bounded by timeout
// when it is positive.
func NewResolver(logger *zap.Logger, timeout time.Duration) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, timeout: timeout}
}

// Resolve returns the first stream URL any strategy yields.
func (r *Resolver) Resolve(ctx context.Context, c computer.Computer) (string, bool) {
	if c == nil {
		return "", false
	}

	for _, s := range strategies {
		url, err := r.attempt(ctx, c, s)
		if err != nil {
			r.logger.Debug("stream url strategy failed",
				zap.String("strategy", s.name),
				zap.Error(err),
			)
			continue
		}
		if url != "" {
			r.logger.Debug("stream url resolved", zap.String("strategy", s.name))
			return url, true
		}
	}

	if url, ok := r.scan(c); ok {
		r.logger.Debug("stream url resolved", zap.String("strategy", "scan"))
		return url, true
	}

	r.logger.Debug("stream url unavailable")
	return "", false
}

func (r *Resolver) attempt(ctx context.Context, c computer.Computer, s strategy) (url string, err error) {
	defer func() {
		if p := recover(); p != nil {
			url, err = "", fmt.Errorf("panic: %v", p)
		}
	}()

	provider, ok := s.find(ctx, c)
	if !ok || provider == nil {
		return "", nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	url, err = provider.StreamURL(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(url), nil
}

func (r *Resolver) scan(c computer.Computer) (url string, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("attribute scan panicked", zap.Any("panic", p))
			url, ok = "", false
		}
	}()

	lister, isLister := c.(computer.AttributeLister)
	if !isLister {
		return "", false
	}
	for _, attr := range lister.Attributes() {
		if strings.HasPrefix(attr.Name, "_") || !strings.Contains(strings.ToLower(attr.Name), "stream") {
			continue
		}
		s, isString := attr.Value.(string)
		if !isString {
			continue
		}
		if strings.Contains(s, "http") || strings.Contains(s, "www") {
			return s, true
		}
	}
	return "", false
}

// Attributes enumerates c's published attributes, absorbing panics. A handle
// without the capability yields nil.
func (r *Resolver) Attributes(c computer.Computer) (attrs []computer.Attribute) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("attribute enumeration panicked", zap.Any("panic", p))
			attrs = nil
		}
	}()

	lister, ok := c.(computer.AttributeLister)
	if !ok {
		return nil
	}
	return lister.Attributes()
}
