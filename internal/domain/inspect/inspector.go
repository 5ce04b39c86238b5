// Package inspect builds diagnostic snapshots of a live session.
package inspect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
)

// Examiner looks at a computer handle without changing it.
type Examiner interface {
	Resolve(ctx context.Context, c computer.Computer) (string, bool)
	Attributes(c computer.Computer) []computer.Attribute
}

// Record is the diagnostic view of one session.
type Record struct {
	SessionID         string        `json:"session_id"`
	ComputerType      computer.Kind `json:"computer_type"`
	CreatedAt         time.Time     `json:"created_at"`
	StreamURL         string        `json:"stream_url,omitempty"`
	ResolvedStreamURL string        `json:"newly_found_stream_url,omitempty"`
	TranscriptLength  int           `json:"transcript_length"`
	ComputerInfo      ComputerInfo  `json:"computer_info"`
}

// ComputerInfo describes the handle behind a session.
type ComputerInfo struct {
	Type       string               `json:"type"`
	Actions    []string             `json:"actions"`
	Attributes []computer.Attribute `json:"attributes"`
}

// Inspector produces Records.
type Inspector struct {
	registry *session.Registry
	examiner Examiner
	logger   *zap.Logger
}

// New creates an inspector.
func New(registry *session.Registry, examiner Examiner, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{registry: registry, examiner: examiner, logger: logger}
}

// Inspect returns the diagnostic record for a session. The stream URL is
// resolved again so it can be compared with the cached one. Only an unknown
// session is an error.
func (i *Inspector) Inspect(ctx context.Context, sessionID string) (*Record, error) {
	s, err := i.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		SessionID:    s.ID,
		ComputerType: s.Kind,
		CreatedAt:    s.CreatedAt,
		StreamURL:    s.StreamURL,
	}

	err = s.Use("inspect session", func(h session.Handle) error {
		c := h.Computer()
		rec.TranscriptLength = len(h.Transcript())
		rec.ComputerInfo = ComputerInfo{
			Type:       typeName(c),
			Actions:    computer.Capabilities(s.Kind),
			Attributes: i.examiner.Attributes(c),
		}
		if rec.ComputerInfo.Attributes == nil {
			rec.ComputerInfo.Attributes = []computer.Attribute{}
		}
		if url, ok := i.examiner.Resolve(ctx, c); ok {
			rec.ResolvedStreamURL = url
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	i.logger.Debug("session inspected",
		zap.String("session_id", sessionID),
		zap.Int("attributes", len(rec.ComputerInfo.Attributes)),
	)
	return rec, nil
}

func typeName(c computer.Computer) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", c), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
