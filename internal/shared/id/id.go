// Package id mints the prefixed ULIDs used for sessions and requests.
//
// IDs look like sess_01J... or req_01J... and sort by creation time.
package id

import (
	"crypto/rand"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a computer session.
type SessionID string

// RequestID identifies an inbound request or trace span.
type RequestID string

const (
	SessionPrefix = "sess"
	RequestPrefix = "req"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

func mint(prefix string) string {
	mu.Lock()
	defer mu.Unlock()
	return prefix + "_" + ulid.MustNew(ulid.Now(), entropy).String()
}

// NewSessionID returns a fresh sess_ identifier.
func NewSessionID() SessionID { return SessionID(mint(SessionPrefix)) }

// NewRequestID returns a fresh req_ identifier.
func NewRequestID() RequestID { return RequestID(mint(RequestPrefix)) }

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsSessionID reports whether s was minted by NewSessionID.
func IsSessionID(s string) bool { return minted(s, SessionPrefix) }

// IsRequestID reports whether s was minted by NewRequestID.
func IsRequestID(s string) bool { return minted(s, RequestPrefix) }

func minted(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(rest)
	return err == nil
}
