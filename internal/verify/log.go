package verify

import (
	"context"
	"sync"
	"time"
)

// Channel distinguishes how a verification was requested.
type Channel string

const (
	ChannelPublic        Channel = "public_verify"
	ChannelAuthenticated Channel = "authenticated"
)

// RequesterMeta is what we know about the caller. Location is currently
// always empty; capturing it is an explicit product decision, not an
// implementation gap.
type RequesterMeta struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Location  string `json:"location,omitempty"`
}

// LogEntry is one verification event. Append-only, never mutated.
type LogEntry struct {
	ID            string        `json:"id"`
	CertificateID string        `json:"certificate_id"`
	Timestamp     time.Time     `json:"timestamp"`
	Requester     RequesterMeta `json:"requester"`
	Channel       Channel       `json:"channel"`
}

// Log describes the append-only verification event store.
type Log interface {
	Append(ctx context.Context, e *LogEntry) error
	ListByCertificate(ctx context.Context, certificateID string) ([]*LogEntry, error)
}

// InMemoryLog implements Log with in-process concurrency safety.
type InMemoryLog struct {
	mu      sync.RWMutex
	entries []*LogEntry
}

var _ Log = (*InMemoryLog)(nil)

// NewInMemoryLog creates an empty log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

func (l *InMemoryLog) Append(ctx context.Context, e *LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *e
	l.entries = append(l.entries, &cp)
	return nil
}

func (l *InMemoryLog) ListByCertificate(ctx context.Context, certificateID string) ([]*LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*LogEntry
	for _, e := range l.entries {
		if e.CertificateID == certificateID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
