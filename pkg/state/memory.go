package state

import (
	"context"
	"strings"
	"sync"
	"time"

	ssp "github.com/goliatone/go-socialshare"
)

// MemoryBackend is an in-memory Backend for tests and examples. Entries
// honour the expiry of their policy against an injectable clock.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time

	writes  int
	deletes int
}

type memoryRecord struct {
	value   string
	policy  ssp.CookiePolicy
	expires time.Time
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBackend constructs an empty backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{records: map[string]memoryRecord{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *MemoryBackend) Load(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	record, ok := b.records[key]
	b.mu.RUnlock()
	if !ok || b.expired(record) {
		return "", false, nil
	}
	return record.value, true, nil
}

func (b *MemoryBackend) Save(_ context.Context, key, value string, policy ssp.CookiePolicy) error {
	record := memoryRecord{value: value, policy: policy}
	if policy.ExpiresDays > 0 {
		record.expires = b.now().Add(time.Duration(policy.ExpiresDays * float64(24*time.Hour)))
	}
	b.mu.Lock()
	b.records[key] = record
	b.writes++
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string, _ ssp.CookiePolicy) error {
	b.mu.Lock()
	delete(b.records, key)
	b.deletes++
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Scan(_ context.Context, prefix string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := map[string]string{}
	for key, record := range b.records {
		if strings.HasPrefix(key, prefix) && !b.expired(record) {
			out[key] = record.value
		}
	}
	return out, nil
}

// Policy returns the policy an entry was last saved with.
func (b *MemoryBackend) Policy(key string) (ssp.CookiePolicy, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	record, ok := b.records[key]
	return record.policy, ok
}

// Expires returns the expiry of an entry. The zero time means a session entry.
func (b *MemoryBackend) Expires(key string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	record, ok := b.records[key]
	return record.expires, ok
}

// Writes counts Save calls.
func (b *MemoryBackend) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

// Deletes counts Delete calls.
func (b *MemoryBackend) Deletes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deletes
}

func (b *MemoryBackend) expired(record memoryRecord) bool {
	return !record.expires.IsZero() && !b.now().Before(record.expires)
}
