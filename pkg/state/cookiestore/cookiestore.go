// Package cookiestore keeps perma-options in HTTP cookies for the duration
// of one request.
package cookiestore

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/pkg/state"
)

// Backend reads cookies from a request and writes Set-Cookie headers to the
// response. Writes are remembered so reads later in the same request see them.
type Backend struct {
	mu      sync.Mutex
	request *http.Request
	writer  http.ResponseWriter
	now     func() time.Time
	written map[string]*string
}

var _ state.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now when computing cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// New binds a backend to one request/response pair.
func New(r *http.Request, w http.ResponseWriter, opts ...Option) *Backend {
	b := &Backend{request: r, writer: w, now: time.Now, written: map[string]*string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// NewStore is shorthand for state.NewStore(New(r, w, opts...)).
func NewStore(r *http.Request, w http.ResponseWriter, opts ...Option) *state.Store {
	return state.NewStore(New(r, w, opts...))
}

func (b *Backend) Load(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if value, ok := b.written[key]; ok {
		if value == nil {
			return "", false, nil
		}
		return *value, true, nil
	}
	if b.request == nil {
		return "", false, nil
	}
	cookie, err := b.request.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	return cookie.Value, true, nil
}

func (b *Backend) Save(_ context.Context, key, value string, policy ssp.CookiePolicy) error {
	cookie := b.cookie(key, value, policy)
	if policy.ExpiresDays > 0 {
		ttl := time.Duration(policy.ExpiresDays * float64(24*time.Hour))
		cookie.Expires = b.now().Add(ttl).UTC()
		cookie.MaxAge = int(ttl / time.Second)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.written[key] = &value
	if b.writer != nil {
		http.SetCookie(b.writer, cookie)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string, policy ssp.CookiePolicy) error {
	cookie := b.cookie(key, "", policy)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0).UTC()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.written[key] = nil
	if b.writer != nil {
		http.SetCookie(b.writer, cookie)
	}
	return nil
}

func (b *Backend) Scan(_ context.Context, prefix string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]string{}
	if b.request != nil {
		for _, cookie := range b.request.Cookies() {
			if strings.HasPrefix(cookie.Name, prefix) {
				out[cookie.Name] = cookie.Value
			}
		}
	}
	for key, value := range b.written {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if value == nil {
			delete(out, key)
			continue
		}
		out[key] = *value
	}
	return out, nil
}

func (b *Backend) cookie(key, value string, policy ssp.CookiePolicy) *http.Cookie {
	path := policy.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     path,
		Domain:   policy.Domain,
		SameSite: http.SameSiteLaxMode,
	}
}
