package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ssp "github.com/goliatone/go-socialshare"
)

const (
	// KeyPrefix namespaces perma-option keys.
	KeyPrefix = "socialSharePrivacy_"
	// PermaOn is the value stored for an enabled network.
	PermaOn = "perma_on"
)

// ErrNetworkRequired is returned for operations without a network name.
var ErrNetworkRequired = errors.New("state: network is required")

// Backend is the key/value collaborator behind a Store.
type Backend interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string, policy ssp.CookiePolicy) error
	Delete(ctx context.Context, key string, policy ssp.CookiePolicy) error
	// Scan returns every live entry whose key starts with prefix.
	Scan(ctx context.Context, prefix string) (map[string]string, error)
}

// Store persists perma-options through a Backend.
type Store struct {
	backend Backend
}

var _ ssp.PermaStore = (*Store)(nil)

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Key returns the storage key of network.
func Key(network string) string {
	return KeyPrefix + network
}

// Get reports whether network is permanently enabled.
func (s *Store) Get(ctx context.Context, network string) (bool, error) {
	if err := s.check(network); err != nil {
		return false, err
	}
	value, ok, err := s.backend.Load(ctx, Key(network))
	if err != nil {
		return false, fmt.Errorf("state: load %q: %w", network, err)
	}
	return ok && value == PermaOn, nil
}

// GetAll reads every stored perma-option with a single backend scan.
func (s *Store) GetAll(ctx context.Context) (map[string]bool, error) {
	if s == nil || s.backend == nil {
		return nil, fmt.Errorf("state: backend is required")
	}
	entries, err := s.backend.Scan(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("state: scan: %w", err)
	}
	out := make(map[string]bool, len(entries))
	for key, value := range entries {
		network := strings.TrimPrefix(key, KeyPrefix)
		if network == "" || network == key {
			continue
		}
		out[network] = value == PermaOn
	}
	return out, nil
}

// Set stores the preference with policy.
func (s *Store) Set(ctx context.Context, network string, policy ssp.CookiePolicy) error {
	if err := s.check(network); err != nil {
		return err
	}
	if err := s.backend.Save(ctx, Key(network), PermaOn, policy); err != nil {
		return fmt.Errorf("state: save %q: %w", network, err)
	}
	return nil
}

// Clear removes the preference.
func (s *Store) Clear(ctx context.Context, network string, policy ssp.CookiePolicy) error {
	if err := s.check(network); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, Key(network), policy); err != nil {
		return fmt.Errorf("state: delete %q: %w", network, err)
	}
	return nil
}

func (s *Store) check(network string) error {
	if s == nil || s.backend == nil {
		return fmt.Errorf("state: backend is required")
	}
	if strings.TrimSpace(network) == "" {
		return ErrNetworkRequired
	}
	return nil
}
