// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

/*
Package revocation implements the token revocation registry.

A signed bearer token is stateless: once issued it stays valid until its
expiry. Logout and explicit revocation therefore need a shared denylist that
the authentication guard consults on every request.

# Contract

Once Revoke(t) returns, every subsequent IsRevoked(t) observes the entry, for
any interleaving of concurrent readers. The identifier must be exactly the
issued token string — a derived or re-encoded value silently fails to match.

# Garbage collection

Entries carry a TTL aligned with the revoked token's remaining lifetime: once
the token would have expired anyway, the entry is useless and may be pruned.
*/
package revocation

import (
	"context"
	"sync"
	"time"
)

// Registry records and answers whether a token has been invalidated before
// its natural expiry.
type Registry interface {
	// IsRevoked reports whether the exact token string has been revoked.
	// A store-layer failure is returned as an error, never as a silent false.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Revoke marks the token as invalidated. ttl bounds how long the entry
	// must be retained; a non-positive ttl retains it indefinitely.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// # In-Memory Implementation

// MemoryRegistry is a process-local [Registry].
//
// It is intended for tests and single-process development setups. Production
// deployments must use [RedisRegistry] so revocations survive restarts and
// are visible across replicas.
type MemoryRegistry struct {
	mu sync.RWMutex
	// entries maps token → retention deadline (zero value = keep forever).
	entries map[string]time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]time.Time)}
}

// IsRevoked implements [Registry]. Expired entries are pruned lazily.
func (registry *MemoryRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	registry.mu.RLock()
	deadline, found := registry.entries[token]
	registry.mu.RUnlock()

	if !found {
		return false, nil
	}

	if !deadline.IsZero() && time.Now().After(deadline) {
		registry.mu.Lock()
		delete(registry.entries, token)
		registry.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Revoke implements [Registry].
func (registry *MemoryRegistry) Revoke(_ context.Context, token string, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	registry.mu.Lock()
	registry.entries[token] = deadline
	registry.mu.Unlock()

	return nil
}
