// Package storage defines the durable key/value contract behind the
// shopping-state store and the admin gate.
package storage

import (
	"context"

	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = apperrors.ErrNotFound

// KV is a durable key/value store. Implementations must be safe for
// concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Toucher is implemented by KVs whose keys expire. Touch restarts the
// expiry of the given keys without changing them; missing keys are skipped.
type Toucher interface {
	Touch(ctx context.Context, keys ...string) error
}

// Touch restarts the expiry of keys when kv supports it and is a no-op
// otherwise.
func Touch(ctx context.Context, kv KV, keys ...string) error {
	t, ok := kv.(Toucher)
	if !ok {
		return nil
	}
	return t.Touch(ctx, keys...)
}

// Namespaced prefixes every key before delegating to the wrapped KV.
type Namespaced struct {
	kv     KV
	prefix string
}

// WithPrefix scopes kv under prefix. An empty prefix returns kv unchanged.
func WithPrefix(kv KV, prefix string) KV {
	if prefix == "" {
		return kv
	}
	if ns, ok := kv.(*Namespaced); ok {
		return &Namespaced{kv: ns.kv, prefix: ns.prefix + prefix}
	}
	return &Namespaced{kv: kv, prefix: prefix}
}

// SessionPrefix is the namespace of one shopper session.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}

func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.prefix+key)
}

func (n *Namespaced) Touch(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.prefix + k
	}
	return Touch(ctx, n.kv, prefixed...)
}
