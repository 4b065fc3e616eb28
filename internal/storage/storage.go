// Package storage is the persistence collaborator for all rewards
// state: a small string key-value store, mirroring the dashboard's
// localStorage contract. Values are JSON blobs owned by the services;
// reads of missing keys are not errors, the caller defaults the state.
package storage

import "context"

// KV is the get/set/remove surface every backend implements.
type KV interface {
	// Get returns the stored value and whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate keys. The
// maintenance sweep needs it; request handlers never do.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}
