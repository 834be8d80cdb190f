// Package storage holds the string key-value stores that back per-session
// state such as custom bundles.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KV is a string key-value store. A missing key is reported as ok == false
// with a nil error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// sessionPrefix marks server-minted anonymous session ids.
const sessionPrefix = "user_"

// NewSessionID returns a fresh anonymous session id.
func NewSessionID() string {
	return sessionPrefix + uuid.NewString()
}

// ValidSessionID reports whether id looks like a usable session id: non-empty,
// bounded, and free of whitespace or key separators.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n:")
}

// ValidateBackend rejects unknown backend names.
func ValidateBackend(name string) error {
	switch name {
	case BackendSQLite, BackendRedis:
		return nil
	}
	return fmt.Errorf("unknown storage backend %q", name)
}
