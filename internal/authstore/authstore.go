// Package authstore persists the client's authentication state in one of two
// mutually exclusive scopes: Durable (survives restarts, "remember me") and
// Ephemeral (lives as long as the process).
package authstore

import (
	"context"
	"errors"
	"fmt"
)

// Scope selects where credentials live.
type Scope int

const (
	Durable Scope = iota + 1
	Ephemeral
)

func (s Scope) String() string {
	switch s {
	case Durable:
		return "durable"
	case Ephemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// Current key names.
const (
	KeyUser  = "vf_user"
	KeyToken = "vf_token"
)

// legacyKeys were written by earlier clients and must never be read back.
var legacyKeys = []string{"token", "user", "permissions"}

const schemaKey = "vf_schema"
const schemaVersion = "2"

// Backend is a string key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Vault is the only writer of auth storage.
type Vault struct {
	durable   Backend
	ephemeral Backend
}

// NewVault pairs a durable and an ephemeral backend.
func NewVault(durable, ephemeral Backend) *Vault {
	return &Vault{durable: durable, ephemeral: ephemeral}
}

var errScope = errors.New("authstore: invalid scope")

func (v *Vault) backend(s Scope) (Backend, error) {
	switch s {
	case Durable:
		return v.durable, nil
	case Ephemeral:
		return v.ephemeral, nil
	default:
		return nil, errScope
	}
}

// Read returns the value for key in scope; ok is false when absent.
func (v *Vault) Read(ctx context.Context, s Scope, key string) (string, bool, error) {
	b, err := v.backend(s)
	if err != nil {
		return "", false, err
	}
	return b.Get(ctx, key)
}

// Write stores value under key in scope.
func (v *Vault) Write(ctx context.Context, s Scope, key, value string) error {
	b, err := v.backend(s)
	if err != nil {
		return err
	}
	if err := b.Set(ctx, key, value); err != nil {
		return fmt.Errorf("authstore: write %s/%s: %w", s, key, err)
	}
	return nil
}

// Clear removes keys from scope.
func (v *Vault) Clear(ctx context.Context, s Scope, keys ...string) error {
	b, err := v.backend(s)
	if err != nil {
		return err
	}
	return b.Delete(ctx, keys...)
}

// ClearAll removes every auth key, current and legacy, from both scopes.
// Both scopes are attempted even if the first fails.
func (v *Vault) ClearAll(ctx context.Context) error {
	keys := append([]string{KeyUser, KeyToken}, legacyKeys...)
	errD := v.durable.Delete(ctx, keys...)
	errE := v.ephemeral.Delete(ctx, keys...)
	return errors.Join(errD, errE)
}

// MigrateLegacy deletes keys written by earlier clients. It runs once per
// durable store; a schema marker records completion.
func (v *Vault) MigrateLegacy(ctx context.Context) (bool, error) {
	if ver, ok, err := v.durable.Get(ctx, schemaKey); err != nil {
		return false, err
	} else if ok && ver == schemaVersion {
		return false, nil
	}
	if err := errors.Join(
		v.durable.Delete(ctx, legacyKeys...),
		v.ephemeral.Delete(ctx, legacyKeys...),
	); err != nil {
		return false, fmt.Errorf("authstore: legacy cleanup: %w", err)
	}
	if err := v.durable.Set(ctx, schemaKey, schemaVersion); err != nil {
		return false, err
	}
	return true, nil
}
