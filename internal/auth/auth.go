package auth

import (
	"crypto/subtle"
	"sync"
)

// Validator checks the operator token guarding the admin endpoints.
// Uses constant-time comparison; an empty configured token rejects everything.
type Validator struct {
	mu    sync.RWMutex
	token []byte
}

// NewValidator returns a validator for the given admin token.
func NewValidator(token string) *Validator {
	v := &Validator{}
	v.Update(token)
	return v
}

// Update replaces the token (e.g. after config reload).
func (v *Validator) Update(token string) {
	v.mu.Lock()
	v.token = []byte(token)
	v.mu.Unlock()
}

// Validate reports whether the presented token matches. MUST NOT log tokens.
func (v *Validator) Validate(token string) bool {
	if token == "" {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.token, []byte(token)) == 1
}
