package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// AuthContext is the already-authenticated caller: who they are, which roles the
// identity provider resolved for them and which scope they act in.
type AuthContext struct {
	ActorID      string `json:"actorId"`
	Roles        []Role `json:"roles"`
	ScopeID      string `json:"scopeId,omitempty"`
	PlatformWide bool   `json:"platformWide"`
}

// HasAnyRole reports whether the actor holds at least one of the roles. Role names
// compare case-insensitively.
func (a *AuthContext) HasAnyRole(roles ...string) bool {
	if a == nil {
		return false
	}
	for _, held := range a.Roles {
		h := NormalizeRole(string(held))
		for _, r := range roles {
			if h == NormalizeRole(r) {
				return true
			}
		}
	}
	return false
}

// HasPlatformAuthority reports whether the actor may act across scopes.
func (a *AuthContext) HasPlatformAuthority() bool {
	if a == nil {
		return false
	}
	return a.PlatformWide || a.HasAnyRole(string(RolePlatformAdmin))
}

// CanAccessScope reports whether the actor may act inside scopeID. Global
// resources (empty scope) require platform authority.
func (a *AuthContext) CanAccessScope(scopeID string) bool {
	if a == nil {
		return false
	}
	if a.HasPlatformAuthority() {
		return true
	}
	return scopeID != "" && a.ScopeID == scopeID
}

// JWTClaims is the access token payload issued by the identity provider.
type JWTClaims struct {
	Roles    []string `json:"roles"`
	ScopeID  string   `json:"scope_id,omitempty"`
	Platform bool     `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

// AuthContext converts verified claims into the engine's caller context.
func (c *JWTClaims) AuthContext() *AuthContext {
	roles := make([]Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		if role := NormalizeRole(r); role != "" {
			roles = append(roles, role)
		}
	}
	return &AuthContext{
		ActorID:      c.Subject,
		Roles:        roles,
		ScopeID:      c.ScopeID,
		PlatformWide: c.Platform,
	}
}
