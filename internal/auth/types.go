// Package auth implements operator authentication: Windows-domain
// auto-login, email/password login against a remotely hosted identity
// directory, and an offline credential cache for degraded operation.
package auth

import "time"

// Role is the closed set of operator roles
type Role string

const (
	RoleUser          Role = "user"
	RoleDivisionAdmin Role = "division_admin"
	RoleAdmin         Role = "admin"
)

// AuthType distinguishes password users from Windows-domain users
type AuthType string

const (
	AuthTypePassword AuthType = "password"
	AuthTypeWindows  AuthType = "windows"
)

// Method identifies how the current session was established
type Method string

const (
	MethodNone     Method = ""
	MethodWindows  Method = "windows"
	MethodPassword Method = "password"
)

// User is one entry in the identity directory, keyed externally by a
// case-insensitive email address or DOMAIN\username identifier.
type User struct {
	Name             string   `json:"name"`
	Role             Role     `json:"role"`
	Suspended        bool     `json:"suspended,omitempty"`
	AuthType         AuthType `json:"auth_type,omitempty"`
	PasswordHash     string   `json:"password_hash,omitempty"`
	Salt             string   `json:"salt,omitempty"`
	ManagedDivisions []string `json:"managed_divisions,omitempty"`
}

// Directory maps user identifiers to directory entries
type Directory map[string]User

// cachedCredential is the local offline-fallback record written after a
// successful online password login. Windows users are never cached.
type cachedCredential struct {
	PasswordHash string    `json:"password_hash"`
	Salt         string    `json:"salt"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Suspended    bool      `json:"suspended"`
	CachedAt     time.Time `json:"cached_at"`
}

// Session is the current authentication state, one per engine instance
type Session struct {
	User          string
	Role          Role
	Name          string
	Authenticated bool
	Method        Method
}

// UserInfo is the read-only session view exposed to callers
type UserInfo struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            Role   `json:"role"`
	IsAuthenticated bool   `json:"is_authenticated"`
	AuthMethod      Method `json:"auth_method"`
	IsAdmin         bool   `json:"is_admin"`
}
