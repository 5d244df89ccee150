package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ocrmill/internal/infrastructure"
	"ocrmill/internal/metrics"
	"ocrmill/internal/store"
)

// Identity supplies the caller's current OS domain and username, empty
// strings when unavailable.
type Identity interface {
	Domain() string
	Username() string
}

// EnvIdentity reads the Windows domain and username from the environment
type EnvIdentity struct{}

// Domain returns the current Windows domain
func (EnvIdentity) Domain() string { return os.Getenv("USERDOMAIN") }

// Username returns the current Windows username
func (EnvIdentity) Username() string { return os.Getenv("USERNAME") }

// Manager owns login/logout session state. It is synchronous and intended
// for a single caller; concurrent use against the same store requires
// external serialization.
type Manager struct {
	store     store.Store
	directory DirectorySource
	identity  Identity
	metrics   *metrics.Metrics
	now       func() time.Time

	session Session
}

// NewManager creates an authentication manager
func NewManager(st store.Store, directory DirectorySource, identity Identity, m *metrics.Metrics) *Manager {
	return &Manager{
		store:     st,
		directory: directory,
		identity:  identity,
		metrics:   m,
		now:       time.Now,
	}
}

// Session returns a copy of the current session state
func (m *Manager) Session() Session {
	return m.session
}

// AllowedDomains returns the configured Windows domain allow-list. An
// empty list means auto-login is disabled for this installation.
func (m *Manager) AllowedDomains() []string {
	raw, ok := m.store.Get(store.KeyAllowedDomains)
	if !ok {
		return nil
	}
	var domains []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

// SetAllowedDomains stores the Windows domain allow-list
func (m *Manager) SetAllowedDomains(domains []string) error {
	return m.store.Set(store.KeyAllowedDomains, strings.Join(domains, ","))
}

// TryWindowsAuth attempts single-sign-on using the OS-supplied domain and
// username against the identity directory. Failure is non-fatal; callers
// should offer interactive login next.
func (m *Manager) TryWindowsAuth(ctx context.Context) (bool, string, *User) {
	logger := infrastructure.LoggerWithContext(ctx)

	domain := m.identity.Domain()
	username := m.identity.Username()
	if domain == "" || username == "" {
		return false, "Windows credentials not available", nil
	}

	allowed := m.AllowedDomains()
	if len(allowed) == 0 {
		logger.Debug("no allowed domains configured", slog.String("component", "auth_manager"))
		return false, "No domains configured for auto-login", nil
	}
	if !containsFold(allowed, domain) {
		logger.Debug("domain not in allowed list",
			slog.String("component", "auth_manager"),
			slog.String("domain", domain),
		)
		m.metrics.RecordAuthAttempt("windows", "failure")
		return false, fmt.Sprintf("Domain %s not authorized for auto-login", domain), nil
	}

	windowsUser := fmt.Sprintf("%s\\%s", strings.ToUpper(domain), strings.ToLower(username))
	logger.Info("attempting windows auth",
		slog.String("component", "auth_manager"),
		slog.String("user", windowsUser),
	)

	users := m.directory.Fetch(ctx)
	if users == nil {
		logger.Warn("failed to fetch user directory", slog.String("component", "auth_manager"))
		m.metrics.RecordAuthAttempt("windows", "failure")
		return false, "Could not fetch user list", nil
	}

	for key, user := range users {
		if user.AuthType != AuthTypeWindows || !strings.EqualFold(key, windowsUser) {
			continue
		}
		if user.Suspended {
			m.metrics.RecordAuthAttempt("windows", "failure")
			return false, "Your account has been suspended. Contact your administrator.", nil
		}

		name := user.Name
		if name == "" {
			name = username
		}
		m.establishSession(key, user.Role, name, MethodWindows)
		m.persistLastAuth(key, MethodWindows)

		logger.Info("windows auth successful",
			slog.String("component", "auth_manager"),
			slog.String("user", windowsUser),
			slog.String("role", string(user.Role)),
		)
		m.metrics.RecordAuthAttempt("windows", "success")
		found := user
		return true, fmt.Sprintf("Welcome, %s!", name), &found
	}

	logger.Debug("windows user not found in directory",
		slog.String("component", "auth_manager"),
		slog.String("user", windowsUser),
	)
	m.metrics.RecordAuthAttempt("windows", "failure")
	return false, fmt.Sprintf("Windows user %s not authorized", windowsUser), nil
}

// Authenticate verifies an email/password pair against the identity
// directory, falling back to locally cached credentials when no directory
// source is reachable. Returns success, a user-facing message, and the
// operator role on success.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (bool, string, Role) {
	logger := infrastructure.LoggerWithContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, "Email and password are required", ""
	}

	users := m.directory.Fetch(ctx)
	if users != nil {
		return m.authenticateOnline(ctx, users, email, password)
	}

	logger.Info("directory unavailable, trying cached credentials",
		slog.String("component", "auth_manager"),
	)
	return m.authenticateOffline(ctx, email, password)
}

func (m *Manager) authenticateOnline(ctx context.Context, users Directory, email, password string) (bool, string, Role) {
	logger := infrastructure.LoggerWithContext(ctx)

	var found *User
	for key, user := range users {
		if strings.ToLower(key) == email {
			u := user
			found = &u
			break
		}
	}

	// Unknown email and wrong password produce the same message so the
	// response does not reveal which accounts exist.
	if found == nil || found.AuthType == AuthTypeWindows {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Invalid email or password", ""
	}
	if found.Suspended {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Your account has been suspended. Contact your administrator.", ""
	}
	if !VerifyPassword(password, found.PasswordHash, found.Salt) {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Invalid email or password", ""
	}

	name := found.Name
	if name == "" {
		name = email
	}

	m.cacheCredential(ctx, email, *found)
	m.establishSession(email, found.Role, name, MethodPassword)
	m.persistLastAuth(email, MethodPassword)

	logger.Info("user authenticated online",
		slog.String("component", "auth_manager"),
		slog.String("email", maskEmail(email)),
		slog.String("role", string(found.Role)),
	)
	m.metrics.RecordAuthAttempt("password", "success")
	return true, fmt.Sprintf("Welcome, %s!", name), found.Role
}

func (m *Manager) authenticateOffline(ctx context.Context, email, password string) (bool, string, Role) {
	logger := infrastructure.LoggerWithContext(ctx)

	cached, ok := m.cachedCredential(email)
	if !ok {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Cannot authenticate: No network connection and no cached credentials", ""
	}
	if cached.Suspended {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Your account has been suspended. Contact your administrator.\n\n" +
			"If your suspension has been lifted, please connect to the network and try again.", ""
	}
	if !VerifyPassword(password, cached.PasswordHash, cached.Salt) {
		m.metrics.RecordAuthAttempt("password", "failure")
		return false, "Invalid email or password", ""
	}

	name := cached.Name
	if name == "" {
		name = email
	}

	m.establishSession(email, cached.Role, name, MethodPassword)
	// Offline success records who logged in but is not an online re-sync,
	// so the auth method bookkeeping is left untouched.
	m.storeSet(store.KeyLastAuthUser, email)
	m.storeSet(store.KeyLastAuthTime, m.now().Format(time.RFC3339))

	logger.Info("user authenticated from cached credentials",
		slog.String("component", "auth_manager"),
		slog.String("email", maskEmail(email)),
	)
	m.metrics.RecordAuthAttempt("password", "success")
	return true, fmt.Sprintf("Welcome, %s! (Offline mode)", name), cached.Role
}

// Logout unconditionally resets the session. Idempotent.
func (m *Manager) Logout() {
	m.session = Session{}
}

// IsAdmin reports whether the current session belongs to an admin
func (m *Manager) IsAdmin() bool {
	return m.session.Authenticated && m.session.Role == RoleAdmin
}

// LastUser returns the most recently authenticated user identifier, for
// pre-filling login forms.
func (m *Manager) LastUser() string {
	v, _ := m.store.Get(store.KeyLastAuthUser)
	return v
}

// CurrentUserInfo returns the session view exposed to callers
func (m *Manager) CurrentUserInfo() UserInfo {
	return UserInfo{
		Email:           m.session.User,
		Name:            m.session.Name,
		Role:            m.session.Role,
		IsAuthenticated: m.session.Authenticated,
		AuthMethod:      m.session.Method,
		IsAdmin:         m.IsAdmin(),
	}
}

func (m *Manager) establishSession(user string, role Role, name string, method Method) {
	if role == "" {
		role = RoleUser
	}
	m.session = Session{
		User:          user,
		Role:          role,
		Name:          name,
		Authenticated: true,
		Method:        method,
	}
}

func (m *Manager) persistLastAuth(user string, method Method) {
	m.storeSet(store.KeyLastAuthUser, user)
	m.storeSet(store.KeyLastAuthTime, m.now().Format(time.RFC3339))
	m.storeSet(store.KeyLastAuthMethod, string(method))
}

// storeSet writes a value, logging and swallowing failures; a broken
// config store must not fail an otherwise successful login.
func (m *Manager) storeSet(key, value string) {
	if err := m.store.Set(key, value); err != nil {
		slog.Default().Warn("failed to persist auth bookkeeping",
			slog.String("component", "auth_manager"),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// cacheCredential records a successful online password login for offline
// fallback. Never called for Windows users.
func (m *Manager) cacheCredential(ctx context.Context, email string, user User) {
	cached := m.loadCredentialCache()
	cached[strings.ToLower(email)] = cachedCredential{
		PasswordHash: user.PasswordHash,
		Salt:         user.Salt,
		Role:         user.Role,
		Name:         user.Name,
		Suspended:    user.Suspended,
		CachedAt:     m.now(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := m.store.Set(store.KeyCachedAuthUsers, string(data)); err != nil {
		infrastructure.LoggerWithContext(ctx).Warn("failed to cache credentials",
			slog.String("component", "auth_manager"),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) cachedCredential(email string) (cachedCredential, bool) {
	cached := m.loadCredentialCache()
	cred, ok := cached[strings.ToLower(email)]
	return cred, ok
}

func (m *Manager) loadCredentialCache() map[string]cachedCredential {
	cached := make(map[string]cachedCredential)
	raw, ok := m.store.Get(store.KeyCachedAuthUsers)
	if !ok {
		return cached
	}
	// A corrupt cache reads as empty rather than failing the login path.
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return make(map[string]cachedCredential)
	}
	return cached
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// maskEmail masks an email address for log output
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "****"
	}
	return email[:1] + "****" + email[at:]
}
