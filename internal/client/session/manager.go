package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"fixtrack/internal/client/api"
	"fixtrack/internal/client/storage"
	"fixtrack/internal/models"
)

// Authenticator is the part of the backend the manager talks to
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (*models.AuthResponse, error)
	Register(ctx context.Context, identifier, secret, registrationCode string) (*models.AuthResponse, error)
	RegisterFirstAdmin(ctx context.Context, identifier, secret string) (*models.AuthResponse, error)
}

// AuthError is a failed login or registration. Message is what the user
// sees: the backend's message when it sent one, a generic one otherwise.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// Manager owns the current session. Build one per process with New and call
// Initialize before anything reads Current.
type Manager struct {
	auth      Authenticator
	durable   storage.Store
	ephemeral storage.Store
	now       func() time.Time
	logger    *log.Logger

	mu      sync.RWMutex
	current *Session

	initOnce sync.Once
	ready    chan struct{}
}

type Option func(*Manager)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets a custom logger
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func New(auth Authenticator, durable, ephemeral storage.Store, opts ...Option) *Manager {
	m := &Manager{
		auth:      auth,
		durable:   durable,
		ephemeral: ephemeral,
		now:       time.Now,
		logger:    log.Default(),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize restores the persisted session. The durable scope wins; the
// ephemeral scope is only read when the durable one holds nothing. A blob
// that cannot be read or decoded, or whose token has expired, clears both
// scopes. Initialize never fails and only runs once.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		defer close(m.ready)

		s, err := m.restore(ctx)
		if err != nil {
			m.logger.Printf("[Session] Discarding persisted session: %v", err)
			m.clearStores(ctx)
			return
		}
		if s == nil {
			return
		}
		if s.Expired(m.now()) {
			m.logger.Printf("[Session] Persisted session for %s expired at %s", s.DisplayName, s.Expiry().Format(time.RFC3339))
			m.clearStores(ctx)
			return
		}

		m.mu.Lock()
		m.current = s
		m.mu.Unlock()
	})
}

func (m *Manager) restore(ctx context.Context) (*Session, error) {
	for _, store := range []storage.Store{m.durable, m.ephemeral} {
		raw, ok, err := store.Get(ctx, StorageKey)
		if err != nil {
			return nil, err
		}
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		return decode(raw)
	}
	return nil, nil
}

// IsReady reports whether Initialize has completed
func (m *Manager) IsReady() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// Ready is closed once Initialize has completed
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Current returns the current session or nil
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Token implements api.TokenSource
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// Login authenticates and stores the session in the durable scope when
// persistDurable is set, in the ephemeral scope otherwise. The other scope
// is cleared so the next startup cannot pick up an older login.
func (m *Manager) Login(ctx context.Context, identifier, secret string, persistDurable bool) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return nil, &AuthError{Message: ErrCredentials.Error(), Err: ErrCredentials}
	}

	resp, err := m.auth.Login(ctx, identifier, secret)
	if err != nil {
		return nil, &AuthError{Message: api.MessageOf(err, "login failed"), Err: err}
	}
	s, err := fromAuth(resp)
	if err != nil {
		return nil, &AuthError{Message: "login failed", Err: err}
	}

	m.establish(ctx, s, persistDurable)
	m.logger.Printf("[Session] %s logged in (durable=%t)", s.DisplayName, persistDurable)
	return s, nil
}

// Register creates an account. Registration implies trust: the new session
// is always persisted durably.
func (m *Manager) Register(ctx context.Context, identifier, secret, registrationCode string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	registrationCode = strings.TrimSpace(registrationCode)
	if identifier == "" || secret == "" {
		return nil, &AuthError{Message: ErrCredentials.Error(), Err: ErrCredentials}
	}
	if registrationCode == "" {
		return nil, &AuthError{Message: ErrRegistrationCode.Error(), Err: ErrRegistrationCode}
	}

	return m.registered(ctx, func() (*models.AuthResponse, error) {
		return m.auth.Register(ctx, identifier, secret, registrationCode)
	})
}

// RegisterFirstAdmin claims an empty shop as its admin. It is the only
// registration that goes out without a code; the backend refuses it once
// any account exists.
func (m *Manager) RegisterFirstAdmin(ctx context.Context, identifier, secret string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return nil, &AuthError{Message: ErrCredentials.Error(), Err: ErrCredentials}
	}
	return m.registered(ctx, func() (*models.AuthResponse, error) {
		return m.auth.RegisterFirstAdmin(ctx, identifier, secret)
	})
}

func (m *Manager) registered(ctx context.Context, call func() (*models.AuthResponse, error)) (*Session, error) {
	resp, err := call()
	if err != nil {
		return nil, &AuthError{Message: api.MessageOf(err, "registration failed"), Err: err}
	}
	s, err := fromAuth(resp)
	if err != nil {
		return nil, &AuthError{Message: "registration failed", Err: err}
	}

	m.establish(ctx, s, true)
	m.logger.Printf("[Session] %s registered as %s", s.DisplayName, s.Role)
	return s, nil
}

func (m *Manager) establish(ctx context.Context, s *Session, durable bool) {
	target, other := m.ephemeral, m.durable
	if durable {
		target, other = m.durable, m.ephemeral
	}

	if raw, err := encode(s); err != nil {
		m.logger.Printf("[Session] Could not encode session: %v", err)
	} else if err := target.Set(ctx, StorageKey, raw); err != nil {
		// the session still works for this process
		m.logger.Printf("[Session] Could not persist session: %v", err)
	}
	if err := other.Delete(ctx, StorageKey); err != nil {
		m.logger.Printf("[Session] Could not clear stale session: %v", err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// Logout clears both scopes and the current session
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	m.clearStores(ctx)
}

func (m *Manager) clearStores(ctx context.Context) {
	for _, store := range []storage.Store{m.durable, m.ephemeral} {
		if err := store.Delete(ctx, StorageKey); err != nil {
			m.logger.Printf("[Session] Could not clear session storage: %v", err)
		}
	}
}

// RequireSession is the check before any protected operation. An expired
// session is logged out on the spot.
func (m *Manager) RequireSession(ctx context.Context) (*Session, error) {
	if !m.IsReady() {
		return nil, ErrNotReady
	}
	s := m.Current()
	if s == nil {
		return nil, ErrNoSession
	}
	if s.Expired(m.now()) {
		m.logger.Printf("[Session] Session for %s expired", s.DisplayName)
		m.Logout(ctx)
		return nil, ErrSessionExpired
	}
	return s, nil
}

// RequireRole is RequireSession plus a role check
func (m *Manager) RequireRole(ctx context.Context, roles ...string) (*Session, error) {
	s, err := m.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !s.HasRole(roles...) {
		return nil, ErrForbidden
	}
	return s, nil
}

// Observe inspects an API error; a 401 means the backend no longer accepts
// the token, which is handled like an expiry. Returns true when it logged out.
func (m *Manager) Observe(ctx context.Context, err error) bool {
	if err == nil || api.StatusOf(err) != http.StatusUnauthorized {
		return false
	}
	if m.Current() == nil {
		return false
	}
	m.Logout(ctx)
	return true
}

// IsAuthError reports whether err came from a failed login or registration
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
