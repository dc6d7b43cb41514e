package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// State is the client session lifecycle state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// ErrSessionExpired means the session cannot be resumed: the caller has to
// authenticate again from scratch.
var ErrSessionExpired = errors.New("session expired, authentication required")

// ErrNotAuthenticated means no session was ever established.
var ErrNotAuthenticated = errors.New("not authenticated")

// Refresher exchanges a refresh token for a fresh credential pair. It
// returns ErrSessionExpired when the server rejects the token as invalid,
// consumed, or revoked; any other error is transient.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
}

const defaultExpirySkew = 30 * time.Second

// Manager owns a client's credential pair. Any number of goroutines may
// call AccessToken concurrently; at most one refresh is ever in flight,
// and every waiting caller shares its outcome.
type Manager struct {
	refresher Refresher
	store     Store
	skew      time.Duration
	now       func() time.Time

	mu    sync.Mutex
	creds *Credentials
	state State
	// generation increments on every logout and credential install. A
	// refresh started under an older generation is discarded on return so
	// it cannot resurrect a session that was logged out while it ran.
	generation uint64

	group       singleflight.Group
	subscribers map[int]chan State
	nextSubID   int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore sets the persistence backend. Stored credentials are loaded
// eagerly, so a Manager built over a warm store resumes authenticated.
func WithStore(store Store) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// WithExpirySkew sets how long before expiry an access token is treated
// as already dead.
func WithExpirySkew(skew time.Duration) ManagerOption {
	return func(m *Manager) {
		if skew >= 0 {
			m.skew = skew
		}
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(refresher Refresher, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		refresher:   refresher,
		store:       NewMemoryStore(),
		skew:        defaultExpirySkew,
		now:         time.Now,
		state:       StateAnonymous,
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}

	creds, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if creds != nil && creds.RefreshValid(m.now()) {
		m.creds = creds
		m.state = StateAuthenticated
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel receiving state transitions and a cancel
// function releasing it. Slow receivers only miss intermediate states,
// never the latest one.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan State, 1)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
	return ch, cancel
}

// setState must be called with mu held.
func (m *Manager) setState(state State) {
	if m.state == state {
		return
	}
	m.state = state
	for _, ch := range m.subscribers {
		// Coalesce: replace a pending unread state with the newer one
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// MarkAuthenticating flags a login in progress so subscribers can render
// it. SetCredentials or Logout ends it.
func (m *Manager) MarkAuthenticating() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAnonymous {
		m.setState(StateAuthenticating)
	}
}

// SetCredentials installs a freshly issued pair, typically right after a
// completed login. Any refresh still in flight for the previous pair is
// discarded when it returns.
func (m *Manager) SetCredentials(creds *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(creds); err != nil {
		return err
	}
	copied := *creds
	m.creds = &copied
	m.generation++
	m.setState(StateAuthenticated)
	return nil
}

// Credentials returns a copy of the current pair, or nil when anonymous.
func (m *Manager) Credentials() *Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil
	}
	copied := *m.creds
	return &copied
}

// Logout drops the session locally and clears the persisted pair.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked()
}

// clearLocked must be called with mu held.
func (m *Manager) clearLocked() error {
	m.creds = nil
	m.generation++
	m.setState(StateAnonymous)
	return m.store.Clear()
}

// Invalidate marks the given access token dead so the next AccessToken
// call refreshes. A no-op when the token is no longer the current one,
// which makes it safe to call from concurrent request failures.
func (m *Manager) Invalidate(staleAccessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds != nil && m.creds.AccessToken == staleAccessToken {
		m.creds.AccessExpiresAt = time.Time{}
	}
}

// AccessToken returns an access token valid at the time of the call,
// transparently refreshing an expired one. Concurrent callers during a
// refresh all block on the same flight and share its result.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	now := m.now()
	switch {
	case m.creds == nil:
		m.mu.Unlock()
		return "", ErrNotAuthenticated
	case m.creds.AccessValid(now, m.skew):
		token := m.creds.AccessToken
		m.mu.Unlock()
		return token, nil
	case !m.creds.RefreshValid(now):
		_ = m.clearLocked()
		m.mu.Unlock()
		return "", ErrSessionExpired
	}
	refreshToken := m.creds.RefreshToken
	gen := m.generation
	m.setState(StateRefreshing)
	m.mu.Unlock()

	type refreshOutcome struct {
		creds *Credentials
		gen   uint64
	}

	result, err, _ := m.group.Do("refresh", func() (any, error) {
		fresh, err := m.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		return &refreshOutcome{creds: fresh, gen: gen}, nil
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			// The server refused the refresh token for good; the only way
			// forward is a new login.
			_ = m.clearLocked()
			return "", ErrSessionExpired
		}
		// Transient failure: keep the pair, a later call may succeed
		if m.creds != nil {
			m.setState(StateAuthenticated)
		}
		return "", err
	}

	outcome := result.(*refreshOutcome)
	if outcome.gen != m.generation {
		// A logout or re-login happened while the refresh was in flight.
		// Its result belongs to the dead session and must not be installed.
		if m.creds != nil && m.creds.AccessValid(m.now(), m.skew) {
			return m.creds.AccessToken, nil
		}
		return "", ErrSessionExpired
	}

	if err := m.store.Save(outcome.creds); err != nil {
		return "", err
	}
	copied := *outcome.creds
	m.creds = &copied
	m.setState(StateAuthenticated)
	return m.creds.AccessToken, nil
}
