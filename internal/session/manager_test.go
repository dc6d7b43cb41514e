package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRefresher counts refresh calls and can block until released so
// tests can race other operations against an in-flight refresh.
type fakeRefresher struct {
	mu      sync.Mutex
	calls   int32
	err     error
	blockCh chan struct{}
	serial  int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.serial++
	serial := f.serial
	f.mu.Unlock()
	return &Credentials{
		AccessToken:      fmt.Sprintf("access-%d", serial),
		RefreshToken:     fmt.Sprintf("refresh-%d", serial),
		TokenType:        "Bearer",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (f *fakeRefresher) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func validCreds() *Credentials {
	return &Credentials{
		AccessToken:      "access-0",
		RefreshToken:     "refresh-0",
		TokenType:        "Bearer",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func expiredAccessCreds() *Credentials {
	creds := validCreds()
	creds.AccessExpiresAt = time.Now().Add(-time.Minute)
	return creds
}

func TestAccessTokenFastPath(t *testing.T) {
	refresher := &fakeRefresher{}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(validCreds()))

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-0", token)
	assert.Zero(t, refresher.callCount())
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestAccessTokenAnonymous(t *testing.T) {
	m, err := NewManager(&fakeRefresher{})
	require.NoError(t, err)

	_, err = m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	refresher := &fakeRefresher{}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, refresher.callCount())

	// The rotated pair is now current; no further refresh
	token, err = m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, refresher.callCount())
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	release := make(chan struct{})
	refresher := &fakeRefresher{blockCh: release}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	const callers = 50
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.AccessToken(context.Background())
		}(i)
	}

	// Give the callers time to pile onto the flight, then release it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-1", tokens[i])
	}
	assert.Equal(t, 1, refresher.callCount())
}

func TestLogoutDiscardsInFlightRefresh(t *testing.T) {
	release := make(chan struct{})
	refresher := &fakeRefresher{blockCh: release}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	resultCh := make(chan error, 1)
	go func() {
		_, err := m.AccessToken(context.Background())
		resultCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, m.Logout())
	close(release)

	// The refresh completed after the logout; its result must not revive
	// the session.
	err = <-resultCh
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Credentials())
}

func TestReloginDuringRefreshKeepsNewerCredentials(t *testing.T) {
	release := make(chan struct{})
	refresher := &fakeRefresher{blockCh: release}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	tokenCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		token, err := m.AccessToken(context.Background())
		tokenCh <- token
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	newer := validCreds()
	newer.AccessToken = "access-newer"
	require.NoError(t, m.SetCredentials(newer))
	close(release)

	// The stale refresh result is discarded; the waiting caller gets the
	// newer pair instead.
	token := <-tokenCh
	require.NoError(t, <-errCh)
	assert.Equal(t, "access-newer", token)
	assert.Equal(t, "access-newer", m.Credentials().AccessToken)
}

func TestDeadRefreshTokenDropsToAnonymous(t *testing.T) {
	refresher := &fakeRefresher{err: ErrSessionExpired}
	store := NewMemoryStore()
	m, err := NewManager(refresher, WithStore(store))
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	_, err = m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateAnonymous, m.State())

	// The persisted pair is gone too
	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTransientRefreshFailureKeepsSession(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("connection refused")}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(expiredAccessCreds()))

	_, err = m.AccessToken(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.NotNil(t, m.Credentials())
}

func TestExpiredRefreshTokenFailsWithoutNetworkCall(t *testing.T) {
	refresher := &fakeRefresher{}
	m, err := NewManager(refresher)
	require.NoError(t, err)

	creds := expiredAccessCreds()
	creds.RefreshExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, m.SetCredentials(creds))

	_, err = m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, refresher.callCount())
}

func TestSubscribeSeesTransitions(t *testing.T) {
	m, err := NewManager(&fakeRefresher{})
	require.NoError(t, err)

	ch, cancel := m.Subscribe()
	defer cancel()

	m.MarkAuthenticating()
	assert.Equal(t, StateAuthenticating, <-ch)

	require.NoError(t, m.SetCredentials(validCreds()))
	assert.Equal(t, StateAuthenticated, <-ch)

	require.NoError(t, m.Logout())
	assert.Equal(t, StateAnonymous, <-ch)
}

func TestManagerResumesFromStore(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(validCreds()))

	m, err := NewManager(&fakeRefresher{}, WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, m.State())

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-0", token)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	creds := validCreds()
	require.NoError(t, store.Save(creds))

	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, creds.AccessToken, loaded.AccessToken)
	assert.Equal(t, creds.RefreshToken, loaded.RefreshToken)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear()) // idempotent

	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestTransportRetriesOnceOnUnauthorized(t *testing.T) {
	var authHeaders []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		n := len(authHeaders)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	refresher := &fakeRefresher{}
	m, err := NewManager(refresher)
	require.NoError(t, err)
	require.NoError(t, m.SetCredentials(validCreds()))

	client := &http.Client{Transport: &Transport{Manager: m}}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, authHeaders, 2)
	assert.Equal(t, "Bearer access-0", authHeaders[0])
	assert.Equal(t, "Bearer access-1", authHeaders[1])
	assert.Equal(t, 1, refresher.callCount())
}

func TestAPIClientRefresh(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/token/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "refresh-0", body["refresh_token"])

		// First attempt fails transiently to exercise the backoff path
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(credentialResponse{
			AccessToken:      "access-1",
			RefreshToken:     "refresh-1",
			TokenType:        "Bearer",
			AccessExpiresAt:  time.Now().Add(time.Hour),
			RefreshExpiresAt: time.Now().Add(24 * time.Hour),
		})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, WithRetryDelay(time.Millisecond, 10*time.Millisecond))
	creds, err := client.Refresh(context.Background(), "refresh-0")
	require.NoError(t, err)
	assert.Equal(t, "access-1", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestAPIClientRefreshRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL)
	_, err := client.Refresh(context.Background(), "dead-token")
	assert.ErrorIs(t, err, ErrSessionExpired)
}
